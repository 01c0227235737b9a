package model

// RecipeType identifies one of the compiled-in cleaning recipes.
type RecipeType string

const (
	RecipeDedupeByColumns    RecipeType = "dedupe_by_columns"
	RecipeNormalizeDates     RecipeType = "normalize_dates"
	RecipeNormalizePhones    RecipeType = "normalize_phones"
	RecipeNormalizeEmails    RecipeType = "normalize_emails"
	RecipeTitleCaseNames     RecipeType = "title_case_names"
	RecipeMapJobTitles       RecipeType = "map_job_titles"
	RecipeNormalizeCompanies RecipeType = "normalize_companies"
)

// AllRecipeTypes returns every registered recipe id.
func AllRecipeTypes() []RecipeType {
	return []RecipeType{
		RecipeDedupeByColumns,
		RecipeNormalizeDates,
		RecipeNormalizePhones,
		RecipeNormalizeEmails,
		RecipeTitleCaseNames,
		RecipeMapJobTitles,
		RecipeNormalizeCompanies,
	}
}

// Engine is the computation strategy assigned to a recipe step.
type Engine string

const (
	EngineDeterministic Engine = "deterministic"
	EngineRemote        Engine = "remote"
	EngineHybrid        Engine = "hybrid"
)

// DedupeParams configures dedupe_by_columns.
type DedupeParams struct {
	Columns   []string `json:"columns"`
	KeepFirst *bool    `json:"keepFirst,omitempty"`
}

// Keep reports whether the first occurrence of a duplicate key wins.
// Defaults to true when unset.
func (p DedupeParams) Keep() bool {
	return p.KeepFirst == nil || *p.KeepFirst
}

// DateNormalizeParams configures normalize_dates.
type DateNormalizeParams struct {
	Columns    []string `json:"columns"`
	LocaleHint string   `json:"localeHint,omitempty"`
}

// PhoneNormalizeParams configures normalize_phones.
type PhoneNormalizeParams struct {
	Columns        []string `json:"columns"`
	DefaultCountry string   `json:"defaultCountry,omitempty"`
}

// EmailNormalizeParams configures normalize_emails.
type EmailNormalizeParams struct {
	Columns []string `json:"columns"`
}

// TitleCaseParams configures title_case_names.
type TitleCaseParams struct {
	Columns    []string `json:"columns"`
	Exceptions []string `json:"exceptions,omitempty"`
}

// JobTitleMapParams configures map_job_titles (single column, pro-gated).
type JobTitleMapParams struct {
	Column string `json:"column"`
}

// CompanyNormalizeParams configures normalize_companies (single column, pro-gated).
type CompanyNormalizeParams struct {
	Column string `json:"column"`
}
