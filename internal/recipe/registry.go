// Package recipe holds the closed, compiled-in registry of cleaning recipes.
// The registry is never mutated at runtime; entitlement enforcement belongs
// to the caller, the registry only declares the requirement.
package recipe

import (
	"fmt"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

// Step is one logical processing step within a recipe.
type Step struct {
	Name   string
	Engine model.Engine
}

// Definition describes a recipe: its ordered steps, engine assignments, and
// entitlement requirement.
type Definition struct {
	Type        model.RecipeType
	Name        string
	Description string
	Steps       []Step
	RequiresPro bool
}

// NotFoundError is returned when a recipe id is not in the registry.
type NotFoundError struct {
	Recipe model.RecipeType
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("recipe: unknown recipe %q", e.Recipe)
}

// ValidationError reports a bad or missing recipe parameter. It surfaces
// before a job ever leaves queued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recipe: invalid parameter %q: %s", e.Field, e.Reason)
}

var definitions = map[model.RecipeType]Definition{
	model.RecipeDedupeByColumns: {
		Type:        model.RecipeDedupeByColumns,
		Name:        "Remove Duplicates",
		Description: "Remove duplicate rows based on selected columns",
		Steps: []Step{
			{Name: "dedupe", Engine: model.EngineDeterministic},
		},
	},
	model.RecipeNormalizeDates: {
		Type:        model.RecipeNormalizeDates,
		Name:        "Normalize Dates",
		Description: "Convert dates to ISO format (YYYY-MM-DD)",
		Steps: []Step{
			{Name: "normalize_dates", Engine: model.EngineHybrid},
		},
	},
	model.RecipeNormalizePhones: {
		Type:        model.RecipeNormalizePhones,
		Name:        "Normalize Phone Numbers",
		Description: "Standardize phone numbers to E.164 format",
		Steps: []Step{
			{Name: "normalize_phones", Engine: model.EngineHybrid},
		},
	},
	model.RecipeNormalizeEmails: {
		Type:        model.RecipeNormalizeEmails,
		Name:        "Normalize Emails",
		Description: "Trim, lowercase, and validate email addresses",
		Steps: []Step{
			{Name: "normalize_emails", Engine: model.EngineDeterministic},
		},
	},
	model.RecipeTitleCaseNames: {
		Type:        model.RecipeTitleCaseNames,
		Name:        "Title Case Names",
		Description: "Convert names to proper title case",
		Steps: []Step{
			{Name: "title_case", Engine: model.EngineDeterministic},
		},
	},
	model.RecipeMapJobTitles: {
		Type:        model.RecipeMapJobTitles,
		Name:        "Map Job Titles to Seniority",
		Description: "Classify job titles into seniority levels",
		Steps: []Step{
			{Name: "map_seniority", Engine: model.EngineRemote},
		},
		RequiresPro: true,
	},
	model.RecipeNormalizeCompanies: {
		Type:        model.RecipeNormalizeCompanies,
		Name:        "Normalize Company Names",
		Description: "Standardize company names and remove legal suffixes",
		Steps: []Step{
			{Name: "strip_suffixes", Engine: model.EngineDeterministic},
			{Name: "normalize_company", Engine: model.EngineRemote},
		},
		RequiresPro: true,
	},
}

// Resolve maps a recipe id to its definition.
func Resolve(t model.RecipeType) (Definition, error) {
	def, found := definitions[t]
	if !found {
		return Definition{}, &NotFoundError{Recipe: t}
	}
	return def, nil
}

// All returns every definition in a stable order.
func All() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, t := range model.AllRecipeTypes() {
		out = append(out, definitions[t])
	}
	return out
}
