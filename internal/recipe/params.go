package recipe

import (
	"encoding/json"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

var columnNameShape = regexp.MustCompile(`^[a-zA-Z0-9_\s-]{1,100}$`)

// ValidateParams checks recipe-specific parameters against the recipe's
// parameter shape. A nil error means the job may be admitted.
func ValidateParams(t model.RecipeType, params map[string]any) error {
	if _, err := Resolve(t); err != nil {
		return err
	}

	switch t {
	case model.RecipeDedupeByColumns:
		p, err := DedupeParams(params)
		if err != nil {
			return err
		}
		return validateColumns(p.Columns)
	case model.RecipeNormalizeDates:
		p, err := DateParams(params)
		if err != nil {
			return err
		}
		return validateColumns(p.Columns)
	case model.RecipeNormalizePhones:
		p, err := PhoneParams(params)
		if err != nil {
			return err
		}
		return validateColumns(p.Columns)
	case model.RecipeNormalizeEmails:
		p, err := EmailParams(params)
		if err != nil {
			return err
		}
		return validateColumns(p.Columns)
	case model.RecipeTitleCaseNames:
		p, err := TitleCaseParams(params)
		if err != nil {
			return err
		}
		return validateColumns(p.Columns)
	case model.RecipeMapJobTitles:
		p, err := JobTitleParams(params)
		if err != nil {
			return err
		}
		return validateColumn(p.Column)
	case model.RecipeNormalizeCompanies:
		p, err := CompanyParams(params)
		if err != nil {
			return err
		}
		return validateColumn(p.Column)
	}
	return &NotFoundError{Recipe: t}
}

func validateColumns(columns []string) error {
	if len(columns) == 0 {
		return &ValidationError{Field: "columns", Reason: "at least one column must be selected"}
	}
	for _, col := range columns {
		if !columnNameShape.MatchString(col) {
			return &ValidationError{Field: "columns", Reason: "column name contains invalid characters: " + col}
		}
	}
	return nil
}

func validateColumn(column string) error {
	if column == "" {
		return &ValidationError{Field: "column", Reason: "a column must be selected"}
	}
	if !columnNameShape.MatchString(column) {
		return &ValidationError{Field: "column", Reason: "column name contains invalid characters: " + column}
	}
	return nil
}

func decodeParams(params map[string]any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return eris.Wrap(err, "recipe: marshal params")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ValidationError{Field: "params", Reason: err.Error()}
	}
	return nil
}

// DedupeParams decodes dedupe_by_columns parameters.
func DedupeParams(params map[string]any) (model.DedupeParams, error) {
	var p model.DedupeParams
	err := decodeParams(params, &p)
	return p, err
}

// DateParams decodes normalize_dates parameters.
func DateParams(params map[string]any) (model.DateNormalizeParams, error) {
	var p model.DateNormalizeParams
	err := decodeParams(params, &p)
	return p, err
}

// PhoneParams decodes normalize_phones parameters.
func PhoneParams(params map[string]any) (model.PhoneNormalizeParams, error) {
	var p model.PhoneNormalizeParams
	err := decodeParams(params, &p)
	return p, err
}

// EmailParams decodes normalize_emails parameters.
func EmailParams(params map[string]any) (model.EmailNormalizeParams, error) {
	var p model.EmailNormalizeParams
	err := decodeParams(params, &p)
	return p, err
}

// TitleCaseParams decodes title_case_names parameters.
func TitleCaseParams(params map[string]any) (model.TitleCaseParams, error) {
	var p model.TitleCaseParams
	err := decodeParams(params, &p)
	return p, err
}

// JobTitleParams decodes map_job_titles parameters.
func JobTitleParams(params map[string]any) (model.JobTitleMapParams, error) {
	var p model.JobTitleMapParams
	err := decodeParams(params, &p)
	return p, err
}

// CompanyParams decodes normalize_companies parameters.
func CompanyParams(params map[string]any) (model.CompanyNormalizeParams, error) {
	var p model.CompanyNormalizeParams
	err := decodeParams(params, &p)
	return p, err
}
