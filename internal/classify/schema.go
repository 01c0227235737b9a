package classify

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/datacleaner-cli/internal/model"
	"github.com/sells-group/datacleaner-cli/internal/redact"
)

// Profile describes how one recipe talks to the classifier: the instruction
// prompt, the redaction mode for outbound values, and the parser that
// validates the structured response against the recipe's expected shape.
type Profile struct {
	SystemPrompt string
	RedactMode   redact.Mode
	Parse        func(text string, count int) ([]model.Classification, error)
}

const (
	seniorityConfidence        = 0.95
	seniorityUnknownConfidence = 0.3
	companyConfidence          = 0.9
)

const seniorityPrompt = `You classify job titles into seniority levels. For each numbered input line, pick exactly one of: Intern, Junior, Mid, Senior, Lead, Director, VP, C-Level, Unknown. Respond with a JSON array, one object per input in order: [{"label": "<level>"}]. No other text.`

const companyPrompt = `You normalize company names. For each numbered input line, return the canonical company name with legal suffixes removed and casing fixed. Respond with a JSON array, one object per input in order: [{"normalized": "<name>"}]. No other text.`

const datePrompt = `You normalize ambiguous date strings. For each numbered input line, return the date in YYYY-MM-DD format, or "Unknown" if it cannot be determined. Respond with a JSON array, one object per input in order: [{"date": "<YYYY-MM-DD or Unknown>", "confidence": <0.0-1.0>}]. No other text.`

const phonePrompt = `You normalize phone numbers to E.164. For each numbered input line, return the number as +<digits>, or "Unknown" if it cannot be determined. Respond with a JSON array, one object per input in order: [{"phone": "<+digits or Unknown>", "confidence": <0.0-1.0>}]. No other text.`

var (
	isoDateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	e164Shape    = regexp.MustCompile(`^\+\d{7,15}$`)
)

// ProfileFor returns the classifier profile for a remote-capable recipe.
func ProfileFor(recipeType model.RecipeType) (Profile, error) {
	switch recipeType {
	case model.RecipeMapJobTitles:
		return Profile{
			SystemPrompt: seniorityPrompt,
			RedactMode:   redact.MaskToken,
			Parse:        parseSeniority,
		}, nil
	case model.RecipeNormalizeCompanies:
		return Profile{
			SystemPrompt: companyPrompt,
			RedactMode:   redact.MaskToken,
			Parse:        parseCompany,
		}, nil
	case model.RecipeNormalizeDates:
		return Profile{
			SystemPrompt: datePrompt,
			RedactMode:   redact.MaskToken,
			Parse:        parseDate,
		}, nil
	case model.RecipeNormalizePhones:
		return Profile{
			SystemPrompt: phonePrompt,
			RedactMode:   redact.FormatPreserving,
			Parse:        parsePhone,
		}, nil
	default:
		return Profile{}, eris.Errorf("classify: recipe %q has no remote profile", recipeType)
	}
}

func parseSeniority(text string, count int) ([]model.Classification, error) {
	items, err := decodeArray[struct {
		Label string `json:"label"`
	}](text, count)
	if err != nil {
		return nil, err
	}

	out := make([]model.Classification, len(items))
	for i, item := range items {
		if !model.ValidSeniority(item.Label) {
			return nil, eris.Errorf("classify: label %q is not a seniority level", item.Label)
		}
		confidence := seniorityConfidence
		if item.Label == model.SeniorityUnknown {
			confidence = seniorityUnknownConfidence
		}
		out[i] = model.Classification{Value: item.Label, Confidence: confidence}
	}
	return out, nil
}

func parseCompany(text string, count int) ([]model.Classification, error) {
	items, err := decodeArray[struct {
		Normalized string `json:"normalized"`
	}](text, count)
	if err != nil {
		return nil, err
	}

	out := make([]model.Classification, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Normalized) == "" {
			return nil, eris.Errorf("classify: empty normalized company at index %d", i)
		}
		out[i] = model.Classification{Value: item.Normalized, Confidence: companyConfidence}
	}
	return out, nil
}

func parseDate(text string, count int) ([]model.Classification, error) {
	items, err := decodeArray[struct {
		Date       string  `json:"date"`
		Confidence float64 `json:"confidence"`
	}](text, count)
	if err != nil {
		return nil, err
	}

	out := make([]model.Classification, len(items))
	for i, item := range items {
		if item.Date != model.ClassifierUnknown && !isoDateShape.MatchString(item.Date) {
			return nil, eris.Errorf("classify: date %q is not YYYY-MM-DD or Unknown", item.Date)
		}
		confidence := clamp01(item.Confidence)
		if item.Date == model.ClassifierUnknown {
			confidence = 0
		}
		out[i] = model.Classification{Value: item.Date, Confidence: confidence}
	}
	return out, nil
}

func parsePhone(text string, count int) ([]model.Classification, error) {
	items, err := decodeArray[struct {
		Phone      string  `json:"phone"`
		Confidence float64 `json:"confidence"`
	}](text, count)
	if err != nil {
		return nil, err
	}

	out := make([]model.Classification, len(items))
	for i, item := range items {
		if item.Phone != model.ClassifierUnknown && !e164Shape.MatchString(item.Phone) {
			return nil, eris.Errorf("classify: phone %q is not E.164 or Unknown", item.Phone)
		}
		confidence := clamp01(item.Confidence)
		if item.Phone == model.ClassifierUnknown {
			confidence = 0
		}
		out[i] = model.Classification{Value: item.Phone, Confidence: confidence}
	}
	return out, nil
}

func decodeArray[T any](text string, count int) ([]T, error) {
	var items []T
	if err := json.Unmarshal([]byte(cleanJSON(text)), &items); err != nil {
		return nil, eris.Wrap(err, "classify: parse response")
	}
	if len(items) != count {
		return nil, eris.Errorf("classify: expected %d results, got %d", count, len(items))
	}
	return items, nil
}

// cleanJSON strips markdown code fences models sometimes wrap around JSON.
func cleanJSON(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
