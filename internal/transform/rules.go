package transform

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules overrides the built-in exception and suffix lists from a YAML file.
type Rules struct {
	NameExceptions  []string `yaml:"name_exceptions"`
	CompanySuffixes []string `yaml:"company_suffixes"`
}

// LoadRules reads a rules file. Empty lists fall back to the defaults.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "transform: read rules %s", path)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(err, "transform: parse rules %s", path)
	}
	return &r, nil
}
