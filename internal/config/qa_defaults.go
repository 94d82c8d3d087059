package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type qaDefaultsFile struct {
	Defaults      map[string]string `yaml:"defaults"`
	PromptAliases []AliasRule       `yaml:"prompt_aliases"`
}

// LoadQADefaults reads the QA defaults file: a mapping of keys to canned
// answers plus alias rules matching prompt substrings to those keys. A missing
// path is not an error; the resolver simply has no defaults to work with.
func LoadQADefaults(path string) (map[string]string, []AliasRule, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return map[string]string{}, nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: reading qa defaults %q: %v", ErrConfig, path, err)
	}

	var file qaDefaultsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("%w: parsing qa defaults %q: %v", ErrConfig, path, err)
	}

	defaults := make(map[string]string, len(file.Defaults))
	for k, v := range file.Defaults {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		defaults[key] = strings.TrimSpace(v)
	}

	aliases := make([]AliasRule, 0, len(file.PromptAliases))
	for _, rule := range file.PromptAliases {
		key := strings.TrimSpace(rule.Key)
		if key == "" {
			continue
		}
		patterns := make([]string, 0, len(rule.Patterns))
		for _, p := range rule.Patterns {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				patterns = append(patterns, p)
			}
		}
		aliases = append(aliases, AliasRule{Key: key, Patterns: patterns})
	}

	return defaults, aliases, nil
}
