package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/palmpay/internal/gesture"
)

// compoundFile is the on-disk layout of a custom compound table:
//
//	compounds:
//	  - sequence: [swipe_right, tap, swipe_right]
//	    action: quick_pay
type compoundFile struct {
	Compounds []struct {
		Sequence []string `yaml:"sequence"`
		Action   string   `yaml:"action"`
	} `yaml:"compounds"`
}

// LoadCompoundTable reads a YAML compound table. Every gesture named in a
// sequence must be a known gesture type.
func LoadCompoundTable(path string) (*gesture.CompoundTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compound table: %w", err)
	}

	var f compoundFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse compound table %s: %w", path, err)
	}
	if len(f.Compounds) == 0 {
		return nil, &gesture.ConfigurationError{Field: "compound_table_file", Value: path, Reason: "defines no compounds"}
	}

	patterns := make(map[string]string, len(f.Compounds))
	for _, c := range f.Compounds {
		seq := make([]gesture.Type, len(c.Sequence))
		for i, name := range c.Sequence {
			t, ok := gesture.ParseType(name)
			if !ok {
				return nil, &gesture.ConfigurationError{Field: "compound sequence", Value: name, Reason: "unknown gesture type"}
			}
			seq[i] = t
		}

		key := gesture.PatternKey(seq)
		if _, dup := patterns[key]; dup {
			return nil, &gesture.ConfigurationError{Field: "compound sequence", Value: key, Reason: "defined more than once"}
		}
		patterns[key] = c.Action
	}

	return gesture.NewCompoundTable(patterns)
}
