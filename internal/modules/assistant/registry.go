package assistant

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type MergeStrategy string

const (
	StrategyFlatArray  MergeStrategy = "flatArray"
	StrategyGroupedMap MergeStrategy = "groupedMap"
)

type FieldSpec struct {
	Field         string        `yaml:"field"`
	Strategy      MergeStrategy `yaml:"strategy"`
	GroupKeyField string        `yaml:"groupKeyField,omitempty"`
}

// Family describes how one assistant's output is cleaned, batched and merged.
type Family struct {
	Name           string      `yaml:"name"`
	BatchStyle     string      `yaml:"batchStyle,omitempty"`
	SanitizeFields []string    `yaml:"sanitizeFields,omitempty"`
	ContinuePrompt string      `yaml:"continuePrompt,omitempty"`
	ResendPrompt   string      `yaml:"resendPrompt,omitempty"`
	Merge          []FieldSpec `yaml:"merge"`
}

type registryFile struct {
	Families []Family `yaml:"families"`
}

type Registry struct {
	families map[string]Family
	order    []string
}

//go:embed assistants.yaml
var defaultRegistryYAML []byte

func DefaultRegistry() (*Registry, error) {
	return ParseRegistry(defaultRegistryYAML)
}

// LoadRegistry returns the built-in families, with families from the YAML file
// at path replacing built-ins of the same name. An empty path means built-ins only.
func LoadRegistry(path string) (*Registry, error) {
	reg, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return reg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assistant registry: %w", err)
	}
	override, err := ParseRegistry(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, name := range override.order {
		reg.put(override.families[name])
	}
	return reg, nil
}

func ParseRegistry(raw []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	reg := &Registry{families: map[string]Family{}}
	for i, fam := range f.Families {
		fam.Name = strings.TrimSpace(fam.Name)
		if fam.Name == "" {
			return nil, fmt.Errorf("family %d: name required", i)
		}
		if len(fam.Merge) == 0 {
			return nil, fmt.Errorf("family %s: merge spec required", fam.Name)
		}
		for _, fs := range fam.Merge {
			if strings.TrimSpace(fs.Field) == "" {
				return nil, fmt.Errorf("family %s: merge field name required", fam.Name)
			}
			switch fs.Strategy {
			case StrategyFlatArray:
			case StrategyGroupedMap:
				if strings.TrimSpace(fs.GroupKeyField) == "" {
					return nil, fmt.Errorf("family %s: field %s: groupKeyField required", fam.Name, fs.Field)
				}
			default:
				return nil, fmt.Errorf("family %s: field %s: unknown strategy %q", fam.Name, fs.Field, fs.Strategy)
			}
		}
		reg.put(fam)
	}
	return reg, nil
}

func (r *Registry) put(fam Family) {
	if _, ok := r.families[fam.Name]; !ok {
		r.order = append(r.order, fam.Name)
	}
	r.families[fam.Name] = fam
}

func (r *Registry) Lookup(name string) (Family, bool) {
	if r == nil {
		return Family{}, false
	}
	fam, ok := r.families[strings.TrimSpace(name)]
	return fam, ok
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Merge combines the chunk segments of a finished batch for the named family.
func (r *Registry) Merge(name string, segments []string, onSkip func(index int, err error)) (string, error) {
	fam, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAssistantFamily, name)
	}
	return MergeSegments(fam, segments, onSkip)
}
