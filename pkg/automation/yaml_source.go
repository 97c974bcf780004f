package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// yamlFile is the on-disk shape: a list of definitions under one key.
type yamlFile struct {
	Definitions []Definition `yaml:"definitions"`
}

// LoadDefinitionsFile reads operator-authored definitions from a YAML
// file. Entries without an id get one derived from the name so the
// dedup key stays stable across restarts.
func LoadDefinitionsFile(path string) ([]Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions file: %w", err)
	}
	return ParseDefinitions(raw)
}

// ParseDefinitions decodes and validates a YAML definitions document.
func ParseDefinitions(raw []byte) ([]Definition, error) {
	var f yamlFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}

	for i := range f.Definitions {
		d := &f.Definitions[i]
		if d.ID == uuid.Nil {
			d.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(d.Name))
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("definition %q: %w", d.Name, err)
		}
	}
	return f.Definitions, nil
}

// StaticDefinitionSource serves a fixed definition list as a
// DefinitionStore. It backs file-configured deployments where rules
// change only on restart.
type StaticDefinitionSource struct {
	defs []Definition
}

// NewStaticDefinitionSource wraps a definition list.
func NewStaticDefinitionSource(defs []Definition) *StaticDefinitionSource {
	return &StaticDefinitionSource{defs: defs}
}

// ListActive returns the active definitions in file order.
func (s *StaticDefinitionSource) ListActive(_ context.Context) ([]Definition, error) {
	out := make([]Definition, 0, len(s.defs))
	for _, d := range s.defs {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}
