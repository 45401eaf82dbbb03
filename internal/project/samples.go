package project

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed samples.yaml
var samplesYAML []byte

// Samples returns a fresh copy of the built-in catalog.
func Samples() []Project {
	projects, err := DecodeCatalog(samplesYAML)
	if err != nil {
		panic(fmt.Sprintf("project: embedded samples: %v", err))
	}
	return projects
}

// DecodeCatalog parses a YAML list of projects, dropping invalid entries.
func DecodeCatalog(data []byte) ([]Project, error) {
	var raw []Project
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	out := raw[:0]
	for _, p := range raw {
		if p.Valid() {
			out = append(out, p)
		}
	}
	return out, nil
}
