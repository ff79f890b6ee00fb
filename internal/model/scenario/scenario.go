package scenario

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is an opening prompt template for an interview session.
type Scenario struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

//go:embed scenarios.yaml
var catalogYAML []byte

type catalogFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Parse decodes a YAML catalog and validates every entry.
func Parse(data []byte) ([]Scenario, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode scenario catalog: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario catalog is empty")
	}

	seen := make(map[string]struct{}, len(file.Scenarios))
	for i, item := range file.Scenarios {
		item.ID = strings.TrimSpace(item.ID)
		item.Title = strings.TrimSpace(item.Title)
		item.Prompt = strings.TrimSpace(item.Prompt)
		if item.ID == "" || item.Prompt == "" {
			return nil, fmt.Errorf("scenario %d: id and prompt are required", i)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("scenario %q declared twice", item.ID)
		}
		seen[item.ID] = struct{}{}
		file.Scenarios[i] = item
	}
	return file.Scenarios, nil
}

// Seed returns the built-in catalog compiled into the binary.
func Seed() []Scenario {
	items, err := Parse(catalogYAML)
	if err != nil {
		panic(err)
	}
	return items
}
