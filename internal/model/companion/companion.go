package companion

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Identifiers of the built-in companions.
const (
	Astrid = "astrid"
	Ivar   = "ivar"
)

// Companion describes one of the conversational personas the user can talk to.
type Companion struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Avatar   string `yaml:"avatar" json:"avatar"`
	Role     string `yaml:"role" json:"role"`
	Bio      string `yaml:"bio" json:"bio"`
	Greeting string `yaml:"greeting" json:"greeting"`
}

//go:embed companions.yaml
var catalogue []byte

// Seed returns the built-in companions in display order.
func Seed() []Companion {
	items, err := Parse(catalogue)
	if err != nil {
		panic(fmt.Sprintf("companion: embedded catalogue: %v", err))
	}
	return items
}

// Parse decodes a YAML companion catalogue.
func Parse(data []byte) ([]Companion, error) {
	var items []Companion
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode companions: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.ID == "" || item.Name == "" || item.Greeting == "" {
			return nil, fmt.Errorf("companion #%d: id, name and greeting are required", i)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("companion %q declared twice", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return items, nil
}
