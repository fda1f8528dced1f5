package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed forms.json
var defaultForms []byte

func LoadRegistry(path string) (*FormRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Default returns the registry compiled into the binary.
func Default() *FormRegistry {
	reg, err := parse(defaultForms)
	if err != nil {
		panic(fmt.Sprintf("embedded form registry is invalid: %v", err))
	}
	return reg
}

// LoadOrDefault reads path when it exists and falls back to the embedded
// registry otherwise.
func LoadOrDefault(path string) (*FormRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadRegistry(path)
}

func parse(data []byte) (*FormRegistry, error) {
	var reg FormRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse form registry: %w", err)
	}
	seen := make(map[string]bool, len(reg.Forms))
	for _, f := range reg.Forms {
		if f.ID == "" {
			return nil, fmt.Errorf("form without id")
		}
		if seen[f.ID] {
			return nil, fmt.Errorf("duplicate form id %q", f.ID)
		}
		seen[f.ID] = true
	}
	return &reg, nil
}

func (r *FormRegistry) Form(id string) (Form, bool) {
	for _, f := range r.Forms {
		if f.ID == id {
			return f, true
		}
	}
	return Form{}, false
}
