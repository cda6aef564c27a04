package declare

import (
	"encoding/json"

	"gopkg.in/yaml.v2"
)

// Render returns the indented JSON description of the set.
func (s *Set) Render() ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// RenderYAML returns the YAML description of the set.
func (s *Set) RenderYAML() ([]byte, error) {
	return yaml.Marshal(s)
}
