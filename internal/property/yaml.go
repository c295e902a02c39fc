package property

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// directoryFile models a property directory file:
//
//	properties:
//	  - code: patriot
//	    name: Patriot Village
//	    street: 360 Pennington Ave
//	    ...
type directoryFile struct {
	Properties []Property `yaml:"properties"`
}

// LoadFile reads a YAML property directory.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("property: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML property directory.
func Parse(data []byte) (*Directory, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("property: decode directory: %w", err)
	}
	if len(f.Properties) == 0 {
		return nil, fmt.Errorf("property: directory lists no properties")
	}
	return NewDirectory(f.Properties)
}
