// Package property holds the static property directory that notices are
// enriched from.
package property

import (
	"fmt"
	"sort"
	"strings"
)

// Property is one development property. Code is the join key used by notice
// rows and is matched case-insensitively.
type Property struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Street  string `yaml:"street"`
	City    string `yaml:"city"`
	State   string `yaml:"state"`
	Zip     string `yaml:"zip"`
	Website string `yaml:"website"`
}

// FullAddress formats the property address as "street, city, state zip".
func (p Property) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s %s", p.Street, p.City, p.State, p.Zip)
}

// Directory is an immutable lookup of properties by code. It is built once
// and safe for concurrent reads.
type Directory struct {
	byCode map[string]Property
}

// NewDirectory builds a directory, rejecting empty and duplicate codes.
func NewDirectory(properties []Property) (*Directory, error) {
	byCode := make(map[string]Property, len(properties))
	for i, p := range properties {
		key := normalizeCode(p.Code)
		if key == "" {
			return nil, fmt.Errorf("property %d has an empty code", i+1)
		}
		if _, dup := byCode[key]; dup {
			return nil, fmt.Errorf("duplicate property code %q", p.Code)
		}
		byCode[key] = p
	}
	return &Directory{byCode: byCode}, nil
}

// Lookup returns the property registered under code. A miss is reported with
// ok == false and is not an error.
func (d *Directory) Lookup(code string) (Property, bool) {
	if d == nil {
		return Property{}, false
	}
	p, ok := d.byCode[normalizeCode(code)]
	return p, ok
}

// Len returns the number of properties in the directory.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byCode)
}

// All returns the properties ordered by code.
func (d *Directory) All() []Property {
	if d == nil {
		return nil
	}
	out := make([]Property, 0, len(d.byCode))
	for _, p := range d.byCode {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return normalizeCode(out[i].Code) < normalizeCode(out[j].Code)
	})
	return out
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
