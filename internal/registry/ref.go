package registry

import (
	"fmt"
	"strings"
)

// Ref addresses one component property.
type Ref struct {
	Component string `json:"component" yaml:"component"`
	Property  string `json:"property" yaml:"property"`
}

// R is shorthand for Ref{Component: component, Property: property}.
func R(component, property string) Ref {
	return Ref{Component: component, Property: property}
}

// String renders the ref as "component.property".
func (r Ref) String() string {
	return r.Component + "." + r.Property
}

// ParseRef parses "component.property". The split is on the last dot so
// component ids may themselves contain dots.
func ParseRef(s string) (Ref, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Ref{}, fmt.Errorf("invalid property reference %q: want component.property", s)
	}
	return Ref{Component: s[:i], Property: s[i+1:]}, nil
}

// Less orders refs by component, then property.
func (r Ref) Less(o Ref) bool {
	if r.Component != o.Component {
		return r.Component < o.Component
	}
	return r.Property < o.Property
}
