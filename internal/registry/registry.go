package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/wavedash/internal/value"
)

// PropertySpec declares one component property: its kind and initial value.
type PropertySpec struct {
	Type    value.Kind
	Default value.Value
}

// Component is the declaration passed to Register.
type Component struct {
	ID         string
	Properties map[string]PropertySpec
}

type property struct {
	kind  value.Kind
	value value.Value
}

// Registry holds the typed, mutable property state of one session's
// components. Components are never removed.
type Registry struct {
	mu         sync.RWMutex
	components map[string]map[string]*property
	order      []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{components: make(map[string]map[string]*property)}
}

// Register adds a component with its declared properties and defaults.
// A nil default is stored as Absent.
func (r *Registry) Register(c Component) error {
	if c.ID == "" {
		return fmt.Errorf("component id is empty")
	}

	props := make(map[string]*property, len(c.Properties))
	for name, spec := range c.Properties {
		def := spec.Default
		if def == nil {
			def = value.Missing
		}
		if !value.Accepts(spec.Type, def) {
			return &PropertyTypeError{Ref: R(c.ID, name), Declared: spec.Type, Got: def.Kind()}
		}
		props[name] = &property{kind: spec.Type, value: def}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.components[c.ID]; exists {
		return &DuplicateComponentError{Component: c.ID}
	}
	r.components[c.ID] = props
	r.order = append(r.order, c.ID)
	return nil
}

// Has reports whether ref names a registered property.
func (r *Registry) Has(ref Ref) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.lookup(ref)
	return err == nil
}

// TypeOf returns the declared kind of ref.
func (r *Registry) TypeOf(ref Ref) (value.Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.lookup(ref)
	if err != nil {
		return 0, err
	}
	return p.kind, nil
}

// Get returns the current value of ref.
func (r *Registry) Get(ref Ref) (value.Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.lookup(ref)
	if err != nil {
		return nil, err
	}
	return p.value, nil
}

// Set replaces the value of ref after checking it against the declared kind.
func (r *Registry) Set(ref Ref, v value.Value) error {
	return r.SetAll(map[Ref]value.Value{ref: v})
}

// SetAll applies writes atomically: either every write is valid and applied,
// or none is.
func (r *Registry) SetAll(writes map[Ref]value.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	props := make(map[Ref]*property, len(writes))
	for ref, v := range writes {
		p, err := r.lookup(ref)
		if err != nil {
			return err
		}
		if v == nil {
			v = value.Missing
		}
		if !value.Accepts(p.kind, v) {
			return &PropertyTypeError{Ref: ref, Declared: p.kind, Got: v.Kind()}
		}
		props[ref] = p
	}
	for ref, p := range props {
		v := writes[ref]
		if v == nil {
			v = value.Missing
		}
		p.value = v
	}
	return nil
}

// Check reports whether v may be written to ref without writing it.
func (r *Registry) Check(ref Ref, v value.Value) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.lookup(ref)
	if err != nil {
		return err
	}
	if !value.Accepts(p.kind, v) {
		return &PropertyTypeError{Ref: ref, Declared: p.kind, Got: value.KindOf(v)}
	}
	return nil
}

// Snapshot copies every property value.
func (r *Registry) Snapshot() map[Ref]value.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Ref]value.Value)
	for id, props := range r.components {
		for name, p := range props {
			out[R(id, name)] = p.value
		}
	}
	return out
}

// Components returns component ids in registration order.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Properties returns the property names of a component, sorted.
func (r *Registry) Properties(component string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	props, ok := r.components[component]
	if !ok {
		return nil, &NotFoundError{Ref: Ref{Component: component}}
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Refs returns every registered ref in component registration order, then
// property name order.
func (r *Registry) Refs() []Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var refs []Ref
	for _, id := range r.order {
		names := make([]string, 0, len(r.components[id]))
		for name := range r.components[id] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			refs = append(refs, R(id, name))
		}
	}
	return refs
}

// lookup requires r.mu to be held.
func (r *Registry) lookup(ref Ref) (*property, error) {
	props, ok := r.components[ref.Component]
	if !ok {
		return nil, &NotFoundError{Ref: ref}
	}
	p, ok := props[ref.Property]
	if !ok {
		return nil, &NotFoundError{Ref: ref}
	}
	return p, nil
}
