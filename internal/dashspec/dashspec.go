package dashspec

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/value"
)

// Dashboard is one parsed dashboard declaration.
type Dashboard struct {
	Name       string
	Title      string
	Datasets   []Source
	Components []Component
	Callbacks  []Callback
}

// Source names a dataset the dashboard reads and where it comes from.
type Source struct {
	Name     string
	Location string
	Drop     []string
	Types    map[string]value.Kind
}

// Component is a component declaration in file order.
type Component struct {
	ID         string
	Properties []Property
}

// Property declares one component property.
type Property struct {
	Name    string
	Type    value.Kind
	Default value.Value // nil when undeclared
	From    *Derived    // data-derived default, overrides Default
}

// Derived computes a property default from a dataset column at session
// build time.
type Derived struct {
	Dataset string
	Column  string
	Op      string // min, max, extent, distinct, first
	Sorted  bool   // distinct/first: ascending instead of first-seen order
	Prepend []value.Value
}

// Callback wires a named handler to its properties.
type Callback struct {
	ID      string
	Handler string
	Outputs []registry.Ref
	Inputs  []registry.Ref
	State   []registry.Ref
}

// Component returns the component declaration with the given id.
func (d *Dashboard) Component(id string) (Component, bool) {
	for _, c := range d.Components {
		if c.ID == id {
			return c, true
		}
	}
	return Component{}, false
}

// LoadFile parses every dashboard declared in a .cue file.
func LoadFile(path string) ([]*Dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return LoadBytes(filepath.Base(path), data)
}

// LoadBytes parses every dashboard declared in CUE source, in declaration
// order. filename is used for error positions.
func LoadBytes(filename string, data []byte) ([]*Dashboard, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("dashboard"))
	if !root.Exists() {
		return nil, &CompileError{Field: "dashboard", Message: "no dashboard declared", Pos: user.Pos()}
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []*Dashboard
	for iter.Next() {
		d, err := parseDashboard(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, &CompileError{Field: "dashboard", Message: "no dashboard declared", Pos: root.Pos()}
	}
	return out, nil
}

func parseDashboard(name string, v cue.Value) (*Dashboard, error) {
	d := &Dashboard{Name: name}

	title, err := v.LookupPath(cue.ParsePath("title")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	d.Title = title

	if d.Datasets, err = parseSources(v.LookupPath(cue.ParsePath("datasets"))); err != nil {
		return nil, err
	}
	if d.Components, err = parseComponents(v.LookupPath(cue.ParsePath("components"))); err != nil {
		return nil, err
	}
	if d.Callbacks, err = parseCallbacks(v.LookupPath(cue.ParsePath("callbacks"))); err != nil {
		return nil, err
	}
	return d, nil
}

func parseSources(v cue.Value) ([]Source, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []Source
	for iter.Next() {
		sv := iter.Value()
		src := Source{Name: iter.Label()}

		if src.Location, err = sv.LookupPath(cue.ParsePath("source")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if src.Drop, err = parseStrings(sv.LookupPath(cue.ParsePath("drop"))); err != nil {
			return nil, err
		}

		typesVal := sv.LookupPath(cue.ParsePath("types"))
		if typesVal.Exists() {
			typeIter, err := typesVal.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			src.Types = make(map[string]value.Kind)
			for typeIter.Next() {
				kind, err := parseKind(typeIter.Value())
				if err != nil {
					return nil, err
				}
				src.Types[typeIter.Label()] = kind
			}
		}
		out = append(out, src)
	}
	return out, nil
}

func parseComponents(v cue.Value) ([]Component, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []Component
	for iter.Next() {
		comp := Component{ID: iter.Label()}

		propIter, err := iter.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for propIter.Next() {
			prop, err := parseProperty(comp.ID, propIter.Label(), propIter.Value())
			if err != nil {
				return nil, err
			}
			comp.Properties = append(comp.Properties, prop)
		}
		out = append(out, comp)
	}
	return out, nil
}

func parseProperty(component, name string, v cue.Value) (Property, error) {
	prop := Property{Name: name}
	field := component + "." + name

	kind, err := parseKind(v.LookupPath(cue.ParsePath("type")))
	if err != nil {
		return Property{}, err
	}
	prop.Type = kind

	if defVal := v.LookupPath(cue.ParsePath("default")); defVal.Exists() {
		def, err := cueToValue(defVal)
		if err != nil {
			return Property{}, err
		}
		if kind == value.KindDate {
			def, err = asDate(defVal, def)
			if err != nil {
				return Property{}, err
			}
		}
		if !value.Accepts(kind, def) {
			return Property{}, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("default of kind %s does not match declared type %s", def.Kind(), kind),
				Pos:     defVal.Pos(),
			}
		}
		prop.Default = def
	}

	if fromVal := v.LookupPath(cue.ParsePath("from")); fromVal.Exists() {
		from, err := parseDerived(fromVal)
		if err != nil {
			return Property{}, err
		}
		prop.From = from
	}
	return prop, nil
}

func parseDerived(v cue.Value) (*Derived, error) {
	d := &Derived{}
	var err error
	if d.Dataset, err = v.LookupPath(cue.ParsePath("dataset")).String(); err != nil {
		return nil, formatCUEError(err)
	}
	if d.Column, err = v.LookupPath(cue.ParsePath("column")).String(); err != nil {
		return nil, formatCUEError(err)
	}
	if d.Op, err = v.LookupPath(cue.ParsePath("op")).String(); err != nil {
		return nil, formatCUEError(err)
	}
	if sortedVal := v.LookupPath(cue.ParsePath("sorted")); sortedVal.Exists() {
		if d.Sorted, err = sortedVal.Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	prepend := v.LookupPath(cue.ParsePath("prepend"))
	if prepend.Exists() {
		list, err := cueToValue(prepend)
		if err != nil {
			return nil, err
		}
		items, _ := value.AsList(list)
		d.Prepend = items
	}
	return d, nil
}

func parseCallbacks(v cue.Value) ([]Callback, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []Callback
	for iter.Next() {
		cv := iter.Value()
		cb := Callback{ID: iter.Label()}

		if cb.Handler, err = cv.LookupPath(cue.ParsePath("handler")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if cb.Outputs, err = parseRefs(cv.LookupPath(cue.ParsePath("outputs"))); err != nil {
			return nil, err
		}
		if cb.Inputs, err = parseRefs(cv.LookupPath(cue.ParsePath("inputs"))); err != nil {
			return nil, err
		}
		if cb.State, err = parseRefs(cv.LookupPath(cue.ParsePath("state"))); err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, nil
}

func parseRefs(v cue.Value) ([]registry.Ref, error) {
	strs, err := parseStrings(v)
	if err != nil {
		return nil, err
	}
	refs := make([]registry.Ref, 0, len(strs))
	for _, s := range strs {
		ref, err := registry.ParseRef(s)
		if err != nil {
			return nil, &CompileError{Field: "ref", Message: err.Error(), Pos: v.Pos()}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseStrings(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	if def, ok := v.Default(); ok {
		v = def
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseKind(v cue.Value) (value.Kind, error) {
	s, err := v.String()
	if err != nil {
		return value.KindAbsent, formatCUEError(err)
	}
	kind, err := value.ParseKind(s)
	if err != nil {
		return value.KindAbsent, &CompileError{Field: "type", Message: err.Error(), Pos: v.Pos()}
	}
	return kind, nil
}

// cueToValue converts a concrete CUE value into a value.Value.
func cueToValue(v cue.Value) (value.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return value.Missing, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Bool(b), nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Number(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := value.List{}
		for iter.Next() {
			item, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := value.Object{}
		for iter.Next() {
			item, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = item
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   "default",
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// asDate parses a string default declared with type "date".
func asDate(src cue.Value, v value.Value) (value.Value, error) {
	s, ok := value.AsString(v)
	if !ok {
		return v, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return value.NewDate(t), nil
		}
	}
	return nil, &CompileError{Field: "default", Message: fmt.Sprintf("invalid date %q", s), Pos: src.Pos()}
}
