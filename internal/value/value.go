package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf16"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindAbsent marks a missing cell or unset property.
	KindAbsent Kind = iota
	KindNumber
	KindString
	KindDate
	KindBool
	KindList
	KindObject

	// KindAny is only valid in declarations; it accepts every variant.
	KindAny
)

var kindNames = map[Kind]string{
	KindAbsent: "absent",
	KindNumber: "number",
	KindString: "string",
	KindDate:   "date",
	KindBool:   "bool",
	KindList:   "list",
	KindObject: "object",
	KindAny:    "any",
}

// String returns the declaration name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a declaration name ("number", "string", ...) to a Kind.
// "absent" is not a declarable kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "number", "float", "int":
		return KindNumber, nil
	case "string":
		return KindString, nil
	case "date", "datetime":
		return KindDate, nil
	case "bool", "boolean":
		return KindBool, nil
	case "list":
		return KindList, nil
	case "object":
		return KindObject, nil
	case "any", "":
		return KindAny, nil
	default:
		return KindAbsent, fmt.Errorf("unknown value kind %q", s)
	}
}

// Scalar reports whether k is a dataset cell kind.
func (k Kind) Scalar() bool {
	return k == KindNumber || k == KindString || k == KindDate || k == KindBool
}

// Orderable reports whether values of kind k support range comparison.
// Booleans are comparable for sorting but not orderable for range predicates.
func (k Kind) Orderable() bool {
	return k == KindNumber || k == KindString || k == KindDate
}

// Value is a sealed interface. Only Absent, Number, String, Date, Bool, List
// and Object implement it.
type Value interface {
	Kind() Kind
	sealed()
}

// Absent represents a missing value.
type Absent struct{}

func (Absent) Kind() Kind { return KindAbsent }
func (Absent) sealed()    {}

// Number is a float64 numeric value.
type Number float64

func (Number) Kind() Kind { return KindNumber }
func (Number) sealed()    {}

// String is a text value.
type String string

func (String) Kind() Kind { return KindString }
func (String) sealed()    {}

// Date is a point in time, compared and serialized in UTC.
type Date time.Time

func (Date) Kind() Kind { return KindDate }
func (Date) sealed()    {}

// Time returns the underlying time in UTC.
func (d Date) Time() time.Time { return time.Time(d).UTC() }

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) sealed()    {}

// List is an ordered sequence of values.
type List []Value

func (List) Kind() Kind { return KindList }
func (List) sealed()    {}

// Object maps string keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) Kind() Kind { return KindObject }
func (Object) sealed()    {}

// Missing is the shared Absent value.
var Missing Value = Absent{}

// NewDate wraps t as a Date.
func NewDate(t time.Time) Date { return Date(t.UTC()) }

// KindOf returns the kind of v, treating nil as Absent.
func KindOf(v Value) Kind {
	if v == nil {
		return KindAbsent
	}
	return v.Kind()
}

// IsAbsent reports whether v is nil or Absent.
func IsAbsent(v Value) bool {
	return KindOf(v) == KindAbsent
}

// Accepts reports whether a property declared as kind may hold v.
// Absent is accepted by every declaration.
func Accepts(declared Kind, v Value) bool {
	k := KindOf(v)
	return declared == KindAny || k == KindAbsent || k == declared
}

// AsNumber returns the float held by v.
func AsNumber(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// AsString returns the text held by v.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsBool returns the boolean held by v.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}

// AsList returns the elements held by v.
func AsList(v Value) (List, bool) {
	l, ok := v.(List)
	return l, ok
}

// AsObject returns the fields held by v.
func AsObject(v Value) (Object, bool) {
	o, ok := v.(Object)
	return o, ok
}

// Path walks into structured values. String steps select object fields and
// int steps select list elements. Returns (Missing, false) on any miss.
//
//	Path(click, "points", 0, "location")
func Path(v Value, steps ...any) (Value, bool) {
	cur := v
	for _, step := range steps {
		switch s := step.(type) {
		case string:
			obj, ok := cur.(Object)
			if !ok {
				return Missing, false
			}
			next, ok := obj[s]
			if !ok {
				return Missing, false
			}
			cur = next
		case int:
			list, ok := cur.(List)
			if !ok || s < 0 || s >= len(list) {
				return Missing, false
			}
			cur = list[s]
		default:
			return Missing, false
		}
	}
	if cur == nil {
		return Missing, false
	}
	return cur, true
}

// Compare orders two values of the same scalar kind.
// Bool orders false before true. Absent, List and Object are not comparable.
func Compare(a, b Value) (int, error) {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return 0, fmt.Errorf("cannot compare %s with %s", ka, kb)
	}
	switch av := a.(type) {
	case Number:
		bv := float64(b.(Number))
		switch {
		case float64(av) < bv:
			return -1, nil
		case float64(av) > bv:
			return 1, nil
		}
		return 0, nil
	case String:
		return strings.Compare(string(av), string(b.(String))), nil
	case Date:
		return av.Time().Compare(b.(Date).Time()), nil
	case Bool:
		bv := bool(b.(Bool))
		switch {
		case bool(av) == bv:
			return 0, nil
		case !bool(av):
			return -1, nil
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("values of kind %s are not comparable", ka)
	}
}

// Equal reports whether a and b hold the same value. Absent equals nil.
func Equal(a, b Value) bool {
	return Key(a) == Key(b)
}

// Key returns a canonical string identity for v, suitable as a map key.
// Equal values produce equal keys; strings are NFC-normalized.
func Key(v Value) string {
	switch val := v.(type) {
	case nil, Absent:
		return "a:"
	case Number:
		return "n:" + formatNumber(float64(val))
	case String:
		s, _ := marshalCanonicalString(string(val))
		return "s:" + string(s)
	case Date:
		return "d:" + val.Time().Format(time.RFC3339Nano)
	case Bool:
		if val {
			return "b:true"
		}
		return "b:false"
	default:
		data, err := MarshalCanonical(v)
		if err != nil {
			return fmt.Sprintf("x:%v", v)
		}
		return KindOf(v).String()[:1] + ":" + string(data)
	}
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's default string comparison uses UTF-8 which produces a different order.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// FromAny converts decoded JSON/YAML/Go values into a Value.
// Integers and floats become Number; time.Time becomes Date; nil becomes Absent.
func FromAny(x any) (Value, error) {
	switch val := x.(type) {
	case nil:
		return Missing, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Number(val), nil
	case int8:
		return Number(val), nil
	case int16:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint:
		return Number(val), nil
	case uint8:
		return Number(val), nil
	case uint16:
		return Number(val), nil
	case uint32:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case time.Time:
		return NewDate(val), nil
	case []string:
		list := make(List, len(val))
		for i, s := range val {
			list[i] = String(s)
		}
		return list, nil
	case []float64:
		list := make(List, len(val))
		for i, f := range val {
			list[i] = Number(f)
		}
		return list, nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			v, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = v
		}
		return list, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			v, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = v
		}
		return obj, nil
	case map[any]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", k)
			}
			v, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj[key] = v
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", x)
	}
}

// MustFromAny is FromAny for literals known to be valid. Panics on error.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// ToAny converts v into plain Go values (nil, float64, string, time.Time,
// bool, []any, map[string]any).
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Absent:
		return nil
	case Number:
		return float64(val)
	case String:
		return string(val)
	case Date:
		return val.Time()
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// ParseJSON decodes a JSON document into a Value. Numbers become Number.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// formatNumber renders integral floats without a fraction ("2020", not "2020.0").
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}

// Format renders v for log lines and error messages.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Absent:
		return "<absent>"
	case Number:
		return formatNumber(float64(val))
	case String:
		return string(val)
	case Date:
		return val.Time().Format(time.RFC3339)
	case Bool:
		if val {
			return "true"
		}
		return "false"
	default:
		data, err := MarshalCanonical(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
