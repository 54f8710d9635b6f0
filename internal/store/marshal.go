package store

import (
	"fmt"

	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/value"
)

// marshalValue converts a property value to canonical JSON TEXT.
func marshalValue(v value.Value) (string, error) {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses canonical JSON TEXT back into a value.
func unmarshalValue(data string) (value.Value, error) {
	if data == "" {
		return value.Missing, nil
	}
	v, err := value.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

// marshalChanges stores a change batch as a list of {"ref","value"} objects.
func marshalChanges(changes []dispatch.Change) (string, error) {
	list := make(value.List, len(changes))
	for i, c := range changes {
		v := c.Value
		if v == nil {
			v = value.Missing
		}
		list[i] = value.Object{"ref": value.String(c.Ref.String()), "value": v}
	}
	data, err := value.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal changes: %w", err)
	}
	return string(data), nil
}

func unmarshalChanges(data string) ([]dispatch.Change, error) {
	v, err := unmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	list, _ := value.AsList(v)
	out := make([]dispatch.Change, 0, len(list))
	for i, item := range list {
		s, ok := value.AsString(mustPath(item, "ref"))
		if !ok {
			return nil, fmt.Errorf("unmarshal changes: entry %d has no ref", i)
		}
		ref, err := registry.ParseRef(s)
		if err != nil {
			return nil, fmt.Errorf("unmarshal changes: %w", err)
		}
		out = append(out, dispatch.Change{Ref: ref, Value: mustPath(item, "value")})
	}
	return out, nil
}

// marshalStrings stores a string slice as a JSON array.
func marshalStrings(ss []string) (string, error) {
	list := make(value.List, len(ss))
	for i, s := range ss {
		list[i] = value.String(s)
	}
	data, err := value.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	v, err := unmarshalValue(data)
	if err != nil {
		return nil, err
	}
	list, _ := value.AsList(v)
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := value.AsString(item)
		if !ok {
			return nil, fmt.Errorf("unmarshal strings: %s is not a string", value.Format(item))
		}
		out = append(out, s)
	}
	return out, nil
}

// mustPath returns the field or Absent.
func mustPath(v value.Value, key string) value.Value {
	got, ok := value.Path(v, key)
	if !ok {
		return value.Missing
	}
	return got
}
