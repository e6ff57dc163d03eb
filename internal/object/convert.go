package object

import (
	"fmt"
	"sort"
)

// ToNative converts a script value to plain Go data for the host
// boundary (event payloads, query arguments, final-variable maps).
func ToNative(obj Object) any {
	switch obj := obj.(type) {
	case *Null, nil:
		return nil
	case *Boolean:
		return obj.Value
	case *Number:
		return obj.Value
	case *String:
		return obj.Value
	case *Array:
		out := make([]any, 0, len(obj.Elements))
		for _, e := range obj.Elements {
			out = append(out, ToNative(e))
		}
		return out
	case *Map:
		out := make(map[string]any, obj.Len())
		for k, v := range obj.Pairs {
			out[k] = ToNative(v)
		}
		return out
	default:
		return obj.Inspect()
	}
}

// FromNative converts host data to a script value. Map keys are
// inserted sorted so iteration over a host-supplied object is
// deterministic.
func FromNative(v any) Object {
	switch v := v.(type) {
	case nil:
		return NULL
	case bool:
		if v {
			return TRUE
		}
		return FALSE
	case float64:
		return &Number{Value: v}
	case float32:
		return &Number{Value: float64(v)}
	case int:
		return &Number{Value: float64(v)}
	case int64:
		return &Number{Value: float64(v)}
	case string:
		return &String{Value: v}
	case []any:
		arr := &Array{Elements: make([]Object, 0, len(v))}
		for _, e := range v {
			arr.Elements = append(arr.Elements, FromNative(e))
		}
		return arr
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, FromNative(v[k]))
		}
		return m
	case Object:
		return v
	default:
		return &String{Value: fmt.Sprint(v)}
	}
}
