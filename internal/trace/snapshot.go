package trace

import (
	"fmt"
	"math"
	"reflect"
)

// maxSnapshotDepth bounds how deep Snapshot follows nested values.
// Self-referencing structures are cut off at this depth.
const maxSnapshotDepth = 8

// Describer is implemented by values that have a stable textual identity
// in traces (chain meta-operations, for example).
type Describer interface {
	Describe() string
}

// Snapshot converts an arbitrary Go value into a plain value made of
// nil, bool, int64, float64, string, []any and map[string]any.
//
// Pointers and interfaces are followed, structs become maps of their
// exported fields, maps get their keys formatted with fmt, and functions
// and channels become "<func>" and "<chan>" so traces stay deterministic.
// Unsigned integers above math.MaxInt64 become float64 instead of wrapping
// negative.
func Snapshot(v any) any {
	return snapshot(v, 0)
}

func snapshot(v any, depth int) any {
	if v == nil {
		return nil
	}
	if d, ok := v.(Describer); ok {
		return d.Describe()
	}
	if depth >= maxSnapshotDepth {
		return "<...>"
	}
	return snapshotValue(reflect.ValueOf(v), depth)
}

func snapshotValue(rv reflect.Value, depth int) any {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u)
		}
		return int64(u)
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Func:
		return "<func>"
	case reflect.Chan:
		return "<chan>"
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.CanInterface() {
			return snapshot(rv.Elem().Interface(), depth+1)
		}
		return snapshotValue(rv.Elem(), depth+1)
	case reflect.Slice:
		if rv.IsNil() {
			return []any{}
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = snapshotElem(rv.Index(i), depth+1)
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = snapshotElem(iter.Value(), depth+1)
		}
		return out
	case reflect.Struct:
		out := make(map[string]any)
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			out[f.Name] = snapshotElem(rv.Field(i), depth+1)
		}
		return out
	default:
		return fmt.Sprintf("<%s>", rv.Kind())
	}
}

func snapshotElem(rv reflect.Value, depth int) any {
	if rv.CanInterface() {
		return snapshot(rv.Interface(), depth)
	}
	return snapshotValue(rv, depth)
}
