package chain

import (
	"fmt"
	"math"
	"reflect"
	"slices"
)

// MemberResolver lets a proxy decide for itself which keys it answers.
// When a proxy implements it, reflection is not used for lookups.
type MemberResolver interface {
	ResolveMember(key string) (any, bool)
}

// MemberSetter lets a proxy handle the setattr meta-operation itself.
type MemberSetter interface {
	SetMember(key string, value any) error
}

// MemberLister lets a proxy report its member names for enumeration.
type MemberLister interface {
	MemberNames() []string
}

// KwargsFunc is a callable proxy member that accepts keyword arguments.
// Plain Go functions only take positional arguments.
type KwargsFunc func(args []any, kwargs map[string]any) (any, error)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// lookupMember finds key on proxy.
//
// Lookup order: MemberResolver, string-keyed map entry, method (exact name,
// then exported form), exported struct field (same two names, through
// pointers).
//
// Methods come from the method set of proxy as given. A struct passed by
// value has no pointer-receiver methods; its address is never taken, since
// calls would then mutate a copy.
func lookupMember(proxy any, key string) (any, bool) {
	if isNil(proxy) {
		return nil, false
	}
	if r, ok := proxy.(MemberResolver); ok {
		return r.ResolveMember(key)
	}

	v := reflect.ValueOf(proxy)
	if v.Kind() == reflect.Map {
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	}

	names := candidateNames(key)
	for _, name := range names {
		if m := v.MethodByName(name); m.IsValid() {
			return m.Interface(), true
		}
	}

	sv, ok := derefStruct(v)
	if !ok {
		return nil, false
	}
	for _, name := range names {
		f, found := sv.Type().FieldByName(name)
		if !found || !f.IsExported() {
			continue
		}
		fv, err := sv.FieldByIndexErr(f.Index)
		if err != nil {
			continue
		}
		return fv.Interface(), true
	}
	return nil, false
}

// setMember writes value to key on proxy.
func setMember(proxy any, key string, value any) error {
	if isNil(proxy) {
		return NewMissingMemberError(key, proxy)
	}
	if s, ok := proxy.(MemberSetter); ok {
		return s.SetMember(key, value)
	}

	v := reflect.ValueOf(proxy)
	if v.Kind() == reflect.Map {
		if v.Type().Key().Kind() != reflect.String {
			return NewMissingMemberError(key, proxy)
		}
		mv, err := convertArg(value, v.Type().Elem())
		if err != nil {
			return NewBadArgumentsError(key, "cannot store %T in %s: %v", value, v.Type(), err)
		}
		v.SetMapIndex(reflect.ValueOf(key).Convert(v.Type().Key()), mv)
		return nil
	}

	sv, ok := derefStruct(v)
	if !ok {
		return NewMissingMemberError(key, proxy)
	}
	for _, name := range candidateNames(key) {
		f, found := sv.Type().FieldByName(name)
		if !found || !f.IsExported() {
			continue
		}
		fv, err := sv.FieldByIndexErr(f.Index)
		if err != nil || !fv.CanSet() {
			return NewBadArgumentsError(key, "field %s of %T is not settable", name, proxy)
		}
		cv, err := convertArg(value, fv.Type())
		if err != nil {
			return NewBadArgumentsError(key, "field %s: %v", name, err)
		}
		fv.Set(cv)
		return nil
	}
	return NewMissingMemberError(key, proxy)
}

// listMembers returns the sorted member names of proxy.
func listMembers(proxy any) []string {
	if isNil(proxy) {
		return nil
	}
	if l, ok := proxy.(MemberLister); ok {
		names := slices.Clone(l.MemberNames())
		slices.Sort(names)
		return names
	}

	v := reflect.ValueOf(proxy)
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		iter := v.MapRange()
		for iter.Next() {
			add(iter.Key().String())
		}
	}

	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		add(t.Method(i).Name)
	}

	if sv, ok := derefStruct(v); ok {
		st := sv.Type()
		for i := 0; i < st.NumField(); i++ {
			if f := st.Field(i); f.IsExported() {
				add(f.Name)
			}
		}
	}

	slices.Sort(names)
	return names
}

// derefStruct follows pointers down to a struct value.
func derefStruct(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.Kind() == reflect.Struct
}

// isNil reports whether v is nil or a typed nil pointer, map, slice, func,
// channel or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// isCallable reports whether Invoke can call v.
func isCallable(v any) bool {
	switch fn := v.(type) {
	case nil:
		return false
	case *Operation:
		return fn != nil
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

// callValue calls fn with the given arguments.
// Errors returned by fn itself are returned unchanged.
func callValue(e *Engine, key string, fn any, args []any, kwargs map[string]any) (any, error) {
	switch f := fn.(type) {
	case *Operation:
		return f.Call(e, args, kwargs)
	case KwargsFunc:
		return f(args, kwargs)
	case func([]any, map[string]any) (any, error):
		return f(args, kwargs)
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, NewNotCallableError(key, fn)
	}
	if len(kwargs) > 0 {
		return nil, NewBadArgumentsError(key, "%s does not accept keyword arguments", rv.Type())
	}
	in, err := bindReflectArgs(rv.Type(), args)
	if err != nil {
		err.Key = key
		return nil, err
	}
	return unpackResults(rv.Call(in))
}

// bindReflectArgs converts args to the parameter types of a function type.
func bindReflectArgs(t reflect.Type, args []any) ([]reflect.Value, *Error) {
	n := t.NumIn()
	if t.IsVariadic() {
		if len(args) < n-1 {
			return nil, NewBadArgumentsError("", "%s wants at least %d arguments, got %d", t, n-1, len(args))
		}
	} else if len(args) != n {
		return nil, NewBadArgumentsError("", "%s wants %d arguments, got %d", t, n, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if t.IsVariadic() && i >= n-1 {
			pt = t.In(n - 1).Elem()
		} else {
			pt = t.In(i)
		}
		v, err := convertArg(a, pt)
		if err != nil {
			return nil, NewBadArgumentsError("", "argument %d: %v", i, err)
		}
		in[i] = v
	}
	return in, nil
}

// convertArg converts a to type t. nil becomes the zero value; numbers are
// converted between numeric kinds as long as no fraction is lost.
func convertArg(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	av := reflect.ValueOf(a)
	at := av.Type()
	switch {
	case at.AssignableTo(t):
		return av, nil
	case isNumeric(at.Kind()) && isNumeric(t.Kind()):
		if isFloat(at.Kind()) && !isFloat(t.Kind()) && av.Float() != math.Trunc(av.Float()) {
			return reflect.Value{}, fmt.Errorf("cannot use %v as %s without losing its fraction", a, t)
		}
		if overflows(av, t) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", a, t)
		}
		return av.Convert(t), nil
	case at.Kind() == t.Kind() && at.ConvertibleTo(t):
		return av.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, t)
}

// overflows reports whether the number in v is out of range for t.
func overflows(v reflect.Value, t reflect.Type) bool {
	zero := reflect.Zero(t)
	switch {
	case isSigned(v.Kind()):
		n := v.Int()
		switch {
		case isSigned(t.Kind()):
			return zero.OverflowInt(n)
		case isUnsigned(t.Kind()):
			return n < 0 || zero.OverflowUint(uint64(n))
		}
	case isUnsigned(v.Kind()):
		n := v.Uint()
		switch {
		case isSigned(t.Kind()):
			return n > math.MaxInt64 || zero.OverflowInt(int64(n))
		case isUnsigned(t.Kind()):
			return zero.OverflowUint(n)
		}
	case isFloat(v.Kind()):
		f := v.Float()
		switch {
		case isSigned(t.Kind()):
			return f < math.MinInt64 || f >= math.MaxInt64 || zero.OverflowInt(int64(f))
		case isUnsigned(t.Kind()):
			return f < 0 || f >= math.MaxUint64 || zero.OverflowUint(uint64(f))
		case isFloat(t.Kind()):
			return zero.OverflowFloat(f)
		}
	}
	return false
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isNumeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uintptr) || isFloat(k)
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// unpackResults turns reflect results into one value.
//
//	()         -> nil
//	(T)        -> T
//	(error)    -> nil, error
//	(T, error) -> T, error
//	(A, B...)  -> []any{A, B, ...}
func unpackResults(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			return nil, out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	vals := make([]any, len(out))
	for i, o := range out {
		vals[i] = o.Interface()
	}
	return vals, nil
}
