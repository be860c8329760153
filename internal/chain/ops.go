package chain

import (
	"fmt"
	"slices"
)

var (
	bypassAPI     = API{Bypass: true}
	plainAPI      = API{}
	restrictedAPI = API{Restricted: true}
)

// builtinOperations is the meta-operation table every engine starts with.
var builtinOperations = []*Operation{
	bypassAPI.Tag("exit", opExit),
	bypassAPI.Tag("get_stored", opGetStored),
	bypassAPI.Tag("retrieve", opRetrieve),

	plainAPI.Tag("tap", opTap),
	plainAPI.Tag("store", opStore),
	plainAPI.Tag("promote_value", opPromoteValue),
	plainAPI.Tag("demote_value", opDemoteValue),
	plainAPI.Tag("call_proxy", opCallProxy),
	plainAPI.Tag("name_proxy", opNameProxy),
	plainAPI.Tag("restore_proxy", opRestoreProxy),
	plainAPI.Tag("replace_proxy", opReplaceProxy),
	plainAPI.Tag("setattr", opSetattr),

	restrictedAPI.Tag("use", opUse),
	restrictedAPI.Tag("call_current", opCallCurrent),
}

// BuiltinOperationNames returns the names of the built-in meta-operations in
// table order.
func BuiltinOperationNames() []string {
	names := make([]string, len(builtinOperations))
	for i, op := range builtinOperations {
		names[i] = op.Name
	}
	return names
}

// opExit returns the proxy, leaving the chain.
func opExit(e *Engine, args []any, kwargs map[string]any) (any, error) {
	if _, err := bindArgs("exit", nil, 0, args, kwargs); err != nil {
		return nil, err
	}
	return e.proxy, nil
}

// opGetStored returns the store itself, not a copy.
func opGetStored(e *Engine, args []any, kwargs map[string]any) (any, error) {
	if _, err := bindArgs("get_stored", nil, 0, args, kwargs); err != nil {
		return nil, err
	}
	return e.stored, nil
}

func opRetrieve(e *Engine, args []any, kwargs map[string]any) (any, error) {
	name, err := bindName("retrieve", args, kwargs)
	if err != nil {
		return nil, err
	}
	v, ok := e.stored[name]
	if !ok {
		return nil, NewKeyNotFoundError("stored value", name)
	}
	return v, nil
}

// opTap calls action with the current value and discards the result.
func opTap(e *Engine, args []any, kwargs map[string]any) (any, error) {
	bound, err := bindArgs("tap", []string{"action"}, 1, args, kwargs)
	if err != nil {
		return nil, err
	}
	action := bound[0]
	if !isCallable(action) {
		return nil, NewNotCallableError("tap", action)
	}
	_, err = callValue(e, "tap", action, []any{e.currentValue}, nil)
	return nil, err
}

func opStore(e *Engine, args []any, kwargs map[string]any) (any, error) {
	name, err := bindName("store", args, kwargs)
	if err != nil {
		return nil, err
	}
	e.stored[name] = e.currentValue
	return nil, nil
}

func opPromoteValue(e *Engine, args []any, kwargs map[string]any) (any, error) {
	bound, err := bindArgs("promote_value", []string{"value"}, 0, args, kwargs)
	if err != nil {
		return nil, err
	}
	e.promote(bound[0])
	return nil, nil
}

func opDemoteValue(e *Engine, args []any, kwargs map[string]any) (any, error) {
	if _, err := bindArgs("demote_value", nil, 0, args, kwargs); err != nil {
		return nil, err
	}
	e.demote()
	return nil, nil
}

// opCallProxy makes the proxy itself the next thing Invoke calls.
func opCallProxy(e *Engine, args []any, kwargs map[string]any) (any, error) {
	if _, err := bindArgs("call_proxy", nil, 0, args, kwargs); err != nil {
		return nil, err
	}
	e.setCurrent(e.proxy)
	return nil, nil
}

func opNameProxy(e *Engine, args []any, kwargs map[string]any) (any, error) {
	name, err := bindName("name_proxy", args, kwargs)
	if err != nil {
		return nil, err
	}
	e.namedProxies[name] = e.proxy
	return nil, nil
}

func opRestoreProxy(e *Engine, args []any, kwargs map[string]any) (any, error) {
	name, err := bindName("restore_proxy", args, kwargs)
	if err != nil {
		return nil, err
	}
	p, ok := e.namedProxies[name]
	if !ok {
		return nil, NewKeyNotFoundError("named proxy", name)
	}
	e.promote(p)
	return nil, nil
}

func opReplaceProxy(e *Engine, args []any, kwargs map[string]any) (any, error) {
	bound, err := bindArgs("replace_proxy", []string{"new_proxy"}, 1, args, kwargs)
	if err != nil {
		return nil, err
	}
	e.promote(bound[0])
	return nil, nil
}

func opSetattr(e *Engine, args []any, kwargs map[string]any) (any, error) {
	bound, err := bindArgs("setattr", []string{"key", "value"}, 2, args, kwargs)
	if err != nil {
		return nil, err
	}
	key, ok := bound[0].(string)
	if !ok {
		return nil, NewBadArgumentsError("setattr", "key must be a string, got %T", bound[0])
	}
	return nil, setMember(e.proxy, key, bound[1])
}

// opUse is the body of Resolve.
func opUse(e *Engine, args []any, kwargs map[string]any) (any, error) {
	key, err := bindName("use", args, kwargs)
	if err != nil {
		return nil, err
	}
	return nil, e.resolve(key)
}

// opCallCurrent is the body of Invoke. It returns the bypass value when
// there is one.
func opCallCurrent(e *Engine, args []any, kwargs map[string]any) (any, error) {
	result, bypassed, err := e.callCurrent(args, kwargs)
	if !bypassed {
		return nil, err
	}
	return result, err
}

// bindArgs matches positional and keyword arguments to names. The first
// required names must be supplied; the rest default to nil.
func bindArgs(op string, names []string, required int, args []any, kwargs map[string]any) ([]any, error) {
	if len(args) > len(names) {
		return nil, NewBadArgumentsError(op, "%s takes at most %d arguments, got %d", op, len(names), len(args))
	}

	bound := make([]any, len(names))
	set := make([]bool, len(names))
	for i, a := range args {
		bound[i] = a
		set[i] = true
	}

	for k, v := range kwargs {
		i := slices.Index(names, k)
		if i < 0 {
			return nil, NewBadArgumentsError(op, "%s got an unexpected keyword argument %q", op, k)
		}
		if set[i] {
			return nil, NewBadArgumentsError(op, "%s got multiple values for argument %q", op, k)
		}
		bound[i] = v
		set[i] = true
	}

	for i := 0; i < required; i++ {
		if !set[i] {
			return nil, NewBadArgumentsError(op, "%s missing required argument %q", op, names[i])
		}
	}
	return bound, nil
}

// bindName binds a single required string argument called name.
func bindName(op string, args []any, kwargs map[string]any) (string, error) {
	bound, err := bindArgs(op, []string{"name"}, 1, args, kwargs)
	if err != nil {
		return "", err
	}
	switch n := bound[0].(type) {
	case string:
		return n, nil
	case fmt.Stringer:
		return n.String(), nil
	}
	return "", NewBadArgumentsError(op, "name must be a string, got %T", bound[0])
}
