package chain

import (
	"sort"
)

// Kwargs carries keyword arguments. Passed as the last argument of Invoke,
// Call or Do it is split off from the positional arguments.
type Kwargs map[string]any

// Chain is the fluent facade over an Engine. Attribute reads become Attr,
// calls become Call or Invoke.
//
// The first error from Attr or Call is kept and every later step on the
// chain does nothing; read it with Err.
type Chain struct {
	engine *Engine

	err       error
	result    any
	hasResult bool
}

// New wraps proxy in a chain. proxy may be nil.
func New(proxy any, opts ...Option) *Chain {
	return &Chain{engine: NewEngine(proxy, opts...)}
}

// Attr resolves key, either a prefixed meta-operation or a proxy member.
func (c *Chain) Attr(key string) *Chain {
	if c.err != nil {
		return c
	}
	c.err = c.engine.Resolve(key)
	return c
}

// Invoke calls whatever the last Attr resolved. It returns the operation's
// value when the operation bypasses the chain, and the chain itself
// otherwise. A failed call is sticky, as with Call.
func (c *Chain) Invoke(args ...any) (any, error) {
	if c.err != nil {
		return nil, c.err
	}
	pos, kwargs := splitKwargs(args)
	result, bypassed, err := c.engine.Invoke(pos, kwargs)
	if err != nil {
		c.err = err
		return nil, err
	}
	if bypassed {
		return result, nil
	}
	return c, nil
}

// Call is the fluent form of Invoke. A bypass value is available from Result.
func (c *Chain) Call(args ...any) *Chain {
	if c.err != nil {
		return c
	}
	pos, kwargs := splitKwargs(args)
	result, bypassed, err := c.engine.Invoke(pos, kwargs)
	if err != nil {
		c.err = err
		return c
	}
	c.result, c.hasResult = result, bypassed
	return c
}

// Do resolves key and calls it.
func (c *Chain) Do(key string, args ...any) *Chain {
	return c.Attr(key).Call(args...)
}

// Err returns the first error the chain hit.
func (c *Chain) Err() error {
	return c.err
}

// Result returns the value of the last Call when it bypassed the chain.
// ok is false when the last Call continued the chain; the value itself may
// still be nil when ok is true.
func (c *Chain) Result() (value any, ok bool) {
	return c.result, c.hasResult
}

// Exit leaves the chain and returns the current proxy.
func (c *Chain) Exit() (any, error) {
	return c.bypass("exit")
}

// Retrieve returns the value stored under name.
func (c *Chain) Retrieve(name string) (any, error) {
	return c.bypass("retrieve", name)
}

// Stored returns the chain's store. The map is live.
func (c *Chain) Stored() (map[string]any, error) {
	v, err := c.bypass("get_stored")
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)
	return m, nil
}

func (c *Chain) bypass(name string, args ...any) (any, error) {
	if c.err != nil {
		return nil, c.err
	}
	if err := c.engine.Resolve(c.engine.options.Prefix + name); err != nil {
		return nil, err
	}
	result, _, err := c.engine.Invoke(args, nil)
	return result, err
}

// Members lists every prefixed meta-operation name followed by the proxy's
// members. Each part is sorted.
func (c *Chain) Members() []string {
	prefix := c.engine.options.Prefix
	ops := make([]string, 0, len(c.engine.ops))
	for name := range c.engine.ops {
		ops = append(ops, prefix+name)
	}
	sort.Strings(ops)
	return append(ops, listMembers(c.engine.proxy)...)
}

// Engine returns the engine behind the chain.
func (c *Chain) Engine() *Engine {
	return c.engine
}

func splitKwargs(args []any) ([]any, map[string]any) {
	n := len(args)
	if n == 0 {
		return nil, nil
	}
	if kw, ok := args[n-1].(Kwargs); ok {
		return args[:n-1], map[string]any(kw)
	}
	return args, nil
}
