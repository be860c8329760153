package chain

import (
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/fluentchain/internal/trace"
)

// Engine owns the state of one chain: the proxy, the pending current value,
// the proxy history and the stored values.
//
// INVARIANTS:
//   - proxyStack is strict LIFO: N demotes after N promotes restore the
//     original proxy, further demotes leave proxy nil
//   - current holds either a meta-operation or something taken from the proxy
//   - restricted operations are never reached through Resolve
//   - a failed Resolve or Invoke leaves current and proxy unchanged
//
// An Engine is owned by exactly one Chain and is not safe for concurrent use.
type Engine struct {
	proxy        any
	current      any
	currentValue any

	// meaningful is true while current came from the proxy rather than from
	// a meta-operation lookup.
	meaningful bool

	// lastKey is the key of the last successful Resolve, used to label
	// invoke steps and errors.
	lastKey string

	options Options
	ops     map[string]*Operation

	proxyStack   []any
	namedProxies map[string]any
	stored       map[string]any

	logger   *slog.Logger
	recorder trace.Recorder
	clock    trace.Sequencer
	session  string
}

// NewEngine creates an engine wrapping proxy. proxy may be nil.
func NewEngine(proxy any, opts ...Option) *Engine {
	e := &Engine{
		proxy:        proxy,
		options:      DefaultOptions(),
		ops:          make(map[string]*Operation, len(builtinOperations)),
		proxyStack:   []any{},
		namedProxies: make(map[string]any),
		stored:       make(map[string]any),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, op := range builtinOperations {
		e.ops[op.Name] = op
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.recorder != nil {
		if e.clock == nil {
			e.clock = trace.NewClock()
		}
		if e.session == "" {
			e.session = trace.UUIDv7Generator{}.Generate()
		}
	}

	return e
}

// Resolve routes key either to a meta-operation (prefixed keys) or to a
// member of the proxy, and makes the result the pending current value.
func (e *Engine) Resolve(key string) error {
	err := e.resolve(key)
	var result any
	if err == nil {
		result = e.current
	}
	e.record(trace.KindResolve, key, nil, nil, result, false, err)
	return err
}

func (e *Engine) resolve(key string) error {
	if name, ok := strings.CutPrefix(key, e.options.Prefix); ok {
		op, found := e.ops[name]
		if !found {
			return NewMissingOperationError(key)
		}
		if op.Restricted {
			return NewRestrictedError(key)
		}

		value := e.currentValue
		if e.meaningful {
			value = e.current
		}
		e.meaningful = false
		e.current = op
		e.currentValue = value
		e.lastKey = key

		e.logger.Debug("chain resolve", "key", key, "operation", op.Name, "bypass", op.Bypass)
		return nil
	}

	member, found := lookupMember(e.proxy, key)
	if !found && e.options.StrictProxy {
		return NewMissingMemberError(key, e.proxy)
	}
	e.meaningful = true
	e.setCurrent(member)
	e.lastKey = key

	e.logger.Debug("chain resolve", "key", key, "found", found, "proxy_depth", len(e.proxyStack))
	return nil
}

// Invoke calls the pending current value.
//
// When current is absent or not callable a non-strict engine does nothing
// and a strict one returns a NOT_CALLABLE error. Errors from the callee are
// returned unchanged. bypassed is true only when current was a bypassing
// meta-operation; result then holds its return value, which may be nil.
func (e *Engine) Invoke(args []any, kwargs map[string]any) (result any, bypassed bool, err error) {
	key := e.lastKey
	result, bypassed, err = e.callCurrent(args, kwargs)
	e.record(trace.KindInvoke, key, args, kwargs, result, bypassed, err)
	if !bypassed {
		result = nil
	}
	return result, bypassed, err
}

// callCurrent calls current and returns the callee's result whether or not
// it bypasses.
func (e *Engine) callCurrent(args []any, kwargs map[string]any) (any, bool, error) {
	current := e.current
	if !isCallable(current) {
		if !e.options.StrictProxy {
			e.logger.Debug("chain invoke skipped", "key", e.lastKey)
			return nil, false, nil
		}
		return nil, false, NewNotCallableError(e.lastKey, current)
	}

	result, err := callValue(e, e.lastKey, current, args, kwargs)
	if err != nil {
		return nil, false, err
	}

	op, isOp := current.(*Operation)
	if !isOp || !op.KeepCurrent {
		e.setCurrent(result)
	}

	bypass := isOp && op.Bypass
	e.logger.Debug("chain invoke", "key", e.lastKey, "bypass", bypass, "proxy_depth", len(e.proxyStack))
	return result, bypass, nil
}

// setCurrent updates both current slots.
func (e *Engine) setCurrent(v any) {
	e.current = v
	e.currentValue = v
}

// promote pushes the proxy and makes value (or, when nil, the current value)
// the new proxy.
func (e *Engine) promote(value any) {
	e.proxyStack = append(e.proxyStack, e.proxy)
	if value == nil {
		value = e.currentValue
	}
	e.proxy = value
}

// demote restores the previous proxy, or nil once the stack is empty.
func (e *Engine) demote() {
	n := len(e.proxyStack)
	if n == 0 {
		e.proxy = nil
		return
	}
	e.proxy = e.proxyStack[n-1]
	e.proxyStack[n-1] = nil
	e.proxyStack = e.proxyStack[:n-1]
}

func (e *Engine) record(kind, key string, args []any, kwargs map[string]any, result any, bypass bool, err error) {
	if e.recorder == nil {
		return
	}

	seq := e.clock.Next()
	id, idErr := trace.StepID(e.session, seq, kind, key)
	if idErr != nil {
		e.logger.Warn("trace step id failed", "error", idErr, "seq", seq)
	}

	ev := trace.Event{
		Session:    e.session,
		Seq:        seq,
		ID:         id,
		Kind:       kind,
		Key:        key,
		Result:     trace.Snapshot(result),
		Bypass:     bypass,
		ProxyDepth: len(e.proxyStack),
	}
	if len(args) > 0 {
		ev.Args = trace.Snapshot(args)
	}
	if len(kwargs) > 0 {
		ev.Kwargs = trace.Snapshot(kwargs)
	}
	if err != nil {
		ev.Error = err.Error()
	}

	if recErr := e.recorder.Record(ev); recErr != nil {
		e.logger.Warn("trace record failed", "error", recErr, "seq", seq, "kind", kind)
	}
}

// Proxy returns the active proxy.
func (e *Engine) Proxy() any { return e.proxy }

// Current returns what the next Invoke will call.
func (e *Engine) Current() any { return e.current }

// CurrentValue returns the last value taken from the proxy.
func (e *Engine) CurrentValue() any { return e.currentValue }

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.options }

// Stored returns the name to value store. The map is live.
func (e *Engine) Stored() map[string]any { return e.stored }

// ProxyDepth returns the number of proxies waiting on the stack.
func (e *Engine) ProxyDepth() int { return len(e.proxyStack) }

// Session returns the session token stamped on recorded steps.
func (e *Engine) Session() string { return e.session }

// Operation returns the meta-operation registered under name.
func (e *Engine) Operation(name string) (*Operation, bool) {
	op, ok := e.ops[name]
	return op, ok
}
