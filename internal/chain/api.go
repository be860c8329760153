package chain

// OpFunc is the body of a meta-operation. The engine is always the receiver.
type OpFunc func(e *Engine, args []any, kwargs map[string]any) (any, error)

// API tags a meta-operation with routing flags.
//
//	exit := API{Bypass: true}.Tag("exit", opExit)
//	use := API{Restricted: true}.Tag("use", opUse)
type API struct {
	// Bypass makes the operation's result the chain's return value instead
	// of continuing the chain.
	Bypass bool

	// Restricted makes the operation unreachable through prefixed keys.
	// Only the engine itself calls restricted operations.
	Restricted bool
}

// Operation is a meta-operation together with its routing flags.
type Operation struct {
	Name string

	Bypass     bool
	Restricted bool

	// KeepCurrent stops Invoke from replacing current with the operation's
	// result. Every tagged operation keeps current.
	KeepCurrent bool

	fn OpFunc
}

// Tag wraps fn as a named operation carrying the API's flags.
func (a API) Tag(name string, fn OpFunc) *Operation {
	return &Operation{
		Name:        name,
		Bypass:      a.Bypass,
		Restricted:  a.Restricted,
		KeepCurrent: true,
		fn:          fn,
	}
}

// Call runs the operation against e.
func (op *Operation) Call(e *Engine, args []any, kwargs map[string]any) (any, error) {
	return op.fn(e, args, kwargs)
}

// Describe names the operation in traces.
func (op *Operation) Describe() string {
	return "<op " + op.Name + ">"
}
