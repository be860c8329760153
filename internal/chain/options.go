package chain

import (
	"log/slog"

	"github.com/roach88/fluentchain/internal/trace"
)

// DefaultPrefix is the reserved key prefix that routes to meta-operations.
const DefaultPrefix = "chain_"

// Options is the engine configuration. It is fixed after construction.
type Options struct {
	// StrictProxy turns a missing proxy member, or a call on something that
	// is not callable, into an error. When false both are silent no-ops.
	StrictProxy bool

	// Prefix separates meta-operation keys from proxy member keys.
	Prefix string
}

// DefaultOptions returns strict routing with the "chain_" prefix.
func DefaultOptions() Options {
	return Options{
		StrictProxy: true,
		Prefix:      DefaultPrefix,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrictProxy sets Options.StrictProxy.
func WithStrictProxy(strict bool) Option {
	return func(e *Engine) {
		e.options.StrictProxy = strict
	}
}

// WithPrefix sets the reserved prefix. An empty prefix is ignored, since it
// would route every key to the meta-operations.
func WithPrefix(prefix string) Option {
	return func(e *Engine) {
		if prefix != "" {
			e.options.Prefix = prefix
		}
	}
}

// WithOptions replaces the whole configuration.
func WithOptions(opts Options) Option {
	return func(e *Engine) {
		e.options.StrictProxy = opts.StrictProxy
		if opts.Prefix != "" {
			e.options.Prefix = opts.Prefix
		}
	}
}

// WithLogger sets the logger used for step-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder reports every resolve and invoke to r.
func WithRecorder(r trace.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithSession fixes the session token stamped on recorded steps.
// Without it a UUIDv7 token is generated when a recorder is set.
func WithSession(token string) Option {
	return func(e *Engine) {
		e.session = token
	}
}

// WithClock sets the sequencer used to number recorded steps.
func WithClock(c trace.Sequencer) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithOperation adds a meta-operation, replacing a built-in one of the same
// name.
func WithOperation(op *Operation) Option {
	return func(e *Engine) {
		if op != nil {
			e.ops[op.Name] = op
		}
	}
}
