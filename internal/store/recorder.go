package store

import (
	"context"

	"github.com/roach88/fluentchain/internal/trace"
)

// Recorder adapts the store to trace.Recorder. Every recorded step is
// written with ctx.
//
// The session row must exist before the first step is recorded; see
// WriteSession.
func (s *Store) Recorder(ctx context.Context) trace.Recorder {
	return &stepRecorder{ctx: ctx, store: s}
}

type stepRecorder struct {
	ctx   context.Context
	store *Store
}

func (r *stepRecorder) Record(ev trace.Event) error {
	return r.store.WriteStep(r.ctx, ev)
}
