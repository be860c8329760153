package harness

import (
	"context"
	"fmt"

	"github.com/roach88/fluentchain/internal/chain"
	"github.com/roach88/fluentchain/internal/store"
	"github.com/roach88/fluentchain/internal/testutil"
	"github.com/roach88/fluentchain/internal/trace"
)

// ReplayResult reports whether a recorded session replays identically.
type ReplayResult struct {
	Session       string           `json:"session"`
	Target        string           `json:"target"`
	Steps         int              `json:"steps"`
	Deterministic bool             `json:"deterministic"`
	Mismatches    []ReplayMismatch `json:"mismatches,omitempty"`
}

// ReplayMismatch is one field of one step that came out differently.
type ReplayMismatch struct {
	Seq      int64  `json:"seq"`
	Field    string `json:"field"`
	Recorded any    `json:"recorded"`
	Replayed any    `json:"replayed"`
}

// Replay re-drives the steps of a recorded session against a fresh
// instance of its target and compares every replayed step with the
// recorded one.
//
// Calls are driven from the recorded snapshots, so a session that passed
// live Go values a snapshot cannot rebuild (tap actions, for example)
// reports mismatches rather than failing.
func Replay(ctx context.Context, st *store.Store, session string) (*ReplayResult, error) {
	sess, err := st.ReadSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", session, err)
	}
	recorded, err := st.ReadSteps(ctx, session)
	if err != nil {
		return nil, err
	}

	target, err := NewTarget(sess.Target)
	if err != nil {
		return nil, err
	}

	rec := trace.NewMemoryRecorder()
	engine := chain.NewEngine(target,
		chain.WithStrictProxy(sess.StrictProxy),
		chain.WithPrefix(sess.Prefix),
		chain.WithRecorder(rec),
		chain.WithSession(sess.Token),
		chain.WithClock(testutil.NewDeterministicClockAt(sess.CreatedSeq)),
	)

	for _, ev := range recorded {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch ev.Kind {
		case trace.KindResolve:
			_ = engine.Resolve(ev.Key)
		case trace.KindInvoke:
			args, _ := ev.Args.([]any)
			kwargs, _ := ev.Kwargs.(map[string]any)
			_, _, _ = engine.Invoke(args, kwargs)
		}
	}

	result := &ReplayResult{
		Session: sess.Token,
		Target:  sess.Target,
		Steps:   len(recorded),
	}
	result.Mismatches = compareSteps(recorded, rec.Events())
	result.Deterministic = len(result.Mismatches) == 0
	return result, nil
}

// compareSteps lists the differences between two step sequences.
func compareSteps(recorded, replayed []trace.Event) []ReplayMismatch {
	var out []ReplayMismatch
	add := func(seq int64, field string, a, b any) {
		out = append(out, ReplayMismatch{Seq: seq, Field: field, Recorded: a, Replayed: b})
	}

	if len(recorded) != len(replayed) {
		add(0, "steps", len(recorded), len(replayed))
	}

	n := min(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		a, b := recorded[i], replayed[i]
		if a.ID != b.ID {
			add(a.Seq, "id", a.ID, b.ID)
		}
		if !valuesEqual(a.Result, b.Result) {
			add(a.Seq, "result", a.Result, b.Result)
		}
		if a.Bypass != b.Bypass {
			add(a.Seq, "bypass", a.Bypass, b.Bypass)
		}
		if a.Error != b.Error {
			add(a.Seq, "error", a.Error, b.Error)
		}
		if a.ProxyDepth != b.ProxyDepth {
			add(a.Seq, "proxy_depth", a.ProxyDepth, b.ProxyDepth)
		}
	}
	return out
}
