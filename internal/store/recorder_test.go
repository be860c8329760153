package store

import (
	"context"
	"testing"

	"github.com/roach88/fluentchain/internal/chain"
	"github.com/roach88/fluentchain/internal/shapes"
	"github.com/roach88/fluentchain/internal/trace"
)

func TestRecorder_RecordsChainSteps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s1", 0)

	c := chain.New(shapes.New(),
		chain.WithRecorder(s.Recorder(ctx)),
		chain.WithSession("s1"),
		chain.WithClock(trace.NewClock()),
	)
	out, err := c.
		Do("create", "square", 3).
		Do("chain_store", "sq").
		Exit()
	if err != nil {
		t.Fatalf("chain failed: %v", err)
	}
	if out.(*shapes.Shapes).Len() != 1 {
		t.Fatalf("expected one shape")
	}

	steps, err := s.ReadSteps(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 6 {
		t.Fatalf("got %d steps, want 6", len(steps))
	}

	wantKeys := []string{"create", "create", "chain_store", "chain_store", "chain_exit", "chain_exit"}
	for i, ev := range steps {
		if ev.Key != wantKeys[i] {
			t.Errorf("steps[%d].Key = %q, want %q", i, ev.Key, wantKeys[i])
		}
	}

	// square result snapshot, with 3.0 read back as an integer
	res, ok := steps[1].Result.(map[string]any)
	if !ok || res["Length"] != int64(3) {
		t.Errorf("create result = %#v", steps[1].Result)
	}
	if !steps[5].Bypass {
		t.Error("exit step should be a bypass")
	}
}

func TestRecorder_ErrorWhenSessionMissing(t *testing.T) {
	s := createTestStore(t)
	rec := s.Recorder(context.Background())

	ev := createTestStep(t, "nope", 1, trace.KindResolve, "x")
	if err := rec.Record(ev); err == nil {
		t.Error("Record() should fail without a session row")
	}
}
