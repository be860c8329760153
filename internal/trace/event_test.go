package trace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRecorder struct{ err error }

func (f failingRecorder) Record(Event) error { return f.err }

func TestMemoryRecorder_KeepsOrder(t *testing.T) {
	r := NewMemoryRecorder()
	require.NoError(t, r.Record(Event{Seq: 1, Kind: KindResolve, Key: "create"}))
	require.NoError(t, r.Record(Event{Seq: 2, Kind: KindInvoke, Key: "create"}))

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, KindResolve, events[0].Kind)
	assert.Equal(t, KindInvoke, events[1].Kind)

	// Events returns a copy
	events[0].Key = "mutated"
	assert.Equal(t, "create", r.Events()[0].Key)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestMultiRecorder_FansOut(t *testing.T) {
	a := NewMemoryRecorder()
	b := NewMemoryRecorder()
	boom := errors.New("disk full")

	m := MultiRecorder{a, failingRecorder{err: boom}, b}
	err := m.Record(Event{Seq: 1})

	require.ErrorIs(t, err, boom)
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestStepID_Deterministic(t *testing.T) {
	id1, err := StepID("session-1", 1, KindResolve, "create")
	require.NoError(t, err)
	id2, err := StepID("session-1", 1, KindResolve, "create")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)

	id3, err := StepID("session-1", 2, KindResolve, "create")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}
