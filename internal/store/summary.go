package store

import (
	"context"
	"fmt"

	"github.com/roach88/fluentchain/internal/trace"
)

// SessionSummary describes a recorded session at a glance.
type SessionSummary struct {
	Session      Session
	StepCount    int
	InvokeCount  int
	BypassCount  int
	ErrorCount   int
	LastSeq      int64
	MaxDepth     int
	StoredValues int
	LastError    string // Empty when the session never failed
}

// Summarize reads a session and its steps and counts what happened.
func (s *Store) Summarize(ctx context.Context, token string) (SessionSummary, error) {
	sess, err := s.ReadSession(ctx, token)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("summarize %s: %w", token, err)
	}

	steps, err := s.ReadSteps(ctx, token)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("summarize %s: %w", token, err)
	}

	sum := SessionSummary{Session: sess, StepCount: len(steps)}
	for _, ev := range steps {
		if ev.Kind == trace.KindInvoke {
			sum.InvokeCount++
		}
		if ev.Bypass {
			sum.BypassCount++
		}
		if ev.Error != "" {
			sum.ErrorCount++
			sum.LastError = ev.Error
		}
		if ev.Seq > sum.LastSeq {
			sum.LastSeq = ev.Seq
		}
		if ev.ProxyDepth > sum.MaxDepth {
			sum.MaxDepth = ev.ProxyDepth
		}
	}

	stored, err := s.ReadStoredValues(ctx, token)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("summarize %s: %w", token, err)
	}
	sum.StoredValues = len(stored)

	return sum, nil
}
