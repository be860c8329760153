package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/fluentchain/internal/trace"
)

// Session is one recorded chain run. StrictProxy and Prefix are the engine
// options the steps were recorded under.
type Session struct {
	Token       string
	Target      string
	CreatedSeq  int64
	StrictProxy bool
	Prefix      string
}

// WriteSession inserts a session. Writing the same session twice is a
// no-op; reusing a token with a different target or options is an error,
// since the two runs' steps would end up in one log.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return fmt.Errorf("write session: empty token")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, target, created_seq, strict_proxy, prefix)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, sess.Token, sess.Target, sess.CreatedSeq, sess.StrictProxy, sess.Prefix)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return nil
	}

	existing, err := s.ReadSession(ctx, sess.Token)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if existing.Target != sess.Target || existing.StrictProxy != sess.StrictProxy || existing.Prefix != sess.Prefix {
		return fmt.Errorf("write session: %s already recorded for target %q (strict_proxy=%t, prefix=%q)",
			sess.Token, existing.Target, existing.StrictProxy, existing.Prefix)
	}
	return nil
}

// WriteStep inserts a recorded step. Duplicate step IDs are ignored, so
// replaying the same deterministic run twice leaves one copy.
//
// The step's session must already exist (foreign key constraint).
func (s *Store) WriteStep(ctx context.Context, ev trace.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("write step: seq %d has no id", ev.Seq)
	}

	args, err := marshalValue(ev.Args)
	if err != nil {
		return fmt.Errorf("write step: marshal args: %w", err)
	}
	kwargs, err := marshalValue(ev.Kwargs)
	if err != nil {
		return fmt.Errorf("write step: marshal kwargs: %w", err)
	}
	result, err := marshalValue(ev.Result)
	if err != nil {
		return fmt.Errorf("write step: marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO steps
		(id, session, seq, kind, key, args, kwargs, result, bypass, error, proxy_depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.Session,
		ev.Seq,
		ev.Kind,
		ev.Key,
		args,
		kwargs,
		result,
		ev.Bypass,
		ev.Error,
		ev.ProxyDepth,
	)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}
	return nil
}

// WriteStoredValues replaces the stored values of a session with values.
// Each value is snapshotted before it is written.
func (s *Store) WriteStoredValues(ctx context.Context, session string, values map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write stored values: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM stored_values WHERE session = ?`, session); err != nil {
		return fmt.Errorf("write stored values: clear: %w", err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, err := marshalValue(trace.Snapshot(values[name]))
		if err != nil {
			return fmt.Errorf("write stored values: %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stored_values (session, name, value) VALUES (?, ?, ?)
		`, session, name, value); err != nil {
			return fmt.Errorf("write stored values: %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write stored values: commit: %w", err)
	}
	return nil
}
