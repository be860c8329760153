package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/fluentchain/internal/trace"
)

const stepColumns = `id, session, seq, kind, key, args, kwargs, result, bypass, error, proxy_depth`

// ReadSteps returns every step of a session in seq order.
// Returns an empty slice (not nil) when the session has no steps.
func (s *Store) ReadSteps(ctx context.Context, session string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+stepColumns+`
		FROM steps
		WHERE session = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []trace.Event{}
	for rows.Next() {
		ev, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// ReadStep returns a single step by ID. Returns sql.ErrNoRows if not found.
func (s *Store) ReadStep(ctx context.Context, id string) (trace.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+stepColumns+`
		FROM steps
		WHERE id = ?
	`, id)
	return scanStep(row)
}

// ReadSession returns a session by token. Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, token string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT token, target, created_seq, strict_proxy, prefix FROM sessions WHERE token = ?
	`, token).Scan(&sess.Token, &sess.Target, &sess.CreatedSeq, &sess.StrictProxy, &sess.Prefix)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ListSessions returns all sessions ordered by created_seq, then token.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, target, created_seq, strict_proxy, prefix
		FROM sessions
		ORDER BY created_seq ASC, token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.Token, &sess.Target, &sess.CreatedSeq, &sess.StrictProxy, &sess.Prefix); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadStoredValues returns the stored values of a session.
func (s *Store) ReadStoredValues(ctx context.Context, session string) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value FROM stored_values WHERE session = ? ORDER BY name
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query stored values: %w", err)
	}
	defer rows.Close()

	values := map[string]any{}
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan stored value: %w", err)
		}
		v, err := unmarshalValue(raw)
		if err != nil {
			return nil, fmt.Errorf("stored value %s: %w", name, err)
		}
		values[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored values: %w", err)
	}
	return values, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStep(row scanner) (trace.Event, error) {
	var ev trace.Event
	var args, kwargs, result string
	err := row.Scan(
		&ev.ID,
		&ev.Session,
		&ev.Seq,
		&ev.Kind,
		&ev.Key,
		&args,
		&kwargs,
		&result,
		&ev.Bypass,
		&ev.Error,
		&ev.ProxyDepth,
	)
	if err == sql.ErrNoRows {
		return trace.Event{}, err
	}
	if err != nil {
		return trace.Event{}, fmt.Errorf("scan step: %w", err)
	}

	if ev.Args, err = unmarshalValue(args); err != nil {
		return trace.Event{}, fmt.Errorf("step %s args: %w", ev.ID, err)
	}
	if ev.Kwargs, err = unmarshalValue(kwargs); err != nil {
		return trace.Event{}, fmt.Errorf("step %s kwargs: %w", ev.ID, err)
	}
	if ev.Result, err = unmarshalValue(result); err != nil {
		return trace.Event{}, fmt.Errorf("step %s result: %w", ev.ID, err)
	}
	return ev, nil
}
