package testutil

import "github.com/roach88/fluentchain/internal/trace"

var _ trace.SessionGenerator = (*FixedSessionGenerator)(nil)

// DefaultSession is the token used when a scenario does not name one.
const DefaultSession = "test-session-default"

// FixedSessionGenerator hands out the same session token every time, so
// recorded steps and their IDs are byte-identical between runs.
//
// Unlike trace.FixedGenerator, which walks a list of tokens, it never runs
// out.
type FixedSessionGenerator struct {
	token string
}

// NewFixedSessionGenerator returns a generator for token, or for
// DefaultSession when token is empty.
//
// Scenarios set the token with:
//
//	session: "test-session-00000000-0000-0000-0000-000000000001"
func NewFixedSessionGenerator(token string) *FixedSessionGenerator {
	if token == "" {
		token = DefaultSession
	}
	return &FixedSessionGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedSessionGenerator) Generate() string {
	return g.token
}
