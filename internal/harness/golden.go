package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/fluentchain/internal/trace"
)

// TraceSnapshot captures everything a scenario run produced that is stable
// between runs. Step IDs are left out: they are derived from the other
// fields and would only make golden diffs noisier.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Session      string         `json:"session"`
	Trace        []trace.Event  `json:"trace"`
	Stored       map[string]any `json:"stored"`
	FinalProxy   any            `json:"final_proxy"`
}

// NewTraceSnapshot builds the snapshot of a finished run.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		Session:      result.Session,
		Trace:        result.Trace,
		Stored:       result.Stored,
		FinalProxy:   result.FinalProxy,
	}
}

// toCanonicalMap converts a TraceSnapshot to plain values for
// trace.MarshalCanonical.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		eventMap := map[string]any{
			"seq":         ev.Seq,
			"kind":        ev.Kind,
			"key":         ev.Key,
			"result":      ev.Result,
			"bypass":      ev.Bypass,
			"proxy_depth": int64(ev.ProxyDepth),
		}
		if ev.Args != nil {
			eventMap["args"] = ev.Args
		}
		if ev.Kwargs != nil {
			eventMap["kwargs"] = ev.Kwargs
		}
		if ev.Error != "" {
			eventMap["error"] = ev.Error
		}
		traceList[i] = eventMap
	}

	stored := make(map[string]any, len(s.Stored))
	for k, v := range s.Stored {
		stored[k] = v
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"session":       s.Session,
		"trace":         traceList,
		"stored":        stored,
		"final_proxy":   s.FinalProxy,
	}
}

// MarshalGolden renders the snapshot as canonical JSON followed by a
// newline.
func (s *TraceSnapshot) MarshalGolden() ([]byte, error) {
	out, err := trace.MarshalCanonical(s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. A snapshot mismatch fails t
// through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewTraceSnapshot(scenarioName, result)
	data, err := snapshot.MarshalGolden()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
