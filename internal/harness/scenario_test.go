package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	data := []byte(`
name: basic
description: "Resolve and call one member"
target: square
options:
  strict_proxy: false
  prefix: "fc_"
steps:
  - attr: set_length
    args: [3]
  - attr: area
    call: true
    expect:
      result: 9
assertions:
  - type: trace_contains
    key: area
`)

	s, err := ParseScenario(data)
	require.NoError(t, err)

	assert.Equal(t, "basic", s.Name)
	assert.Equal(t, "square", s.Target)
	require.NotNil(t, s.Options)
	require.NotNil(t, s.Options.StrictProxy)
	assert.False(t, *s.Options.StrictProxy)
	assert.Equal(t, "fc_", s.Options.Prefix)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, []any{3}, s.Steps[0].Args)
	assert.True(t, s.Steps[0].Invokes())
	assert.True(t, s.Steps[1].Invokes())
	assert.Equal(t, 9, s.Steps[1].Expect.Result)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertTraceContains, s.Assertions[0].Type)
}

func TestParseScenario_UnknownField(t *testing.T) {
	data := []byte(`
name: basic
description: "d"
target: square
flow: []
steps:
  - attr: area
`)

	_, err := ParseScenario(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\ntarget: square\nsteps: [{attr: area}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\ntarget: square\nsteps: [{attr: area}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing target",
			yaml:    "name: n\ndescription: d\nsteps: [{attr: area}]\n",
			wantErr: "target is required",
		},
		{
			name:    "unknown target",
			yaml:    "name: n\ndescription: d\ntarget: hexagon\nsteps: [{attr: area}]\n",
			wantErr: `unknown target "hexagon"`,
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\ntarget: square\nsteps: []\n",
			wantErr: "steps list is required",
		},
		{
			name:    "empty step",
			yaml:    "name: n\ndescription: d\ntarget: square\nsteps: [{}]\n",
			wantErr: "steps[0]: attr or a call is required",
		},
		{
			name:    "assertion without type",
			yaml:    "name: n\ndescription: d\ntarget: square\nsteps: [{attr: area}]\nassertions: [{key: area}]\n",
			wantErr: "assertions[0]: type is required",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: n\ndescription: d\ntarget: square\nsteps: [{attr: area}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "bad kind",
			yaml:    "name: n\ndescription: d\ntarget: square\nsteps: [{attr: area}]\nassertions: [{type: trace_count, key: area, kind: call}]\n",
			wantErr: "kind must be resolve or invoke",
		},
		{
			name:    "trace_order without keys",
			yaml:    "name: n\ndescription: d\ntarget: square\nsteps: [{attr: area}]\nassertions: [{type: trace_order}]\n",
			wantErr: "keys list is required",
		},
		{
			name:    "stored without name",
			yaml:    "name: n\ndescription: d\ntarget: square\nsteps: [{attr: area}]\nassertions: [{type: stored, value: 1}]\n",
			wantErr: "name is required for stored",
		},
		{
			name:    "final_state without expect",
			yaml:    "name: n\ndescription: d\ntarget: square\nsteps: [{attr: area}]\nassertions: [{type: final_state, table: steps}]\n",
			wantErr: "expect is required for final_state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := ScenarioFiles("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Name)
			assert.NotEmpty(t, s.Steps)
		})
	}
}

func TestLoadScenario_CUE(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/record.cue")
	require.NoError(t, err)

	assert.Equal(t, "record_proxies", s.Name)
	assert.Equal(t, "record", s.Target)
	require.Len(t, s.Steps, 8)
	assert.Equal(t, "chain_setattr", s.Steps[0].Attr)
	assert.Equal(t, []any{"color", "red"}, s.Steps[0].Args)
	assert.Equal(t, "red", s.Steps[1].Expect.Result)
	assert.Len(t, s.Assertions, 4)
}

func TestLoadScenario_CUESchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	content := `
name:        "bad"
description: "count must not be negative"
target:      "square"
steps: [{attr: "area"}]
assertions: [{type: "trace_count", key: "area", count: -1}]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestLoadScenario_CUEClosedDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.cue")
	content := `
name:        "extra"
description: "flow is not a scenario field"
target:      "square"
flow:        []
steps: [{attr: "area"}]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestStep_Label(t *testing.T) {
	assert.Equal(t, "area", Step{Attr: "area"}.Label())
	assert.Equal(t, "(call)", Step{Call: true}.Label())
	assert.False(t, Step{Attr: "area"}.Invokes())
	assert.True(t, Step{Attr: "area", Kwargs: map[string]any{"x": 1}}.Invokes())
}

func TestTargets(t *testing.T) {
	names := Targets()
	assert.Equal(t, []string{"adder", "rectangle", "record", "shapes", "square", "triangle"}, names)

	for _, name := range names {
		target, err := NewTarget(name)
		require.NoError(t, err, name)
		assert.NotNil(t, target, name)
	}

	_, err := NewTarget("hexagon")
	require.Error(t, err)
}
