package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario drives one chain over a registered target and asserts on the
// resulting trace, store and proxy.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Target names the proxy the chain starts with (see Targets).
	Target string `yaml:"target" json:"target"`

	// Options configures the chain. Omitted fields keep chain defaults.
	Options *ScenarioOptions `yaml:"options,omitempty" json:"options,omitempty"`

	// Session is an optional fixed session token. Defaults to
	// testutil.DefaultSession for in-memory runs so golden files are
	// stable, and to a fresh UUIDv7 when recording into a database file.
	Session string `yaml:"session,omitempty" json:"session,omitempty"`

	// Steps run in order against one chain.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions validate the final trace, store and proxy.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// ScenarioOptions mirrors chain.Options. StrictProxy is a pointer so an
// omitted field keeps the chain default (strict).
type ScenarioOptions struct {
	StrictProxy *bool  `yaml:"strict_proxy,omitempty" json:"strict_proxy,omitempty"`
	Prefix      string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
}

// Step is one attribute access, one call, or an access followed by a call.
//
//	- attr: create          # resolve only
//	- attr: create          # resolve then call
//	  args: [square]
//	- call: true            # call whatever was resolved last
type Step struct {
	// Attr is the key to resolve. Empty means "call the current value".
	Attr string `yaml:"attr,omitempty" json:"attr,omitempty"`

	// Call forces an invoke when there are no arguments.
	Call bool `yaml:"call,omitempty" json:"call,omitempty"`

	// Args are positional call arguments.
	Args []any `yaml:"args,omitempty" json:"args,omitempty"`

	// Kwargs are keyword call arguments.
	Kwargs map[string]any `yaml:"kwargs,omitempty" json:"kwargs,omitempty"`

	// Expect validates the outcome of the step. Nil means "must not fail".
	Expect *ExpectClause `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Invokes reports whether the step calls after resolving.
func (s Step) Invokes() bool {
	return s.Call || s.Args != nil || s.Kwargs != nil
}

// Label names the step in error messages.
func (s Step) Label() string {
	if s.Attr == "" {
		return "(call)"
	}
	return s.Attr
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is an error code (e.g. MISSING_MEMBER) or a substring of the
	// error message. The scenario continues after an expected error.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	// Bypass, when set, must match whether the call bypassed the chain.
	Bypass *bool `yaml:"bypass,omitempty" json:"bypass,omitempty"`

	// Result is compared with the bypass value of a bypassing call, or the
	// chain's current value otherwise. Nil means "don't check".
	Result any `yaml:"result,omitempty" json:"result,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a step with Key (and Args prefix) was recorded
	// - "trace_order": Keys were first recorded in this order
	// - "trace_count": Key was recorded exactly Count times
	// - "stored": the chain's store holds Value under Name
	// - "final_proxy": the proxy at the end snapshots to Value
	// - "final_state": a store table row matching Where has Expect
	Type string `yaml:"type" json:"type"`

	// Key is the chain key (trace_contains, trace_count).
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	// Kind restricts trace assertions to "resolve" or "invoke" steps.
	// Defaults to "invoke" when Args is set and "resolve" otherwise.
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Args are the expected leading call arguments (trace_contains).
	Args []any `yaml:"args,omitempty" json:"args,omitempty"`

	// Keys is the expected key order (trace_order).
	Keys []string `yaml:"keys,omitempty" json:"keys,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Name is the stored value name (stored).
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Value is the expected value (stored, final_proxy).
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Table is the store table (final_state).
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// Where filters the table (final_state). All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty" json:"where,omitempty"`

	// Expect contains expected column values (final_state, subset match).
	Expect map[string]any `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertStored        = "stored"
	AssertFinalProxy    = "final_proxy"
	AssertFinalState    = "final_state"
)

//go:embed schema.cue
var scenarioSchema string

// LoadScenario reads a scenario file. ".cue" files are checked against the
// scenario schema; anything else is parsed as YAML.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".cue") {
		data, err = cueToJSON(path, data)
		if err != nil {
			return nil, err
		}
	}

	return ParseScenario(data)
}

// ParseScenario parses YAML (or JSON) scenario data.
// Unknown fields are rejected so typos like "assertion:" fail loudly.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// cueToJSON unifies a CUE scenario with the #Scenario schema and exports it
// as JSON, which the YAML decoder reads as-is.
func cueToJSON(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(scenarioSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("scenario schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	out, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE: %w", err)
	}
	return out, nil
}

// validateScenario checks required fields and per-assertion requirements.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Target == "" {
		return fmt.Errorf("target is required")
	}
	if _, ok := targets[s.Target]; !ok {
		return fmt.Errorf("unknown target %q (known: %s)", s.Target, strings.Join(Targets(), ", "))
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Attr == "" && !step.Invokes() {
			return fmt.Errorf("steps[%d]: attr or a call is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Kind {
	case "", "resolve", "invoke":
	default:
		return fmt.Errorf("assertions[%d]: kind must be resolve or invoke, got %q", index, a.Kind)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Keys) == 0 {
			return fmt.Errorf("assertions[%d]: keys list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertStored:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for stored", index)
		}
	case AssertFinalProxy:
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
