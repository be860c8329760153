package harness

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/fluentchain/internal/store"
	"github.com/roach88/fluentchain/internal/trace"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Identifiers can't be bound as parameters, so they are checked instead.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			line := fmt.Sprintf("  [%d] %s %s", ev.Seq, ev.Kind, ev.Key)
			if ev.Args != nil {
				line += fmt.Sprintf(" %v", ev.Args)
			}
			if ev.Error != "" {
				line += " !! " + ev.Error
			}
			fmt.Fprintln(&buf, line)
		}
	}

	return buf.String()
}

// assertionKind picks the step kind a trace assertion looks at.
func assertionKind(a Assertion) string {
	switch {
	case a.Kind != "":
		return a.Kind
	case len(a.Args) > 0:
		return trace.KindInvoke
	default:
		return trace.KindResolve
	}
}

// assertTraceContains checks that a step with the key was recorded, and
// that its arguments start with the expected ones.
func assertTraceContains(events []trace.Event, assertion Assertion) error {
	kind := assertionKind(assertion)
	for _, ev := range events {
		if ev.Kind == kind && ev.Key == assertion.Key && matchArgs(ev.Args, assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s %s with args %v", kind, assertion.Key, assertion.Args),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

// assertTraceOrder checks that keys were first recorded in the given order.
// Other steps may come in between.
func assertTraceOrder(events []trace.Event, assertion Assertion) error {
	kind := assertionKind(assertion)
	positions := make(map[string]int)
	for i, ev := range events {
		if ev.Kind != kind {
			continue
		}
		if _, seen := positions[ev.Key]; !seen {
			positions[ev.Key] = i + 1 // 1-indexed for readability
		}
	}

	for _, key := range assertion.Keys {
		if positions[key] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all keys present: %v", assertion.Keys),
				Actual:   fmt.Sprintf("missing key: %s", key),
				Trace:    events,
			}
		}
	}

	for i := 1; i < len(assertion.Keys); i++ {
		prev, curr := assertion.Keys[i-1], assertion.Keys[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("keys in order: %v", assertion.Keys),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: events,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the key was recorded exactly Count times.
func assertTraceCount(events []trace.Event, assertion Assertion) error {
	kind := assertionKind(assertion)
	count := 0
	for _, ev := range events {
		if ev.Kind == kind && ev.Key == assertion.Key {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s steps for %s", assertion.Count, kind, assertion.Key),
			Actual:   fmt.Sprintf("%d steps", count),
			Trace:    events,
		}
	}
	return nil
}

func assertStored(result *Result, assertion Assertion) error {
	actual, ok := result.Stored[assertion.Name]
	if !ok {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("stored value %q", assertion.Name),
			Actual:   fmt.Sprintf("not stored (have %v)", sortedKeys(result.Stored)),
		}
	}
	if !valuesEqual(actual, assertion.Value) {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("%s = %v", assertion.Name, assertion.Value),
			Actual:   fmt.Sprintf("%s = %v", assertion.Name, actual),
		}
	}
	return nil
}

func assertFinalProxy(result *Result, assertion Assertion) error {
	if !valuesEqual(result.FinalProxy, assertion.Value) {
		return &AssertionError{
			Type:     AssertFinalProxy,
			Expected: fmt.Sprintf("%v", assertion.Value),
			Actual:   fmt.Sprintf("%v", result.FinalProxy),
		}
	}
	return nil
}

// assertFinalState checks that exactly one row of a store table matches
// Where and holds the expected column values.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = sqlValue(values[i])
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expected := assertion.Expect[key]
		actual, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !valuesEqual(actual, expected) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actual, actual),
			}
		}
	}

	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are sorted
// for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a scenario value to a value SQLite can bind.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case string, int, int64, float64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// sqlValue turns driver values into comparable scenario values.
func sqlValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchArgs checks that actual starts with the expected arguments.
func matchArgs(actual any, expected []any) bool {
	if len(expected) == 0 {
		return true
	}
	list, ok := actual.([]any)
	if !ok || len(list) < len(expected) {
		return false
	}
	for i, exp := range expected {
		if !valuesEqual(list[i], exp) {
			return false
		}
	}
	return true
}

// valuesEqual compares a snapshot value with a value decoded from a
// scenario file. Numbers compare by value whatever their Go type, and
// booleans match SQLite's 0/1.
func valuesEqual(actual, expected any) bool {
	actual = trace.Snapshot(actual)
	expected = trace.Snapshot(expected)

	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if a, ok := toFloat(actual); ok {
		if e, ok := toFloat(expected); ok {
			return a == e
		}
		if e, ok := expected.(bool); ok {
			return (a != 0) == e
		}
		return false
	}

	switch e := expected.(type) {
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !valuesEqual(a[i], e[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists || !valuesEqual(av, ev) {
				return false
			}
		}
		return true
	}

	return actual == expected
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides database access for final_state assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result and returns
// one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertStored:
			err = assertStored(result, assertion)
		case AssertFinalProxy:
			err = assertFinalProxy(result, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
