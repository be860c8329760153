// Package harness runs chain scenarios as executable contract tests.
//
// A scenario wraps one registered target in a chain, drives it through a
// list of attribute accesses and calls, and then asserts on the recorded
// trace, the chain's store and the final proxy.
//
// # Scenario Format
//
// Scenarios are YAML or CUE files with the following structure:
//
//	name: two_shapes
//	description: "Create a square and a rectangle and sum their areas"
//	target: shapes
//	options:
//	  strict_proxy: true
//	steps:
//	  - attr: create
//	    args: [square]
//	  - attr: chain_promote_value
//	    call: true
//	  - attr: set_length
//	    args: [4]
//	  - attr: chain_exit
//	    call: true
//	    expect:
//	      bypass: true
//	assertions:
//	  - type: trace_contains
//	    key: create
//	    args: [square]
//	  - type: stored
//	    name: total
//	    value: 64
//
// CUE files are unified with the #Scenario definition in schema.cue before
// decoding, so type errors are reported with CUE positions.
//
// # Assertion Types
//
//   - trace_contains: a step with the key (and leading args) was recorded
//   - trace_order: keys were first recorded in the given order
//   - trace_count: a key was recorded exactly N times
//   - stored: the chain's store holds a value under a name
//   - final_proxy: the proxy at the end of the run snapshots to a value
//   - final_state: a row of a store table (sessions, steps, stored_values)
//     has the expected columns
//
// # Deterministic Testing
//
// Every run uses a fixed session token (testutil.DefaultSession unless the
// scenario names one), a testutil.DeterministicClock and a fresh in-memory
// SQLite store, so traces are byte-identical between runs and can be
// compared against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/two_shapes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
