// Package harness runs counter scenarios as executable conformance tests.
//
// A scenario names a set of actors, a sequence of operations they perform,
// and assertions over the outcome. Each scenario runs against a real
// counter.Program over a fresh in-memory store, so the trace it records is
// what the program actually committed.
//
// # Scenario Format
//
//	name: sequence
//	description: "Initialize then two updates"
//	actors: [alice, bob]
//	steps:
//	  - actor: alice
//	    op: initialize
//	  - actor: alice
//	    op: update
//	    value: 5
//	  - actor: bob
//	    op: update_account
//	    target: alice
//	    value: 9
//	    expect_error: NOT_OWNER
//	assertions:
//	  - type: final_value
//	    actor: alice
//	    value: 5
//	  - type: event_count
//	    kind: updated
//	    count: 1
//	  - type: event_order
//	    messages: ["counter initialized", "counter updated"]
//	  - type: absent
//	    actor: bob
//
// # Operations
//
//   - initialize: Initialize as actor
//   - update: Update actor's own slot to value
//   - update_account: update the slot derived for target, acting as actor
//
// # Assertion Types
//
//   - final_value: actor's slot holds value
//   - event_count: number of notifications, optionally of one kind
//   - event_order: notification messages in exact order
//   - absent: actor has no slot
//
// # Deterministic Testing
//
// Actor keys come from testutil.Key, the program ID from the embedded
// manifest, and event seqs from a fresh in-memory log starting at 1.
// Identical scenarios therefore produce byte-identical traces, which the
// golden helpers compare against testdata/golden.
package harness
