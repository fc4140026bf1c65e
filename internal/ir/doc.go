// Package ir provides the canonical domain types for counterslot.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// record, event, and address vocabulary at the bottom of the dependency graph.
//
// Key design constraints:
//   - Identity and Address are fixed 32-byte arrays, rendered as base58
//   - Record.Value is a single byte; arithmetic on it is never performed here
//   - Event IDs are content-addressed (SHA-256 with domain separation)
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
