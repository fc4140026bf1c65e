// Package counter implements the counter lifecycle: one slot per owner,
// created once and overwritten by its owner thereafter.
//
// Each operation derives the owner's slot address, checks its preconditions,
// and applies the transition and its notification in a single store
// transaction. A failed operation changes nothing. Notifiers run after the
// commit, once per successful operation.
//
// Slot states:
//
//	Absent --Initialize--> Active --Update--> Active
package counter
