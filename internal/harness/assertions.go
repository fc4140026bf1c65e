package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/counterslot/internal/counter"
	"github.com/roach88/counterslot/internal/ir"
)

// AssertionContext carries what assertions inspect.
type AssertionContext struct {
	Ctx     context.Context
	Program *counter.Program
	Actors  map[string]ir.Identity
	Events  []ir.Event
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		target := ""
		if event.Target != "" {
			target = " -> " + event.Target
		}
		value := ""
		if event.Value != nil {
			value = fmt.Sprintf("(%d)", *event.Value)
		}
		fmt.Fprintf(&buf, "  [%d] %s %s%s%s: %s\n", event.Step, event.Actor, event.Op, value, target, event.Outcome)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertFinalValue:
		return assertFinalValue(result.Trace, a, actx)
	case AssertEventCount:
		return assertEventCount(result.Trace, a, actx.Events)
	case AssertEventOrder:
		return assertEventOrder(result.Trace, a, actx.Events)
	case AssertAbsent:
		return assertAbsent(result.Trace, a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFinalValue checks the value stored in an actor's slot.
func assertFinalValue(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	rec, err := actx.Program.Get(actx.Ctx, actx.Actors[a.Actor])
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s holds %d", a.Actor, *a.Value),
			Actual:   err.Error(),
			Trace:    trace,
		}
	}
	if int(rec.Value) != *a.Value {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s holds %d", a.Actor, *a.Value),
			Actual:   fmt.Sprintf("%s holds %d", a.Actor, rec.Value),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventCount checks how many notifications were delivered.
func assertEventCount(trace []TraceEvent, a Assertion, events []ir.Event) error {
	n := 0
	for _, ev := range events {
		if a.Kind == "" || string(ev.Kind) == a.Kind {
			n++
		}
	}
	if n != *a.Count {
		what := "notifications"
		if a.Kind != "" {
			what = a.Kind + " notifications"
		}
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s", *a.Count, what),
			Actual:   fmt.Sprintf("%d %s", n, what),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventOrder checks the exact sequence of delivered messages.
func assertEventOrder(trace []TraceEvent, a Assertion, events []ir.Event) error {
	got := make([]string, len(events))
	for i, ev := range events {
		got[i] = ev.Message
	}
	if !slices.Equal(got, a.Messages) {
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: fmt.Sprintf("%q", a.Messages),
			Actual:   fmt.Sprintf("%q", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertAbsent checks that an actor has no slot.
func assertAbsent(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	rec, err := actx.Program.Get(actx.Ctx, actx.Actors[a.Actor])
	if counter.IsNotInitialized(err) {
		return nil
	}
	actual := fmt.Sprintf("%s holds %d", a.Actor, rec.Value)
	if err != nil {
		actual = err.Error()
	}
	return &AssertionError{
		Type:     AssertAbsent,
		Expected: fmt.Sprintf("%s has no counter", a.Actor),
		Actual:   actual,
		Trace:    trace,
	}
}
