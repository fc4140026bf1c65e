package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/counterslot/internal/auth"
	"github.com/roach88/counterslot/internal/counter"
	"github.com/roach88/counterslot/internal/ir"
	"github.com/roach88/counterslot/internal/manifest"
	"github.com/roach88/counterslot/internal/notify"
	"github.com/roach88/counterslot/internal/store"
	"github.com/roach88/counterslot/internal/testutil"
)

// Harness executes one scenario against a live program.
type Harness struct {
	program  *counter.Program
	recorder *notify.Recorder
	actors   map[string]ir.Identity
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database and program
//  2. Execute steps, checking each outcome against expect_error
//  3. Evaluate assertions
//
// A returned error means the harness itself failed; scenario failures are
// reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	m, err := manifest.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	label := m.Seed
	if scenario.Label != "" {
		label = scenario.Label
	}

	recorder := notify.NewRecorder()
	program, err := counter.New(ctx, st, m.Deriver(),
		counter.WithLabel(label),
		counter.WithNotifier(recorder),
		counter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	h := &Harness{
		program:  program,
		recorder: recorder,
		actors:   make(map[string]ir.Identity, len(scenario.Actors)),
	}
	for _, name := range scenario.Actors {
		h.actors[name] = testutil.Identity(name)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	result.Notifications = recorder.Messages()
	if ok := countCommitted(result.Trace); ok != len(result.Notifications) {
		result.AddError(fmt.Sprintf("%d steps committed but %d notifications were delivered", ok, len(result.Notifications)))
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Program: program,
		Actors:  h.actors,
		Events:  recorder.Events(),
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep performs one step and appends it to the trace.
// Mismatched outcomes are recorded as scenario errors, not returned.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	caller := auth.Assume(h.actors[step.Actor])

	var res counter.Result
	var opErr error
	slotOwner := step.Actor

	switch step.Op {
	case OpInitialize:
		res, opErr = h.program.Initialize(ctx, caller)
	case OpUpdate:
		res, opErr = h.program.Update(ctx, caller, uint8(*step.Value))
	case OpUpdateAccount:
		slotOwner = step.Target
		addr, _, err := h.program.Locate(h.actors[step.Target])
		if err != nil {
			opErr = err
			break
		}
		res, opErr = h.program.UpdateAccount(ctx, caller, addr, uint8(*step.Value))
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	event := TraceEvent{
		Step:   index,
		Actor:  step.Actor,
		Op:     step.Op,
		Target: step.Target,
		Value:  step.Value,
	}

	switch {
	case opErr == nil:
		event.Outcome = OutcomeOK
		event.Seq = res.Event.Seq
		event.Kind = string(res.Event.Kind)
		event.Message = res.Event.Message
	case counter.Code(opErr) != "":
		event.Outcome = string(counter.Code(opErr))
	default:
		return opErr
	}

	stored, err := h.storedValue(ctx, slotOwner)
	if err != nil {
		return err
	}
	event.Stored = stored

	result.Trace = append(result.Trace, event)

	if event.Outcome == OutcomeOK && step.ExpectError != "" {
		result.AddError(fmt.Sprintf("steps[%d]: expected %s, but %s succeeded", index, step.ExpectError, step.Op))
	}
	if event.Outcome != OutcomeOK && event.Outcome != step.ExpectError {
		want := OutcomeOK
		if step.ExpectError != "" {
			want = step.ExpectError
		}
		result.AddError(fmt.Sprintf("steps[%d]: expected %s, got %s", index, want, event.Outcome))
	}

	return nil
}

// storedValue returns the value in actor's slot, or nil when absent.
func (h *Harness) storedValue(ctx context.Context, actor string) (*int, error) {
	rec, err := h.program.Get(ctx, h.actors[actor])
	if counter.Code(err) != "" {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := int(rec.Value)
	return &v, nil
}

func countCommitted(trace []TraceEvent) int {
	n := 0
	for _, ev := range trace {
		if ev.Outcome == OutcomeOK {
			n++
		}
	}
	return n
}
