package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/counterslot/internal/auth"
	"github.com/roach88/counterslot/internal/derive"
	"github.com/roach88/counterslot/internal/ir"
	"github.com/roach88/counterslot/internal/notify"
	"github.com/roach88/counterslot/internal/store"
)

// DefaultLabel is the fixed seed mixed into every slot address.
const DefaultLabel = "Counter"

const tracerName = "github.com/roach88/counterslot/internal/counter"

// Result describes a committed transition.
type Result struct {
	Record ir.Record `json:"record"`
	Event  ir.Event  `json:"event"`
}

// Program is the counter lifecycle manager.
//
// Thread-safety: operations are serialized by an internal mutex so that at
// most one writer in this process waits on the store at a time. Reads (Get,
// Locate, Events) do not take the lock.
type Program struct {
	store    *store.Store
	deriver  *derive.Deriver
	label    []byte
	notifier notify.Notifier
	tracer   trace.Tracer
	logger   *slog.Logger

	mu sync.Mutex
}

// Option configures a Program.
type Option func(*Program)

// WithLabel sets the seed label. Default: DefaultLabel.
func WithLabel(label string) Option {
	return func(p *Program) {
		p.label = []byte(label)
	}
}

// WithNotifier sets the notifier called after every committed transition.
// Default: notify.Discard.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Program) {
		p.notifier = n
	}
}

// WithTracer sets the tracer used for operation spans.
// Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(p *Program) {
		p.tracer = t
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Program) {
		p.logger = l
	}
}

// New creates a Program over st.
//
// Event seqs are assigned by the store inside each write transaction, so any
// number of programs (and processes) may share one database file and the
// log stays dense and ordered across restarts.
func New(ctx context.Context, st *store.Store, d *derive.Deriver, opts ...Option) (*Program, error) {
	if st == nil {
		return nil, errors.New("counter: store is required")
	}
	if d == nil {
		return nil, errors.New("counter: deriver is required")
	}

	p := &Program{
		store:    st,
		deriver:  d,
		label:    []byte(DefaultLabel),
		notifier: notify.Discard,
		tracer:   otel.Tracer(tracerName),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = notify.Discard
	}

	if err := st.DB().PingContext(ctx); err != nil {
		return nil, fmt.Errorf("counter: store unavailable: %w", err)
	}

	return p, nil
}

// Label returns the seed label.
func (p *Program) Label() string {
	return string(p.label)
}

// Deriver returns the address deriver.
func (p *Program) Deriver() *derive.Deriver {
	return p.deriver
}

// Locate derives the slot address for owner and the bump that produced it.
func (p *Program) Locate(owner ir.Identity) (ir.Address, uint8, error) {
	return Locate(p.deriver, string(p.label), owner)
}

// Locate derives owner's slot under label without a store. Failures carry
// CodeDerivationFailed.
func Locate(d *derive.Deriver, label string, owner ir.Identity) (ir.Address, uint8, error) {
	addr, bump, err := d.CounterAddress([]byte(label), owner)
	if err != nil {
		return ir.Address{}, 0, newError(ErrDerivationFailed, ir.Address{}, owner, err)
	}
	return addr, bump, nil
}

// Initialize creates the caller's slot with value 0.
//
// Fails with CodeAlreadyInitialized if the slot is occupied and with
// CodeDerivationFailed if no safe address exists. On success the
// "counter initialized" notification is persisted and delivered.
func (p *Program) Initialize(ctx context.Context, caller auth.Caller) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "counter.Initialize")
	defer span.End()

	if err := requireCaller(caller); err != nil {
		return Result{}, p.reject(span, "initialize", err)
	}
	owner := caller.Identity()
	span.SetAttributes(attribute.String("counter.owner", owner.String()))

	addr, bump, err := p.Locate(owner)
	if err != nil {
		return Result{}, p.reject(span, "initialize", err)
	}
	span.SetAttributes(attribute.String("counter.address", addr.String()))

	p.mu.Lock()
	defer p.mu.Unlock()

	var result Result
	err = p.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, found, err := tx.ReadAccount(ctx, addr); err != nil {
			return err
		} else if found {
			return newError(ErrAlreadyInitialized, addr, owner, nil)
		}

		seq, err := tx.NextSeq(ctx)
		if err != nil {
			return err
		}
		rec := ir.Record{
			Address:    addr,
			Owner:      owner,
			Bump:       bump,
			Value:      0,
			CreatedSeq: seq,
			UpdatedSeq: seq,
		}

		inserted, err := tx.CreateAccount(ctx, rec)
		if err != nil {
			return err
		}
		if !inserted {
			return newError(ErrAlreadyInitialized, addr, owner, nil)
		}

		ev, err := ir.NewEvent(ir.EventInitialized, rec, seq)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}

		result = Result{Record: rec, Event: ev}
		return nil
	})
	if err != nil {
		return Result{}, p.reject(span, "initialize", err)
	}

	p.commit(ctx, span, result)
	return result, nil
}

// Update overwrites the value in the caller's own slot.
//
// Fails with CodeNotInitialized if the slot is absent and with CodeNotOwner
// if the stored owner differs from the caller. Because the address is
// derived from the caller, the owner check only fails when the store holds
// a slot written under a different owner.
func (p *Program) Update(ctx context.Context, caller auth.Caller, value uint8) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "counter.Update")
	defer span.End()

	if err := requireCaller(caller); err != nil {
		return Result{}, p.reject(span, "update", err)
	}

	addr, _, err := p.Locate(caller.Identity())
	if err != nil {
		return Result{}, p.reject(span, "update", err)
	}

	return p.update(ctx, span, caller, addr, value)
}

// UpdateAccount overwrites the value at an explicit slot address.
//
// This is the form a host uses when the request names the account directly.
// An address other than the caller's own reaches the stored owner check and
// fails with CodeNotOwner.
func (p *Program) UpdateAccount(ctx context.Context, caller auth.Caller, addr ir.Address, value uint8) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "counter.UpdateAccount")
	defer span.End()

	if err := requireCaller(caller); err != nil {
		return Result{}, p.reject(span, "update", err)
	}

	return p.update(ctx, span, caller, addr, value)
}

func (p *Program) update(ctx context.Context, span trace.Span, caller auth.Caller, addr ir.Address, value uint8) (Result, error) {
	owner := caller.Identity()
	span.SetAttributes(
		attribute.String("counter.owner", owner.String()),
		attribute.String("counter.address", addr.String()),
		attribute.Int("counter.value", int(value)),
	)

	p.mu.Lock()
	defer p.mu.Unlock()

	var result Result
	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		rec, found, err := tx.ReadAccount(ctx, addr)
		if err != nil {
			return err
		}
		if !found {
			return newError(ErrNotInitialized, addr, owner, nil)
		}
		if rec.Owner != owner {
			return newError(ErrNotOwner, addr, owner, nil)
		}

		seq, err := tx.NextSeq(ctx)
		if err != nil {
			return err
		}
		if err := tx.WriteValue(ctx, addr, value, seq); err != nil {
			return err
		}
		rec.Value = value
		rec.UpdatedSeq = seq

		ev, err := ir.NewEvent(ir.EventUpdated, rec, seq)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}

		result = Result{Record: rec, Event: ev}
		return nil
	})
	if err != nil {
		return Result{}, p.reject(span, "update", err)
	}

	p.commit(ctx, span, result)
	return result, nil
}

// Get returns the record in owner's slot.
// Fails with CodeNotInitialized if the slot is absent.
func (p *Program) Get(ctx context.Context, owner ir.Identity) (ir.Record, error) {
	addr, _, err := p.Locate(owner)
	if err != nil {
		return ir.Record{}, err
	}
	return p.GetAccount(ctx, addr)
}

// GetAccount returns the record at addr.
func (p *Program) GetAccount(ctx context.Context, addr ir.Address) (ir.Record, error) {
	rec, found, err := p.store.ReadAccount(ctx, addr)
	if err != nil {
		return ir.Record{}, err
	}
	if !found {
		return ir.Record{}, newError(ErrNotInitialized, addr, ir.Identity{}, nil)
	}
	return rec, nil
}

// Events returns committed events with seq > after, oldest first.
func (p *Program) Events(ctx context.Context, after int64, limit int) ([]ir.Event, error) {
	return p.store.ReadEvents(ctx, after, limit)
}

// commit logs and delivers a committed transition.
func (p *Program) commit(ctx context.Context, span trace.Span, r Result) {
	span.SetAttributes(attribute.Int64("counter.seq", r.Event.Seq))
	span.SetStatus(codes.Ok, "")

	p.logger.InfoContext(ctx, "counter transition committed",
		"kind", string(r.Event.Kind),
		"address", r.Record.Address.String(),
		"owner", r.Record.Owner.String(),
		"value", r.Record.Value,
		"seq", r.Event.Seq,
	)

	p.notifier.Notify(ctx, r.Event)
}

// reject records a failed operation on the span and log, then returns err.
func (p *Program) reject(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if code := Code(err); code != "" {
		span.SetAttributes(attribute.String("counter.error_code", string(code)))
		p.logger.Debug("counter operation rejected", "op", op, "code", string(code))
	} else {
		p.logger.Warn("counter operation failed", "op", op, "error", err)
	}
	return err
}

func requireCaller(caller auth.Caller) error {
	if !caller.Authenticated() {
		return fmt.Errorf("counter: %w", auth.ErrUnauthenticated)
	}
	return nil
}
