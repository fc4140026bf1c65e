package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/counterslot/internal/ir"
)

// DefaultEventPageSize bounds ReadEvents when the caller passes limit <= 0.
const DefaultEventPageSize = 100

// ReadAccount retrieves the record at addr.
// found is false when no record occupies the address.
func (s *Store) ReadAccount(ctx context.Context, addr ir.Address) (rec ir.Record, found bool, err error) {
	return readAccount(ctx, s.db, addr)
}

// ReadAccountByOwner retrieves the record owned by owner, if any.
func (s *Store) ReadAccountByOwner(ctx context.Context, owner ir.Identity) (rec ir.Record, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, owner, bump, data, created_seq, updated_seq
		FROM accounts
		WHERE owner = ?
		ORDER BY created_seq ASC
		LIMIT 1
	`, owner.String())

	rec, err = scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Record{}, false, nil
	}
	if err != nil {
		return ir.Record{}, false, fmt.Errorf("read account by owner: %w", err)
	}
	return rec, true, nil
}

// ListAccounts returns every record ordered by creation.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListAccounts(ctx context.Context) ([]ir.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, owner, bump, data, created_seq, updated_seq
		FROM accounts
		ORDER BY created_seq ASC, address COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		rec, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return records, nil
}

// ReadEvents returns up to limit events with seq > afterSeq, oldest first.
func (s *Store) ReadEvents(ctx context.Context, afterSeq int64, limit int) ([]ir.Event, error) {
	if limit <= 0 {
		limit = DefaultEventPageSize
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, kind, address, owner, value, message
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return collectEvents(rows)
}

// ReadEventsForAddress returns every event for addr, oldest first.
func (s *Store) ReadEventsForAddress(ctx context.Context, addr ir.Address) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, kind, address, owner, value, message
		FROM events
		WHERE address = ?
		ORDER BY seq ASC
	`, addr.String())
	if err != nil {
		return nil, fmt.Errorf("query events for address: %w", err)
	}
	return collectEvents(rows)
}

// LastSeq returns the highest event seq, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

func readAccount(ctx context.Context, q querier, addr ir.Address) (ir.Record, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT address, owner, bump, data, created_seq, updated_seq
		FROM accounts
		WHERE address = ?
	`, addr.String())

	rec, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Record{}, false, nil
	}
	if err != nil {
		return ir.Record{}, false, fmt.Errorf("read account %s: %w", addr, err)
	}
	return rec, true, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanAccount scans an accounts row into a Record, decoding the account data.
func scanAccount(row scanner) (ir.Record, error) {
	var rec ir.Record
	var addr, owner string
	var bump int
	var data []byte

	if err := row.Scan(&addr, &owner, &bump, &data, &rec.CreatedSeq, &rec.UpdatedSeq); err != nil {
		return ir.Record{}, err
	}

	var err error
	if rec.Address, err = ir.ParseAddress(addr); err != nil {
		return ir.Record{}, fmt.Errorf("scan account: %w", err)
	}
	if rec.Owner, err = ir.ParseIdentity(owner); err != nil {
		return ir.Record{}, fmt.Errorf("scan account: %w", err)
	}
	if rec.Value, err = ir.DecodeCounterAccount(data); err != nil {
		return ir.Record{}, fmt.Errorf("scan account %s: %w", addr, err)
	}
	rec.Bump = uint8(bump)

	return rec, nil
}

// scanEvent scans an events row into an Event.
func scanEvent(row scanner) (ir.Event, error) {
	var ev ir.Event
	var kind, addr, owner string
	var value int

	if err := row.Scan(&ev.Seq, &ev.ID, &kind, &addr, &owner, &value, &ev.Message); err != nil {
		return ir.Event{}, fmt.Errorf("scan event: %w", err)
	}

	var err error
	if ev.Address, err = ir.ParseAddress(addr); err != nil {
		return ir.Event{}, fmt.Errorf("scan event: %w", err)
	}
	if ev.Owner, err = ir.ParseIdentity(owner); err != nil {
		return ir.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = ir.EventKind(kind)
	ev.Value = uint8(value)

	return ev, nil
}

func collectEvents(rows *sql.Rows) ([]ir.Event, error) {
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}
