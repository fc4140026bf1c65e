package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/counterslot/internal/ir"
)

// Tx is a write transaction obtained from Store.WithTx.
type Tx struct {
	tx *sql.Tx
}

// ReadAccount reads the record at addr inside the transaction.
// found is false when no record occupies the address.
func (t *Tx) ReadAccount(ctx context.Context, addr ir.Address) (rec ir.Record, found bool, err error) {
	return readAccount(ctx, t.tx, addr)
}

// NextSeq returns the seq the next appended event must carry: one past the
// highest seq in the log. Reading it inside the write transaction keeps seqs
// dense and unique across every writer of the database.
func (t *Tx) NextSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

// CreateAccount claims addr for rec.Owner with the encoded initial value.
// Uses ON CONFLICT(address) DO NOTHING: when the slot is already occupied the
// existing row is left untouched and inserted is false.
func (t *Tx) CreateAccount(ctx context.Context, rec ir.Record) (inserted bool, err error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts
		(address, owner, bump, data, created_seq, updated_seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`,
		rec.Address.String(),
		rec.Owner.String(),
		int(rec.Bump),
		ir.EncodeCounterAccount(rec.Value),
		rec.CreatedSeq,
		rec.UpdatedSeq,
	)
	if err != nil {
		return false, fmt.Errorf("create account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create account: rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// WriteValue overwrites the counter value at addr. The owner column is never
// touched; it is fixed at creation.
func (t *Tx) WriteValue(ctx context.Context, addr ir.Address, value uint8, seq int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET data = ?, updated_seq = ?
		WHERE address = ?
	`,
		ir.EncodeCounterAccount(value),
		seq,
		addr.String(),
	)
	if err != nil {
		return fmt.Errorf("write value: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write value: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("write value: no account at %s", addr)
	}

	return nil
}

// AppendEvent appends a notification to the event log.
// The referenced account must exist (foreign key constraint).
func (t *Tx) AppendEvent(ctx context.Context, ev ir.Event) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO events
		(seq, id, kind, address, owner, value, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		ev.Seq,
		ev.ID,
		string(ev.Kind),
		ev.Address.String(),
		ev.Owner.String(),
		int(ev.Value),
		ev.Message,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
