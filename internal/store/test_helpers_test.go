package store

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"

	"github.com/roach88/counterslot/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testOwner returns a deterministic identity for n.
func testOwner(n byte) ir.Identity {
	var id ir.Identity
	sum := sha256.Sum256([]byte{'o', n})
	copy(id[:], sum[:])
	return id
}

// testAddress returns a deterministic address for owner. It stands in for a
// derived address; the store does not care how addresses are produced.
func testAddress(owner ir.Identity) ir.Address {
	var addr ir.Address
	sum := sha256.Sum256(append([]byte("addr"), owner[:]...))
	copy(addr[:], sum[:])
	return addr
}

// seedAccount creates an account for owner with an "initialized" event at
// seq and returns the stored record.
func seedAccount(t *testing.T, s *Store, owner ir.Identity, seq int64) ir.Record {
	t.Helper()
	if seq == 0 {
		last, err := s.LastSeq(context.Background())
		if err != nil {
			t.Fatalf("LastSeq() failed: %v", err)
		}
		seq = last + 1
	}

	rec := ir.Record{
		Address:    testAddress(owner),
		Owner:      owner,
		Bump:       255,
		CreatedSeq: seq,
		UpdatedSeq: seq,
	}
	ev, err := ir.NewEvent(ir.EventInitialized, rec, seq)
	if err != nil {
		t.Fatalf("NewEvent() failed: %v", err)
	}

	err = s.WithTx(context.Background(), func(tx *Tx) error {
		if _, err := tx.CreateAccount(context.Background(), rec); err != nil {
			return err
		}
		return tx.AppendEvent(context.Background(), ev)
	})
	if err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	return rec
}

// writeUpdate overwrites the value and appends an "updated" event.
func writeUpdate(t *testing.T, s *Store, rec ir.Record, value uint8, seq int64) ir.Record {
	t.Helper()
	rec.Value = value
	rec.UpdatedSeq = seq
	ev, err := ir.NewEvent(ir.EventUpdated, rec, seq)
	if err != nil {
		t.Fatalf("NewEvent() failed: %v", err)
	}

	err = s.WithTx(context.Background(), func(tx *Tx) error {
		if err := tx.WriteValue(context.Background(), rec.Address, value, seq); err != nil {
			return err
		}
		return tx.AppendEvent(context.Background(), ev)
	})
	if err != nil {
		t.Fatalf("write update failed: %v", err)
	}
	return rec
}
