package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/counterslot/internal/ir"
)

func TestCreateAccount_Inserted(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	owner := testOwner(1)

	rec := ir.Record{Address: testAddress(owner), Owner: owner, Bump: 254, CreatedSeq: 1, UpdatedSeq: 1}

	var inserted bool
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		inserted, err = tx.CreateAccount(ctx, rec)
		return err
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	got, found, err := s.ReadAccount(ctx, rec.Address)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)
}

func TestCreateAccount_SecondInsertIsRejectedWithoutOverwrite(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := seedAccount(t, s, testOwner(1), 1)
	rec = writeUpdate(t, s, rec, 9, 2)

	intruder := rec
	intruder.Owner = testOwner(2)
	intruder.Value = 0
	intruder.CreatedSeq = 3

	var inserted bool
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		inserted, err = tx.CreateAccount(ctx, intruder)
		return err
	})
	require.NoError(t, err)
	assert.False(t, inserted, "occupied address must not be claimed twice")

	got, _, err := s.ReadAccount(ctx, rec.Address)
	require.NoError(t, err)
	assert.Equal(t, rec.Owner, got.Owner)
	assert.Equal(t, uint8(9), got.Value)
}

func TestWriteValue_OverwritesAndKeepsOwner(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := seedAccount(t, s, testOwner(1), 1)

	writeUpdate(t, s, rec, 200, 2)

	got, found, err := s.ReadAccount(ctx, rec.Address)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint8(200), got.Value)
	assert.Equal(t, rec.Owner, got.Owner)
	assert.Equal(t, int64(1), got.CreatedSeq)
	assert.Equal(t, int64(2), got.UpdatedSeq)
}

func TestWriteValue_MissingAccount(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.WriteValue(ctx, testAddress(testOwner(1)), 1, 1)
	})
	assert.Error(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	owner := testOwner(1)
	rec := ir.Record{Address: testAddress(owner), Owner: owner, CreatedSeq: 1, UpdatedSeq: 1}
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.CreateAccount(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, found, err := s.ReadAccount(ctx, rec.Address)
	require.NoError(t, err)
	assert.False(t, found, "rolled back account must not be visible")
}

func TestWithTx_ReadsOwnWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	owner := testOwner(1)
	rec := ir.Record{Address: testAddress(owner), Owner: owner, CreatedSeq: 1, UpdatedSeq: 1}

	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.CreateAccount(ctx, rec); err != nil {
			return err
		}
		got, found, err := tx.ReadAccount(ctx, rec.Address)
		if err != nil {
			return err
		}
		assert.True(t, found)
		assert.Equal(t, owner, got.Owner)
		return nil
	})
	require.NoError(t, err)
}

func TestAppendEvent_DuplicateSeqFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := seedAccount(t, s, testOwner(1), 1)

	ev, err := ir.NewEvent(ir.EventUpdated, rec, 1)
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx *Tx) error {
		return tx.AppendEvent(ctx, ev)
	})
	assert.Error(t, err, "seq is the primary key")
}

func nextSeq(t *testing.T, s *Store) int64 {
	t.Helper()
	var seq int64
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		seq, err = tx.NextSeq(context.Background())
		return err
	})
	require.NoError(t, err)
	return seq
}

func TestNextSeq_FollowsLog(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t, int64(1), nextSeq(t, s), "empty log starts at 1")

	rec := seedAccount(t, s, testOwner(1), 0)
	assert.Equal(t, int64(2), nextSeq(t, s))

	writeUpdate(t, s, rec, 4, 2)
	assert.Equal(t, int64(3), nextSeq(t, s))
	assert.Equal(t, int64(3), nextSeq(t, s), "reading does not consume a seq")
}

func TestNextSeq_RolledBackWriteLeavesNoGap(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, testOwner(1), 0)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Tx) error {
		seq, err := tx.NextSeq(ctx)
		if err != nil {
			return err
		}
		rec := ir.Record{Address: testAddress(testOwner(2)), Owner: testOwner(2), Bump: 255, CreatedSeq: seq, UpdatedSeq: seq}
		if _, err := tx.CreateAccount(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(2), nextSeq(t, s))
}

func TestNextSeq_SeesOtherConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	s1, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s1.Close() })
	s2, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s2.Close() })

	seedAccount(t, s1, testOwner(1), 0)
	assert.Equal(t, int64(2), nextSeq(t, s2))

	seedAccount(t, s2, testOwner(2), 0)
	assert.Equal(t, int64(3), nextSeq(t, s1))

	report, err := s1.Audit(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 2, report.Total)
}
