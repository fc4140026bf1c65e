package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudit_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	report, err := s.Audit(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, int64(0), report.LastSeq)
}

func TestAudit_ConsistentLog(t *testing.T) {
	s := createTestStore(t)
	rec := seedAccount(t, s, testOwner(1), 1)
	rec = writeUpdate(t, s, rec, 1, 2)
	writeUpdate(t, s, rec, 5, 3)
	seedAccount(t, s, testOwner(2), 4)

	report, err := s.Audit(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, int64(4), report.LastSeq)
	assert.Equal(t, 3, report.Accounts[0].Events)
	assert.Equal(t, uint8(5), report.Accounts[0].ReplayValue)
}

func TestAudit_DetectsValueDrift(t *testing.T) {
	s := createTestStore(t)
	rec := seedAccount(t, s, testOwner(1), 1)
	writeUpdate(t, s, rec, 4, 2)

	// Out-of-band write that bypasses the event log.
	_, err := s.db.Exec(`UPDATE accounts SET data = ? WHERE address = ?`, []byte{255, 176, 4, 245, 188, 253, 124, 25, 99}, rec.Address.String())
	require.NoError(t, err)

	report, err := s.Audit(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	require.Len(t, report.Accounts, 1)
	assert.Equal(t, uint8(99), report.Accounts[0].StoredValue)
	assert.Equal(t, uint8(4), report.Accounts[0].ReplayValue)
	assert.NotEmpty(t, report.Accounts[0].Problems)
}

func TestAudit_DetectsTamperedEvent(t *testing.T) {
	s := createTestStore(t)
	rec := seedAccount(t, s, testOwner(1), 1)
	writeUpdate(t, s, rec, 4, 2)

	_, err := s.db.Exec(`UPDATE events SET value = 5 WHERE seq = 2`)
	require.NoError(t, err)

	report, err := s.Audit(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Consistent)

	problems := report.Accounts[0].Problems
	assert.Contains(t, problems, "seq 2: event id does not match content")
}

func TestAudit_AccountWithoutEvents(t *testing.T) {
	s := createTestStore(t)
	owner := testOwner(1)

	_, err := s.db.Exec(`
		INSERT INTO accounts (address, owner, bump, data, created_seq, updated_seq)
		VALUES (?, ?, 255, ?, 1, 1)
	`, testAddress(owner).String(), owner.String(), []byte{255, 176, 4, 245, 188, 253, 124, 25, 0})
	require.NoError(t, err)

	report, err := s.Audit(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, []string{"no events recorded for account"}, report.Accounts[0].Problems)
}
