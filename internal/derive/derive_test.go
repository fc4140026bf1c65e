package derive

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/counterslot/internal/ir"
)

var (
	testProgramID = ir.MustParseAddress("794WyttcZeD1xWA3aXN4er2DW4JhjS48qigdmGM2cbvL")
	testLabel     = []byte("Counter")
)

func sequentialIdentity() ir.Identity {
	var id ir.Identity
	for i := range id {
		id[i] = byte(i + 1)
	}
	return id
}

// Vectors computed independently from the published derivation scheme.
func TestCounterAddress_KnownVectors(t *testing.T) {
	var ones ir.Identity
	for i := range ones {
		ones[i] = 0xff
	}

	tests := []struct {
		name     string
		owner    ir.Identity
		wantAddr string
		wantBump uint8
	}{
		{"sequential bytes", sequentialIdentity(), "CgZxJ1iHxMD33pz6g7RwGWe8QmYFWJG4mUictWTTMwxz", 254},
		{"all zero", ir.Identity{}, "EkPTFgaV6443riegkzkXzNSuh6z3p89gSefZfHZUNf2v", 255},
		{"all 0xff", ones, "ELBWKwzXiXw7hRGxxDzmM8U8M8gviG9eLWjKLWTDnf51", 255},
	}

	d := New(testProgramID)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, bump, err := d.CounterAddress(testLabel, tt.owner)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, addr.String())
			assert.Equal(t, tt.wantBump, bump)
		})
	}
}

func TestCounterAddress_SkipsOnCurveBump(t *testing.T) {
	d := New(testProgramID)
	owner := sequentialIdentity()

	// Bump 255 lands on the curve for this owner, which is why 254 wins.
	_, err := d.CreateAddress([][]byte{testLabel, owner[:]}, 255)
	assert.ErrorIs(t, err, ErrOnCurve)
}

func TestCounterAddress_Deterministic(t *testing.T) {
	d := New(testProgramID)
	for i := 0; i < 32; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		owner, err := ir.IdentityFromPublicKey(pub)
		require.NoError(t, err)

		a1, b1, err := d.CounterAddress(testLabel, owner)
		require.NoError(t, err)
		a2, b2, err := New(testProgramID).CounterAddress(testLabel, owner)
		require.NoError(t, err)

		assert.Equal(t, a1, a2)
		assert.Equal(t, b1, b2)
		assert.True(t, d.Verify(testLabel, owner, b1, a1))
		assert.False(t, IsOnCurve(a1[:]), "derived address must not be a public key")
	}
}

func TestCounterAddress_DistinctOwners(t *testing.T) {
	d := New(testProgramID)
	seen := make(map[ir.Address]ir.Identity)

	for i := 0; i < 256; i++ {
		var owner ir.Identity
		sum := sha256.Sum256([]byte{byte(i)})
		copy(owner[:], sum[:])

		addr, _, err := d.CounterAddress(testLabel, owner)
		require.NoError(t, err)

		prev, dup := seen[addr]
		assert.False(t, dup, "owners %s and %s collided", prev, owner)
		seen[addr] = owner
	}
}

func TestCounterAddress_LabelAndProgramMatter(t *testing.T) {
	owner := sequentialIdentity()

	a1, _, err := New(testProgramID).CounterAddress(testLabel, owner)
	require.NoError(t, err)
	a2, _, err := New(testProgramID).CounterAddress([]byte("Other"), owner)
	require.NoError(t, err)
	a3, _, err := New(ir.Address{}).CounterAddress(testLabel, owner)
	require.NoError(t, err)

	assert.NotEqual(t, a1, a2)
	assert.NotEqual(t, a1, a3)
}

func TestVerify_WrongBump(t *testing.T) {
	d := New(testProgramID)
	owner := sequentialIdentity()

	addr, bump, err := d.CounterAddress(testLabel, owner)
	require.NoError(t, err)

	assert.False(t, d.Verify(testLabel, owner, bump-1, addr))
}

func TestFindAddress_SeedLimits(t *testing.T) {
	d := New(testProgramID)

	_, _, err := d.FindAddress([][]byte{make([]byte, MaxSeedLength+1)})
	assert.ErrorIs(t, err, ErrMaxSeedLength)

	seeds := make([][]byte, MaxSeeds)
	_, _, err = d.FindAddress(seeds)
	assert.ErrorIs(t, err, ErrTooManySeeds)

	_, _, err = d.FindAddress(make([][]byte, MaxSeeds-1))
	assert.NoError(t, err)
}

func TestCounterAddress_WrapsOwnerInError(t *testing.T) {
	d := New(testProgramID)
	owner := sequentialIdentity()

	_, _, err := d.CounterAddress(make([]byte, MaxSeedLength+1), owner)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxSeedLength))
	assert.Contains(t, err.Error(), owner.String())
}

func TestFindAddress_NoViableBump(t *testing.T) {
	calls := 0
	d := New(testProgramID, WithCurveCheck(func([]byte) bool {
		calls++
		return true
	}))

	_, _, err := d.FindAddress([][]byte{testLabel})
	assert.ErrorIs(t, err, ErrNoViableBump)
	assert.Equal(t, 256, calls, "every bump from 255 to 0 is tried")

	_, _, err = d.CounterAddress(testLabel, sequentialIdentity())
	assert.ErrorIs(t, err, ErrNoViableBump)

	_, err = d.CreateAddress([][]byte{testLabel}, 7)
	assert.ErrorIs(t, err, ErrOnCurve)
}

func TestFindAddress_CurveCheckPicksBump(t *testing.T) {
	// Reject the first three candidates; the search settles on bump 252.
	rejected := 0
	d := New(testProgramID, WithCurveCheck(func([]byte) bool {
		rejected++
		return rejected <= 3
	}))

	_, bump, err := d.FindAddress([][]byte{testLabel})
	require.NoError(t, err)
	assert.Equal(t, uint8(252), bump)
}

func TestIsOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	assert.True(t, IsOnCurve(pub), "a real public key is on the curve")
	assert.False(t, IsOnCurve(pub[:31]), "wrong length is never on the curve")
}
