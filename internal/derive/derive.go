package derive

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/roach88/counterslot/internal/ir"
)

// Limits on seed material. The bump counts toward MaxSeeds.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

// addressMarker is appended to every preimage so derived addresses cannot
// collide with hashes computed for other purposes.
const addressMarker = "ProgramDerivedAddress"

var (
	// ErrMaxSeedLength is returned when a single seed exceeds MaxSeedLength.
	ErrMaxSeedLength = errors.New("seed exceeds maximum length")

	// ErrTooManySeeds is returned when seeds plus bump exceed MaxSeeds.
	ErrTooManySeeds = errors.New("too many seeds")

	// ErrOnCurve is returned by CreateAddress when the digest is a valid
	// curve point and therefore a key someone could hold.
	ErrOnCurve = errors.New("derived address lies on the ed25519 curve")

	// ErrNoViableBump is returned by FindAddress when every bump lands on the curve.
	ErrNoViableBump = errors.New("no viable bump seed found")
)

// Deriver derives addresses under a fixed program ID.
//
// Thread-safety: Deriver is immutable and safe for concurrent use.
type Deriver struct {
	programID ir.Address
	onCurve   func([]byte) bool
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithCurveCheck replaces the on-curve test applied to each candidate.
// Default: IsOnCurve.
func WithCurveCheck(fn func([]byte) bool) Option {
	return func(d *Deriver) {
		d.onCurve = fn
	}
}

// New creates a Deriver bound to programID.
func New(programID ir.Address, opts ...Option) *Deriver {
	d := &Deriver{programID: programID, onCurve: IsOnCurve}
	for _, opt := range opts {
		opt(d)
	}
	if d.onCurve == nil {
		d.onCurve = IsOnCurve
	}
	return d
}

// ProgramID returns the program ID mixed into every address.
func (d *Deriver) ProgramID() ir.Address {
	return d.programID
}

// CreateAddress hashes seeds and bump into an address.
// Returns ErrOnCurve when the result is a valid public key.
func (d *Deriver) CreateAddress(seeds [][]byte, bump uint8) (ir.Address, error) {
	if err := validateSeeds(seeds); err != nil {
		return ir.Address{}, err
	}
	return d.createAddress(seeds, bump)
}

func (d *Deriver) createAddress(seeds [][]byte, bump uint8) (ir.Address, error) {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(d.programID[:])
	h.Write([]byte(addressMarker))

	var addr ir.Address
	copy(addr[:], h.Sum(nil))

	if d.onCurve(addr[:]) {
		return ir.Address{}, ErrOnCurve
	}
	return addr, nil
}

// FindAddress searches bumps from 255 down to 0 and returns the first
// off-curve address along with the bump that produced it.
func (d *Deriver) FindAddress(seeds [][]byte) (ir.Address, uint8, error) {
	if err := validateSeeds(seeds); err != nil {
		return ir.Address{}, 0, err
	}

	for bump := 255; bump >= 0; bump-- {
		addr, err := d.createAddress(seeds, uint8(bump))
		if errors.Is(err, ErrOnCurve) {
			continue
		}
		if err != nil {
			return ir.Address{}, 0, err
		}
		return addr, uint8(bump), nil
	}

	return ir.Address{}, 0, ErrNoViableBump
}

// CounterAddress derives the slot for owner under label.
func (d *Deriver) CounterAddress(label []byte, owner ir.Identity) (ir.Address, uint8, error) {
	addr, bump, err := d.FindAddress([][]byte{label, owner[:]})
	if err != nil {
		return ir.Address{}, 0, fmt.Errorf("derive counter address for %s: %w", owner, err)
	}
	return addr, bump, nil
}

// Verify reports whether addr is the address derived for (label, owner)
// with the given bump. Used to re-check a stored bump without a full search.
func (d *Deriver) Verify(label []byte, owner ir.Identity, bump uint8, addr ir.Address) bool {
	got, err := d.CreateAddress([][]byte{label, owner[:]}, bump)
	return err == nil && got == addr
}

// IsOnCurve reports whether b decodes to a point on edwards25519.
// Non-canonical y encodings are accepted, matching common verifiers.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

func validateSeeds(seeds [][]byte) error {
	if len(seeds) >= MaxSeeds {
		return fmt.Errorf("%w: %d seeds (max %d including bump)", ErrTooManySeeds, len(seeds), MaxSeeds-1)
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return fmt.Errorf("%w: seed[%d] is %d bytes (max %d)", ErrMaxSeedLength, i, len(seed), MaxSeedLength)
		}
	}
	return nil
}
