package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/roach88/counterslot/internal/ir"
)

// ErrUnauthenticated is returned for every token that fails verification.
var ErrUnauthenticated = errors.New("unauthenticated")

// DefaultTTL is the token lifetime used when a Signer is given none.
const DefaultTTL = 5 * time.Minute

// Verifier checks caller tokens.
//
// A token is a compact JWT signed with EdDSA by the caller's own key. The
// subject carries the base58 identity, so the signature is verified against
// the key it claims to be; a valid token proves possession of that key.
//
// Redeem additionally makes a token single-use: each jti is remembered until
// its token expires, and a second presentation is rejected.
type Verifier struct {
	audience string
	now      func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time // subject/jti -> expiry
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock overrides the clock used for expiry checks.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a Verifier that accepts tokens issued for audience.
func NewVerifier(audience string, opts ...VerifierOption) (*Verifier, error) {
	audience = strings.TrimSpace(audience)
	if audience == "" {
		return nil, errors.New("token audience is required")
	}
	v := &Verifier{audience: audience, now: time.Now, seen: make(map[string]time.Time)}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify validates token and returns the Caller it proves.
// It does not consume the token; see Redeem.
func (v *Verifier) Verify(token string) (Caller, error) {
	caller, _, err := v.verify(token)
	return caller, err
}

// Redeem validates token like Verify and consumes its jti. Presenting the
// same token again before it expires fails with ErrUnauthenticated.
func (v *Verifier) Redeem(token string) (Caller, error) {
	caller, expires, err := v.verify(token)
	if err != nil {
		return Caller{}, err
	}

	key := caller.identity.String() + "/" + caller.tokenID
	now := v.now()

	v.mu.Lock()
	defer v.mu.Unlock()

	for k, exp := range v.seen {
		if !exp.After(now) {
			delete(v.seen, k)
		}
	}
	if _, replayed := v.seen[key]; replayed {
		return Caller{}, fmt.Errorf("%w: token already used", ErrUnauthenticated)
	}
	v.seen[key] = expires
	return caller, nil
}

func (v *Verifier) verify(token string) (Caller, time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Caller{}, time.Time{}, fmt.Errorf("%w: token is required", ErrUnauthenticated)
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		id, err := ir.ParseIdentity(claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("subject: %w", err)
		}
		return id.PublicKey(), nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Caller{}, time.Time{}, mapJWTError(err)
	}

	if claims.ID == "" {
		return Caller{}, time.Time{}, fmt.Errorf("%w: jti is required", ErrUnauthenticated)
	}

	id, err := ir.ParseIdentity(claims.Subject)
	if err != nil {
		return Caller{}, time.Time{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	return Caller{identity: id, tokenID: claims.ID, verified: true}, claims.ExpiresAt.Time, nil
}

// mapJWTError translates jwt library errors to ErrUnauthenticated.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrEd25519Verification):
		return fmt.Errorf("%w: signature is invalid", ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token is expired", ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: token exp is required", ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: audience mismatch", ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: token is unverifiable: %w", ErrUnauthenticated, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
}

// Signer issues tokens for one key.
type Signer struct {
	key      ed25519.PrivateKey
	identity ir.Identity
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithSignerClock overrides the clock used for iat and exp.
func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a Signer. A non-positive ttl selects DefaultTTL.
func NewSigner(key ed25519.PrivateKey, audience string, ttl time.Duration, opts ...SignerOption) (*Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if strings.TrimSpace(audience) == "" {
		return nil, errors.New("token audience is required")
	}
	id, err := ir.IdentityFromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Signer{key: key, identity: id, audience: audience, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Identity returns the identity tokens from s authenticate.
func (s *Signer) Identity() ir.Identity {
	return s.identity
}

// Sign issues a fresh token.
func (s *Signer) Sign() (string, error) {
	jti, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}

	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   s.identity.String(),
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        jti.String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
