package auth

import "github.com/roach88/counterslot/internal/ir"

// Caller is a verified identity. The zero value is unauthenticated.
type Caller struct {
	identity ir.Identity
	tokenID  string
	verified bool
}

// Assume returns a Caller for id without checking any proof.
// Hosts that authenticate callers themselves (the CLI signing with a local
// key, the scenario harness) use it to hand the identity across.
func Assume(id ir.Identity) Caller {
	return Caller{identity: id, verified: true}
}

// Identity returns the authenticated identity.
func (c Caller) Identity() ir.Identity {
	return c.identity
}

// TokenID returns the jti of the token that proved the identity, if any.
func (c Caller) TokenID() string {
	return c.tokenID
}

// Authenticated reports whether c came from Verify or Assume.
func (c Caller) Authenticated() bool {
	return c.verified
}
