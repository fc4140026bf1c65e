// Package auth turns signed requests into verified caller identities.
//
// A Caller is the capability every counter operation requires. Outside this
// package it can only be obtained from Verifier.Verify, which checks an
// EdDSA-signed token against the public key named in its subject, or from
// Assume, for in-process hosts that have verified the caller some other way.
package auth
