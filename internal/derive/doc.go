// Package derive computes deterministic storage addresses from a fixed label
// and a caller identity.
//
// An address is SHA-256(seeds... || bump || programID || "ProgramDerivedAddress").
// The bump is searched from 255 downward and the first digest that does NOT
// decode to an ed25519 curve point wins. Such an address has no private key,
// so nobody can sign for it; only the program that derived it can write there.
//
// There is no stored mapping from owner to address. Creation and every later
// lookup re-run the same search, so the search order is part of the contract.
package derive
