// Package store provides SQLite-backed durable storage for counter slots.
//
// The store holds two tables:
//   - Accounts: one row per derived address (owner, bump, account data)
//   - Events: append-only notification log, one row per committed transition
//
// # Critical Patterns
//
// At-most-once creation:
//   - accounts.address is the PRIMARY KEY
//   - CreateAccount uses INSERT ... ON CONFLICT(address) DO NOTHING and
//     reports whether a row was inserted; callers never check-then-insert
//
// Atomic transitions:
//   - WithTx runs the record mutation and the event append in one
//     transaction; either both commit or neither does
//
// Logical time:
//   - events.seq is the logical clock, never a timestamp
//   - All event reads ORDER BY seq ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Events must reference an existing account
//
// Addresses and identities are stored in base58 TEXT form so the database
// can be inspected with the sqlite3 shell.
package store
