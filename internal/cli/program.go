package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/counterslot/internal/auth"
	"github.com/roach88/counterslot/internal/counter"
	"github.com/roach88/counterslot/internal/manifest"
	"github.com/roach88/counterslot/internal/notify"
	"github.com/roach88/counterslot/internal/store"
)

// session is an open program backed by the configured database.
type session struct {
	program  *counter.Program
	store    *store.Store
	manifest *manifest.Manifest
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession loads the manifest, opens the database and resumes the program.
func openSession(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*session, error) {
	m, err := manifest.LoadOrDefault(opts.Config.ManifestPath)
	if err != nil {
		return nil, f.Fail(ErrCodeManifest, err)
	}

	f.VerboseLog("Opening database %s", opts.Config.DBPath)
	st, err := store.Open(opts.Config.DBPath)
	if err != nil {
		return nil, f.Fail(ErrCodeStore, err)
	}

	p, err := counter.New(ctx, st, m.Deriver(),
		counter.WithLabel(m.Seed),
		counter.WithLogger(opts.log()),
		counter.WithNotifier(notify.NewLog(opts.log())),
	)
	if err != nil {
		_ = st.Close()
		return nil, f.Fail(ErrCodeStore, err)
	}

	return &session{program: p, store: st, manifest: m}, nil
}

// callerFromKey authenticates the holder of a key file the same way the HTTP
// API does: by signing a short-lived token and verifying it.
func callerFromKey(opts *RootOptions, path string) (auth.Caller, error) {
	key, err := auth.ReadKeyFile(path)
	if err != nil {
		return auth.Caller{}, err
	}
	signer, err := auth.NewSigner(key, opts.Config.TokenAudience, opts.Config.TokenTTL)
	if err != nil {
		return auth.Caller{}, err
	}
	token, err := signer.Sign()
	if err != nil {
		return auth.Caller{}, err
	}
	verifier, err := auth.NewVerifier(opts.Config.TokenAudience)
	if err != nil {
		return auth.Caller{}, err
	}
	return verifier.Redeem(token)
}

// parseValue parses a counter value in 0..255.
func parseValue(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("value %q must be an integer in 0..255", s)
	}
	return uint8(n), nil
}
