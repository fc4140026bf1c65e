package cli

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/counterslot/internal/auth"
	"github.com/roach88/counterslot/internal/ir"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	Out   string
	Force bool
}

// KeyResult describes a key file.
type KeyResult struct {
	Path     string      `json:"path"`
	Identity ir.Identity `json:"identity"`
}

// Text implements texter.
func (r KeyResult) Text() string {
	return fmt.Sprintf("Wrote %s\nIdentity: %s\n", r.Path, r.Identity)
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an identity key file",
		Long: `Generate a new ed25519 identity and write it to a key file.

The file holds the 64-byte private key as a JSON array of numbers and is
created with owner-only permissions. The identity printed is the base58
public key that owns counters.

Example:
  counterslot keygen --out alice.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "key file to write (required)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing key file")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if !opts.Force {
		if _, err := os.Stat(opts.Out); err == nil {
			return f.Fail(ErrCodeKeyFile, fmt.Errorf("%s already exists (use --force to overwrite)", opts.Out))
		} else if !errors.Is(err, fs.ErrNotExist) {
			return f.Fail(ErrCodeKeyFile, err)
		}
	}

	key, err := auth.GenerateKey(rand.Reader)
	if err != nil {
		return f.Fail(ErrCodeKeyFile, err)
	}
	if err := auth.WriteKeyFile(opts.Out, key); err != nil {
		return f.Fail(ErrCodeKeyFile, err)
	}
	id, err := ir.IdentityFromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return f.Fail(ErrCodeKeyFile, err)
	}

	opts.log().Debug("key generated", "path", opts.Out, "identity", id.String())
	return f.Success(KeyResult{Path: opts.Out, Identity: id})
}

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Key string
	TTL time.Duration
}

// TokenResult is an issued bearer token.
type TokenResult struct {
	Identity ir.Identity `json:"identity"`
	Token    string      `json:"token"`
}

// Text implements texter.
func (r TokenResult) Text() string {
	return r.Token + "\n"
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Long: `Sign a short-lived EdDSA token with a key file.

The token's subject is the key's identity and its audience is
COUNTERSLOT_TOKEN_AUDIENCE. Pass it as "Authorization: Bearer <token>".

Example:
  counterslot token --key alice.json
  counterslot token --key alice.json --ttl 30s`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Key, "key", "k", "", "key file (required)")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime (default COUNTERSLOT_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func runToken(opts *TokenOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	key, err := auth.ReadKeyFile(opts.Key)
	if err != nil {
		return f.Fail(ErrCodeKeyFile, err)
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = opts.Config.TokenTTL
	}
	signer, err := auth.NewSigner(key, opts.Config.TokenAudience, ttl)
	if err != nil {
		return f.Fail(ErrCodeBadArgs, err)
	}
	token, err := signer.Sign()
	if err != nil {
		return f.Fail(ErrCodeKeyFile, err)
	}

	return f.Success(TokenResult{Identity: signer.Identity(), Token: token})
}
