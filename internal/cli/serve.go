package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/counterslot/internal/auth"
	"github.com/roach88/counterslot/internal/httpapi"
	"github.com/roach88/counterslot/internal/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the counter API over HTTP until interrupted.

Mutating requests need "Authorization: Bearer <token>" issued by
"counterslot token". Traces are exported over OTLP/HTTP when
COUNTERSLOT_OTEL_ENDPOINT is set.

Example:
  counterslot serve --db ./counterslot.db --addr 127.0.0.1:8899`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default COUNTERSLOT_HTTP_ADDR)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.log()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, opts.Config.OTELEndpoint)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("error flushing traces", "error", err)
		}
	}()

	verifier, err := auth.NewVerifier(opts.Config.TokenAudience)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure token verification", err)
	}

	s, err := openSession(ctx, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	addr := opts.Addr
	if addr == "" {
		addr = opts.Config.HTTPAddr
	}

	logger.Info("server starting", "addr", addr, "db", opts.Config.DBPath, "program", s.manifest.ProgramID.String())
	if err := httpapi.New(s.program, verifier, logger).Serve(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
