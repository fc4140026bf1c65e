package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/counterslot/internal/store"
)

// AuditResult wraps the store's audit report for output.
type AuditResult struct {
	store.AuditReport
}

// Text implements texter.
func (r AuditResult) Text() string {
	var b strings.Builder
	for _, a := range r.Accounts {
		mark := "✓"
		if !a.Consistent() {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %s  value=%d  events=%d\n", mark, a.Address, a.StoredValue, a.Events)
		for _, p := range a.Problems {
			fmt.Fprintf(&b, "    %s\n", p)
		}
	}
	fmt.Fprintf(&b, "\nAudit Summary: %d account(s), last seq %d\n", r.Total, r.LastSeq)
	if r.Consistent {
		b.WriteString("✓ Event log and records agree\n")
	}
	return b.String()
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Replay the event log against stored records",
		Long: `Replay every account's notifications and compare the result with the
stored record. The audit only reads; it never repairs.

Exit codes:
  0 - Every account is consistent
  1 - At least one account disagrees with its event log
  2 - Command error

Example:
  counterslot audit --db ./counterslot.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, cmd)
		},
	}

	return cmd
}

func runAudit(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	f.VerboseLog("Opening database %s", opts.Config.DBPath)
	st, err := store.Open(opts.Config.DBPath)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	defer st.Close()

	report, err := st.Audit(cmd.Context())
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	if report.Accounts == nil {
		report.Accounts = []store.AccountAudit{}
	}

	if report.Consistent {
		return f.Success(AuditResult{report})
	}

	inconsistent := report.Total
	for _, a := range report.Accounts {
		if a.Consistent() {
			inconsistent--
		}
	}
	msg := fmt.Sprintf("%d account(s) inconsistent", inconsistent)
	if f.Format == "json" {
		if err := encodeIndented(f.Writer, CLIResponse{
			Status: "error",
			Data:   AuditResult{report},
			Error:  &CLIError{Code: ErrCodeAudit, Message: msg},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprint(f.Writer, AuditResult{report}.Text())
	}
	return NewExitError(ExitFailure, msg)
}
