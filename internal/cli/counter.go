package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/counterslot/internal/counter"
	"github.com/roach88/counterslot/internal/ir"
	"github.com/roach88/counterslot/internal/manifest"
)

// RecordResult is a counter slot as the CLI prints it.
type RecordResult struct {
	Record ir.Record `json:"record"`
	Event  *ir.Event `json:"event,omitempty"`
}

// Text implements texter.
func (r RecordResult) Text() string {
	var b strings.Builder
	if r.Event != nil {
		fmt.Fprintf(&b, "%s (seq %d)\n", r.Event.Message, r.Event.Seq)
	}
	fmt.Fprintf(&b, "Address: %s\n", r.Record.Address)
	fmt.Fprintf(&b, "Owner:   %s\n", r.Record.Owner)
	fmt.Fprintf(&b, "Bump:    %d\n", r.Record.Bump)
	fmt.Fprintf(&b, "Value:   %d\n", r.Record.Value)
	return b.String()
}

// DeriveOptions holds flags for the derive command.
type DeriveOptions struct {
	*RootOptions
	Label string
}

// DeriveResult is a derived slot address.
type DeriveResult struct {
	ProgramID ir.Address  `json:"program_id"`
	Label     string      `json:"label"`
	Owner     ir.Identity `json:"owner"`
	Address   ir.Address  `json:"address"`
	Bump      uint8       `json:"bump"`
}

// Text implements texter.
func (r DeriveResult) Text() string {
	return fmt.Sprintf("Address: %s\nBump:    %d\n", r.Address, r.Bump)
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "derive <owner>",
		Short: "Derive the counter address for an identity",
		Long: `Derive the address of an identity's counter slot.

Derivation is pure: it needs only the manifest's program id and seed label,
never the database.

Examples:
  counterslot derive 4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T
  counterslot derive <owner> --label Counter --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Label, "label", "", "seed label (default: manifest seed)")

	return cmd
}

func runDerive(opts *DeriveOptions, ownerArg string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	owner, err := ir.ParseIdentity(ownerArg)
	if err != nil {
		return f.Fail(ErrCodeBadArgs, err)
	}
	m, err := manifest.LoadOrDefault(opts.Config.ManifestPath)
	if err != nil {
		return f.Fail(ErrCodeManifest, err)
	}

	label := m.Seed
	if cmd.Flags().Changed("label") {
		label = opts.Label
	}

	addr, bump, err := counter.Locate(m.Deriver(), label, owner)
	if err != nil {
		return f.Fail(ErrCodeGeneric, err)
	}

	return f.Success(DeriveResult{
		ProgramID: m.ProgramID,
		Label:     label,
		Owner:     owner,
		Address:   addr,
		Bump:      bump,
	})
}

// KeyOptions holds the --key flag shared by mutating commands.
type KeyOptions struct {
	*RootOptions
	Key string
}

func addKeyFlag(cmd *cobra.Command, opts *KeyOptions) {
	cmd.Flags().StringVarP(&opts.Key, "key", "k", "", "caller key file (required)")
	_ = cmd.MarkFlagRequired("key")
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the caller's counter with value 0",
		Long: `Create the counter owned by the key's identity.

Fails with ALREADY_INITIALIZED if the slot exists.

Example:
  counterslot init --key alice.json --db ./counterslot.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}
	addKeyFlag(cmd, opts)

	return cmd
}

func runInit(opts *KeyOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	caller, err := callerFromKey(opts.RootOptions, opts.Key)
	if err != nil {
		return f.Fail(ErrCodeKeyFile, err)
	}

	s, err := openSession(cmd.Context(), opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.program.Initialize(cmd.Context(), caller)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	return f.Success(RecordResult{Record: res.Record, Event: &res.Event})
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	KeyOptions
	Address string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{KeyOptions: KeyOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "update <value>",
		Short: "Overwrite the caller's counter",
		Long: `Set the counter owned by the key's identity to value (0..255).

With --address the slot is named explicitly; a slot owned by anyone else
fails with NOT_OWNER.

Examples:
  counterslot update --key alice.json 42
  counterslot update --key bob.json --address <alice-slot> 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}
	addKeyFlag(cmd, &opts.KeyOptions)
	cmd.Flags().StringVar(&opts.Address, "address", "", "slot address to write (default: the caller's own)")

	return cmd
}

func runUpdate(opts *UpdateOptions, valueArg string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	value, err := parseValue(valueArg)
	if err != nil {
		return f.Fail(ErrCodeBadArgs, err)
	}
	var addr ir.Address
	if opts.Address != "" {
		if addr, err = ir.ParseAddress(opts.Address); err != nil {
			return f.Fail(ErrCodeBadArgs, err)
		}
	}

	caller, err := callerFromKey(opts.RootOptions, opts.Key)
	if err != nil {
		return f.Fail(ErrCodeKeyFile, err)
	}

	s, err := openSession(cmd.Context(), opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer s.Close()

	var res counter.Result
	if opts.Address != "" {
		res, err = s.program.UpdateAccount(cmd.Context(), caller, addr, value)
	} else {
		res, err = s.program.Update(cmd.Context(), caller, value)
	}
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	return f.Success(RecordResult{Record: res.Record, Event: &res.Event})
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Address string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [owner]",
		Short: "Print a counter",
		Long: `Print the counter owned by an identity, or stored at --address.

Examples:
  counterslot show <owner>
  counterslot show --address <slot> --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Address, "address", "", "slot address")

	return cmd
}

func runShow(opts *ShowOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if (len(args) == 1) == (opts.Address != "") {
		return f.Fail(ErrCodeBadArgs, fmt.Errorf("give exactly one of <owner> or --address"))
	}

	s, err := openSession(cmd.Context(), opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer s.Close()

	var rec ir.Record
	if opts.Address != "" {
		addr, err := ir.ParseAddress(opts.Address)
		if err != nil {
			return f.Fail(ErrCodeBadArgs, err)
		}
		rec, err = s.program.GetAccount(cmd.Context(), addr)
		if err != nil {
			return f.Fail(ErrCodeStore, err)
		}
	} else {
		owner, err := ir.ParseIdentity(args[0])
		if err != nil {
			return f.Fail(ErrCodeBadArgs, err)
		}
		rec, err = s.program.Get(cmd.Context(), owner)
		if err != nil {
			return f.Fail(ErrCodeStore, err)
		}
	}
	return f.Success(RecordResult{Record: rec})
}

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	After int64
	Limit int
}

// EventsResult is a page of the notification log.
type EventsResult struct {
	Events []ir.Event `json:"events"`
}

// Text implements texter.
func (r EventsResult) Text() string {
	if len(r.Events) == 0 {
		return "No events.\n"
	}
	var b strings.Builder
	for _, ev := range r.Events {
		fmt.Fprintf(&b, "%6d  %-19s  value=%-3d  %s  %s\n", ev.Seq, ev.Message, ev.Value, ev.Address, ev.Owner)
	}
	return b.String()
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List committed notifications in order",
		Long: `List notifications from the event log in commit order.

Examples:
  counterslot events
  counterslot events --after 10 --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum events to list")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.After < 0 || opts.Limit <= 0 {
		return f.Fail(ErrCodeBadArgs, fmt.Errorf("--after must be >= 0 and --limit > 0"))
	}

	s, err := openSession(cmd.Context(), opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer s.Close()

	events, err := s.program.Events(cmd.Context(), opts.After, opts.Limit)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	if events == nil {
		events = []ir.Event{}
	}
	return f.Success(EventsResult{Events: events})
}
