package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/counterslot/internal/manifest"
)

// ManifestResult is a compiled manifest.
type ManifestResult struct {
	*manifest.Manifest
}

// Text implements texter.
func (r ManifestResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.Name, r.Version)
	fmt.Fprintf(&b, "Program: %s\n", r.ProgramID)
	fmt.Fprintf(&b, "Seed:    %q\n", r.Seed)
	for _, a := range r.Accounts {
		fmt.Fprintf(&b, "account     %-18s %s\n", a.Name, a.Discriminator)
	}
	for _, in := range r.Instructions {
		args := make([]string, len(in.Args))
		for i, f := range in.Args {
			args[i] = f.Name + ": " + f.Type
		}
		fmt.Fprintf(&b, "instruction %-18s %s (%s)\n", in.Name, in.Discriminator, strings.Join(args, ", "))
	}
	for _, e := range r.Events {
		fmt.Fprintf(&b, "event       %-18s %s\n", e.Name, e.Discriminator)
	}
	return b.String()
}

// NewManifestCommand creates the manifest command.
func NewManifestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest [path]",
		Short: "Compile and print the program manifest",
		Long: `Compile a CUE program manifest and print its interface.

With no path, the --manifest flag or COUNTERSLOT_MANIFEST is used, falling
back to the built-in manifest. Discriminators are checked against the
names they tag.

Examples:
  counterslot manifest
  counterslot manifest ./counter.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config.ManifestPath
			if len(args) == 1 {
				path = args[0]
			}
			return runManifest(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runManifest(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := manifest.LoadOrDefault(path)
	if err != nil {
		return f.Fail(ErrCodeManifest, err)
	}
	return f.Success(ManifestResult{m})
}
