package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BootstrapOptions holds flags for the bootstrap command.
type BootstrapOptions struct {
	*RootOptions
	Dest  string
	Force bool
}

// BootstrapResult is the output of the bootstrap command.
type BootstrapResult struct {
	Path   string `json:"path"`
	Copied bool   `json:"copied"`
}

func (r BootstrapResult) String() string {
	if r.Copied {
		return fmt.Sprintf("Bootstrapped %s\n", r.Path)
	}
	return fmt.Sprintf("Kept existing %s\n", r.Path)
}

// NewBootstrapCommand creates the bootstrap command.
func NewBootstrapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BootstrapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Copy the packaged store to a writable location",
		Long: `Copy the packaged store to a writable location.

Without --dest the copy goes to data_dir/file_name from the configuration.
An existing file is kept unless --force is given, in which case it is
replaced together with its -wal and -shm companions.

Examples:
  nwstore bootstrap
  nwstore bootstrap --dest ./northwind.store
  nwstore bootstrap --dest ./northwind.store --force --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dest, "dest", "", "destination file (default: data_dir/file_name)")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "replace an existing destination")

	return cmd
}

func runBootstrap(opts *BootstrapOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	loc, err := opts.provisioner().Bootstrap(cmd.Context(), opts.Dest, !opts.Force)
	if err != nil {
		return f.Fail(classify("bootstrap failed", err))
	}
	f.VerboseLog("source: %s", opts.Config.PackagedPath)
	return f.Success(BootstrapResult{Path: loc.Path, Copied: loc.Copied})
}
