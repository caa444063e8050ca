package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/northwind/internal/config"
	"github.com/roach88/northwind/internal/metrics"
	"github.com/roach88/northwind/internal/provision"
	"github.com/roach88/northwind/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Metrics    bool

	// Set by the root command before any subcommand runs.
	Config *config.Config
	Logger *slog.Logger
	// Env reads environment overrides. Defaults to os.LookupEnv.
	Env config.LookupFunc

	registry *prometheus.Registry
	recorder metrics.Recorder
}

// errStoreNotFound reports a --dest path with no store behind it.
var errStoreNotFound = errors.New("store not found")

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nwstore CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Env: os.LookupEnv})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nwstore",
		Short: "nwstore - Northwind store tool",
		Long:  "Bootstrap, inspect and query Northwind data files.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.ConfigPath, opts.Env)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Config = cfg
			opts.Logger = cfg.Logger(cmd.ErrOrStderr(), opts.Verbose)
			if opts.Metrics {
				opts.registry = prometheus.NewRegistry()
				rec, err := metrics.NewPrometheus(opts.registry)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to register metrics", err)
				}
				opts.recorder = rec
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.registry == nil {
				return nil
			}
			return metrics.WriteSummary(cmd.ErrOrStderr(), opts.registry)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML configuration file")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "print operation metrics to stderr after the command")

	// Add subcommands
	cmd.AddCommand(NewBootstrapCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewFieldsCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) provisioner() *provision.Provisioner {
	return provision.New(o.Config.Provision(o.Logger, o.recorder))
}

// openStore opens an existing dest writable, or the packaged file read-only
// when dest is empty. It never creates a file.
func (o *RootOptions) openStore(ctx context.Context, dest string) (*store.Store, error) {
	if dest == "" {
		if o.Config.PackagedPath == "" {
			return nil, fmt.Errorf("no packaged store configured; set packaged_path or pass --dest")
		}
		return store.Open(ctx, o.Config.PackagedPath, store.Options{ReadOnly: true, Logger: o.Logger, Metrics: o.recorder})
	}
	info, err := os.Stat(dest)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", errStoreNotFound, dest)
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", dest, err)
	case !info.Mode().IsRegular():
		return nil, fmt.Errorf("%w: %s is not a file", errStoreNotFound, dest)
	}
	return store.Open(ctx, dest, store.Options{Logger: o.Logger, Metrics: o.recorder})
}
