package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/northwind/internal/store"
)

// InfoOptions holds flags for the info command.
type InfoOptions struct {
	*RootOptions
	Dest string
}

// EntityCount is the number of records of one entity type.
type EntityCount struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
}

// InfoResult describes an opened store.
type InfoResult struct {
	Path        string        `json:"path"`
	ReadOnly    bool          `json:"read_only"`
	Version     string        `json:"version"`
	Fingerprint string        `json:"fingerprint"`
	Content     string        `json:"content"`
	Entities    []EntityCount `json:"entities"`
}

func (r InfoResult) String() string {
	var b strings.Builder
	mode := "writable"
	if r.ReadOnly {
		mode = "read-only"
	}
	fmt.Fprintf(&b, "Store: %s (%s)\n", r.Path, mode)
	fmt.Fprintf(&b, "Schema: %s\n", r.Version)
	fmt.Fprintf(&b, "Fingerprint: %s\n", r.Fingerprint)
	fmt.Fprintf(&b, "Content: %s\n", r.Content)
	fmt.Fprintln(&b)
	for _, e := range r.Entities {
		fmt.Fprintf(&b, "  %-20s %d\n", e.Entity, e.Count)
	}
	return b.String()
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InfoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the schema and content of a store",
		Long: `Describe the schema and content of a store.

Without --dest the packaged store is opened read-only in place.

Examples:
  nwstore info
  nwstore info --dest ./northwind.store --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dest, "dest", "", "writable store to inspect instead of the packaged one")

	return cmd
}

func runInfo(opts *InfoOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	st, err := opts.openStore(ctx, opts.Dest)
	if err != nil {
		return f.Fail(classify("failed to open store", err))
	}
	defer st.Close()

	counts, err := st.Counts(ctx)
	if err != nil {
		return f.Fail(classify("failed to count records", err))
	}
	meta, err := st.Metadata(ctx)
	if err != nil {
		return f.Fail(classify("failed to read metadata", err))
	}

	snap, err := st.Load(ctx)
	if err != nil {
		return f.Fail(classify("failed to load store", err))
	}
	content, err := snap.Fingerprint()
	if err != nil {
		return f.Fail(classify("failed to fingerprint store", err))
	}

	result := InfoResult{
		Path:        st.Path(),
		ReadOnly:    st.ReadOnly(),
		Version:     st.Version().String(),
		Fingerprint: meta[store.MetaSchemaFingerprint],
		Content:     content,
	}
	for _, t := range st.Model().Types() {
		result.Entities = append(result.Entities, EntityCount{Entity: string(t), Count: counts[t]})
	}
	return f.Success(result)
}
