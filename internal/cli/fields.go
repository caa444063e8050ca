package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/northwind/internal/registry"
	"github.com/roach88/northwind/internal/schema"
)

// FieldInfo describes one predicate field.
type FieldInfo struct {
	Key      string `json:"key"`
	Column   string `json:"column"`
	Kind     string `json:"kind"`
	Optional bool   `json:"optional,omitempty"`
	Unique   bool   `json:"unique,omitempty"`
}

// FieldsResult lists the predicate fields of one or more entity types.
type FieldsResult struct {
	Fields []FieldInfo `json:"fields"`
}

func (r FieldsResult) String() string {
	var b strings.Builder
	for _, fi := range r.Fields {
		var flags []string
		if fi.Optional {
			flags = append(flags, "optional")
		}
		if fi.Unique {
			flags = append(flags, "unique")
		}
		line := fmt.Sprintf("%-42s %-8s %s", fi.Key, fi.Kind, strings.Join(flags, ","))
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields [entity...]",
		Short: "List the field names usable in predicates",
		Long: `List the field names usable in predicates.

Each field is listed under its registry key, northwind.<Entity>.<field>,
with its value kind. Without arguments every entity type is listed.

Examples:
  nwstore fields
  nwstore fields Product Order --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runFields(opts *RootOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)
	reg := registry.Default()

	types := reg.Model().Types()
	if len(args) > 0 {
		types = types[:0:0]
		for _, a := range args {
			types = append(types, schema.EntityType(a))
		}
	}

	var result FieldsResult
	for _, t := range types {
		set, err := reg.Accessors(t)
		if err != nil {
			return f.Fail(classify("failed to list fields", err))
		}
		for _, a := range set.Accessors {
			result.Fields = append(result.Fields, FieldInfo{
				Key:      a.Key,
				Column:   a.Column,
				Kind:     a.Kind.String(),
				Optional: a.Optional,
				Unique:   a.Unique,
			})
		}
	}
	return f.Success(result)
}
