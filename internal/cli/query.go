package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/northwind/internal/container"
	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/predicate"
	"github.com/roach88/northwind/internal/querysql"
	"github.com/roach88/northwind/internal/registry"
	"github.com/roach88/northwind/internal/schema"
)

// Query engines.
const (
	EngineSQL    = "sql"
	EngineMemory = "memory"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Dest    string
	Where   string
	Filter  string
	Engine  string
	ShowSQL bool
}

// QueryRecord is one matching entity with its stored fields.
type QueryRecord struct {
	ID     string          `json:"id"`
	Fields json.RawMessage `json:"fields"`
}

// QueryResult is the output of the query command.
type QueryResult struct {
	Entity  string        `json:"entity"`
	Filter  string        `json:"filter,omitempty"`
	SQL     string        `json:"sql,omitempty"`
	Count   int           `json:"count"`
	Records []QueryRecord `json:"records"`
}

func (r QueryResult) String() string {
	var b strings.Builder
	if r.SQL != "" {
		fmt.Fprintf(&b, "-- %s\n", r.SQL)
	}
	for _, rec := range r.Records {
		fmt.Fprintf(&b, "%s %s\n", rec.ID, rec.Fields)
	}
	fmt.Fprintf(&b, "%d %s record(s)\n", r.Count, r.Entity)
	return b.String()
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <entity>",
		Short: "Fetch the entities matching a predicate",
		Long: `Fetch the entities matching a predicate.

The predicate is given as JSON with --where, or as a saved filter document
with --filter, which also names the entity. Field names are registry keys
(see "nwstore fields") or bare attribute names.

With --engine sql (the default) the predicate is compiled to SQL and run by
SQLite; --engine memory evaluates it against the loaded objects instead.

Examples:
  nwstore query Product --where '{"op":"lt","field":"unitPrice","value":"20"}'
  nwstore query Territory
  nwstore query --filter cheap-active.json --sql --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Dest, "dest", "", "writable store to query instead of the packaged one")
	cmd.Flags().StringVarP(&opts.Where, "where", "w", "", "predicate as JSON")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "saved filter file")
	cmd.Flags().StringVar(&opts.Engine, "engine", EngineSQL, "evaluation engine (sql|memory)")
	cmd.Flags().BoolVar(&opts.ShowSQL, "sql", false, "include the compiled SQL in the output")
	cmd.MarkFlagsMutuallyExclusive("where", "filter")

	return cmd
}

// request resolves the entity and predicate from arguments and flags.
func (o *QueryOptions) request(args []string) (schema.EntityType, string, predicate.Predicate, *ExitError) {
	if o.Filter != "" {
		data, err := os.ReadFile(o.Filter)
		if err != nil {
			return "", "", nil, WrapExitError(ExitCommandError, "failed to read filter", err)
		}
		filter, err := predicate.UnmarshalFilter(data)
		if err != nil {
			return "", "", nil, &ExitError{Code: ExitFailure, ErrCode: ErrCodeBadPredicate, Message: "invalid filter", Err: err}
		}
		if len(args) == 1 && schema.EntityType(args[0]) != filter.Entity {
			return "", "", nil, &ExitError{Code: ExitFailure, ErrCode: ErrCodeBadPredicate,
				Message: fmt.Sprintf("filter %q is over %s, not %s", filter.Name, filter.Entity, args[0])}
		}
		return filter.Entity, filter.Name, filter.Predicate, nil
	}

	if len(args) == 0 {
		return "", "", nil, &ExitError{Code: ExitCommandError, ErrCode: ErrCodeGeneric, Message: "an entity argument or --filter is required"}
	}
	var p predicate.Predicate
	if o.Where != "" {
		var err error
		p, err = predicate.Unmarshal([]byte(o.Where))
		if err != nil {
			return "", "", nil, &ExitError{Code: ExitFailure, ErrCode: ErrCodeBadPredicate, Message: "invalid predicate", Err: err}
		}
	}
	return schema.EntityType(args[0]), "", p, nil
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	if opts.Engine != EngineSQL && opts.Engine != EngineMemory {
		return f.Fail(&ExitError{Code: ExitCommandError, ErrCode: ErrCodeGeneric,
			Message: fmt.Sprintf("invalid engine %q: must be sql or memory", opts.Engine)})
	}
	entity, filterName, p, reqErr := opts.request(args)
	if reqErr != nil {
		return f.Fail(reqErr)
	}

	reg := registry.Default()
	if _, err := reg.Accessors(entity); err != nil {
		return f.Fail(classify("invalid entity", err))
	}
	bound, err := predicate.Bind(reg, entity, p)
	if err != nil {
		exitErr := classify("invalid predicate", err)
		if exitErr.ErrCode == ErrCodeGeneric {
			exitErr.Code, exitErr.ErrCode = ExitFailure, ErrCodeBadPredicate
		}
		return f.Fail(exitErr)
	}

	st, err := opts.openStore(ctx, opts.Dest)
	if err != nil {
		return f.Fail(classify("failed to open store", err))
	}
	defer st.Close()
	c, err := container.Open(ctx, st, container.Options{ReadOnly: true, Registry: reg, Logger: opts.Logger, Metrics: opts.recorder})
	if err != nil {
		return f.Fail(classify("failed to load store", err))
	}

	result := QueryResult{Entity: string(entity), Filter: filterName, Records: []QueryRecord{}}
	var matches []model.Entity
	switch opts.Engine {
	case EngineSQL:
		query, params, err := querysql.NewSQLCompiler().Compile(bound)
		if err != nil {
			return f.Fail(classify("failed to compile predicate", err))
		}
		f.VerboseLog("sql: %s %v", query, params)
		if opts.ShowSQL {
			result.SQL = query
		}
		ids, err := st.Select(ctx, query, params...)
		if err != nil {
			return f.Fail(classify("query failed", err))
		}
		for _, id := range ids {
			e, err := c.Get(id)
			if err != nil {
				return f.Fail(classify("query failed", err))
			}
			matches = append(matches, e)
		}
	case EngineMemory:
		matches, err = c.FetchBound(bound)
		if err != nil {
			return f.Fail(classify("query failed", err))
		}
	}

	for _, e := range matches {
		payload, err := reg.Encode(e)
		if err != nil {
			return f.Fail(classify("failed to encode record", err))
		}
		data, err := ir.MarshalCanonical(payload)
		if err != nil {
			return f.Fail(classify("failed to encode record", err))
		}
		result.Records = append(result.Records, QueryRecord{ID: string(e.Identity()), Fields: data})
	}
	result.Count = len(result.Records)
	return f.Success(result)
}
