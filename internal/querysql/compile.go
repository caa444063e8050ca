package querysql

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/predicate"
)

// RecordsTable is the table every entity row lives in. Each row holds the
// entity type and the canonical JSON payload keyed by column name.
const RecordsTable = "records"

// orderBy is appended to every query so results never depend on SQLite's
// scan order.
const orderBy = " ORDER BY id COLLATE BINARY ASC"

var columnPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SQLCompiler compiles bound predicates to parameterised SQL for SQLite.
//
// Literals are always passed as parameters, never interpolated. Column names
// come from the schema and are checked against a strict pattern before they
// are spliced into a JSON path.
type SQLCompiler struct {
	table string
}

// NewSQLCompiler returns a compiler over RecordsTable.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{table: RecordsTable}
}

// Compile converts b into a query selecting the ids of matching records.
// Returns (sql, params, error).
//
// Fields absent from a payload read as SQL NULL. Every comparison is guarded
// so NULL never leaks into three-valued logic: a comparison against an absent
// field is false, and NOT of it is true, the same as Bound.Match.
func (c *SQLCompiler) Compile(b *predicate.Bound) (string, []any, error) {
	if b == nil {
		return "", nil, fmt.Errorf("cannot compile nil predicate")
	}
	where, params, err := c.compilePredicate(b.Root)
	if err != nil {
		return "", nil, fmt.Errorf("compile %s predicate: %w", b.Entity, err)
	}
	sql := fmt.Sprintf("SELECT id FROM %s WHERE entity = ? AND (%s)%s", c.table, where, orderBy)
	return sql, append([]any{string(b.Entity)}, params...), nil
}

// compilePredicate returns a WHERE fragment that is always TRUE or FALSE,
// never NULL.
func (c *SQLCompiler) compilePredicate(p predicate.BoundPredicate) (string, []any, error) {
	switch pred := p.(type) {
	case predicate.BoundCompare:
		return c.compileCompare(pred)
	case predicate.BoundIn:
		return c.compileIn(pred)
	case predicate.BoundIsNull:
		col, err := column(pred.Accessor.Column)
		if err != nil {
			return "", nil, err
		}
		return col + " IS NULL", nil, nil
	case predicate.BoundContains:
		col, err := column(pred.Accessor.Column)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s IS NOT NULL AND instr(%s, ?) > 0)", col, col), []any{pred.Substring}, nil
	case predicate.BoundAnd:
		return c.compileGroup(pred.Predicates, " AND ", "1 = 1")
	case predicate.BoundOr:
		return c.compileGroup(pred.Predicates, " OR ", "1 = 0")
	case predicate.BoundNot:
		inner, params, err := c.compilePredicate(pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", params, nil
	case nil:
		return "", nil, fmt.Errorf("nil predicate")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileGroup(ps []predicate.BoundPredicate, sep, empty string) (string, []any, error) {
	if len(ps) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, len(ps))
	var params []any
	for i, p := range ps {
		sql, sub, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts[i] = "(" + sql + ")"
		params = append(params, sub...)
	}
	return strings.Join(parts, sep), params, nil
}

var sqlOps = map[predicate.Op]string{
	predicate.OpEq: "=",
	predicate.OpNe: "<>",
	predicate.OpLt: "<",
	predicate.OpLe: "<=",
	predicate.OpGt: ">",
	predicate.OpGe: ">=",
}

func (c *SQLCompiler) compileCompare(cmp predicate.BoundCompare) (string, []any, error) {
	op, ok := sqlOps[cmp.Op]
	if !ok {
		return "", nil, fmt.Errorf("unknown operator %q", string(cmp.Op))
	}
	col, err := column(cmp.Accessor.Column)
	if err != nil {
		return "", nil, err
	}
	param, err := valueToParam(cmp.Value)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", cmp.Accessor.Key, err)
	}
	lhs, rhs := operands(cmp.Accessor.Kind, col)
	return fmt.Sprintf("(%s IS NOT NULL AND %s %s %s)", col, lhs, op, rhs), []any{param}, nil
}

func (c *SQLCompiler) compileIn(in predicate.BoundIn) (string, []any, error) {
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil
	}
	col, err := column(in.Accessor.Column)
	if err != nil {
		return "", nil, err
	}
	lhs, rhs := operands(in.Accessor.Kind, col)
	holders := make([]string, len(in.Values))
	params := make([]any, len(in.Values))
	for i, v := range in.Values {
		if params[i], err = valueToParam(v); err != nil {
			return "", nil, fmt.Errorf("%s: %w", in.Accessor.Key, err)
		}
		holders[i] = rhs
	}
	return fmt.Sprintf("(%s IS NOT NULL AND %s IN (%s))", col, lhs, strings.Join(holders, ", ")), params, nil
}

// column returns the JSON extraction expression for a stored column.
func column(name string) (string, error) {
	if !columnPattern.MatchString(name) {
		return "", fmt.Errorf("invalid column name %q", name)
	}
	return fmt.Sprintf("json_extract(payload, '$.%s')", name), nil
}

// operands wraps both sides of a comparison so SQLite compares them in the
// field's domain. Decimals are stored as strings and compare numerically;
// times compare as instants rather than as text.
func operands(k ir.Kind, col string) (lhs, rhs string) {
	switch k {
	case ir.KindDecimal:
		return "CAST(" + col + " AS NUMERIC)", "CAST(? AS NUMERIC)"
	case ir.KindTime:
		return "julianday(" + col + ")", "julianday(?)"
	}
	return col, "?"
}

// valueToParam converts a bound literal to a driver parameter. The encoding
// matches the canonical payload encoding, so equality on strings, times and
// bytes is exact.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		// json_extract yields 1 or 0 for JSON booleans.
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.Decimal:
		return val.Decimal.String(), nil
	case ir.Time:
		return val.UTC().Format(ir.TimeLayout), nil
	case ir.Bytes:
		return base64.StdEncoding.EncodeToString(val), nil
	case ir.Null, nil:
		return nil, fmt.Errorf("null cannot be used as a comparison operand")
	case ir.List:
		return nil, fmt.Errorf("list cannot be used as SQL parameter directly")
	case ir.Object:
		return nil, fmt.Errorf("object cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
