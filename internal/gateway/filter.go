package gateway

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"modernc.org/sqlite"
)

// foldFunc lower-cases text with Unicode rules. The SQLite built-in LOWER and
// LIKE only fold ASCII letters.
const foldFunc = "unicode_lower"

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

// Filter accumulates conditions for a record query. Field names are always
// supplied by code; values, including search keywords, are bound as query
// parameters and never spliced into the SQL text.
type Filter struct {
	exprs []dbx.Expression
}

func Where() *Filter {
	return &Filter{}
}

// Eq requires field to equal value.
func (f *Filter) Eq(field string, value any) *Filter {
	f.exprs = append(f.exprs, dbx.HashExp{field: value})
	return f
}

// In requires field to be one of values. An empty list matches nothing.
func (f *Filter) In(field string, values ...any) *Filter {
	f.exprs = append(f.exprs, dbx.In(field, values...))
	return f
}

// Contains requires keyword to appear, case-insensitively, in at least one
// of fields. A blank keyword leaves the filter unchanged.
func (f *Filter) Contains(keyword string, fields ...string) *Filter {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || len(fields) == 0 {
		return f
	}

	param := fmt.Sprintf("contains%d", len(f.exprs))
	params := dbx.Params{param: "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"}

	likes := make([]dbx.Expression, 0, len(fields))
	for _, field := range fields {
		likes = append(likes, dbx.NewExp(
			fmt.Sprintf(`%s([[%s]]) LIKE {:%s} ESCAPE '\'`, foldFunc, field, param),
			params,
		))
	}
	f.exprs = append(f.exprs, dbx.Or(likes...))
	return f
}

// Exprs returns the accumulated conditions, meant to be AND-ed together.
func (f *Filter) Exprs() []dbx.Expression {
	if f == nil {
		return nil
	}
	return f.exprs
}

// Expr returns the conditions joined with AND, or nil when there are none.
func (f *Filter) Expr() dbx.Expression {
	if f == nil || len(f.exprs) == 0 {
		return nil
	}
	return dbx.And(f.exprs...)
}
