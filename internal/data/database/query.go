// Package database builds parameterized list queries with sanitized identifiers.
package database

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Op is a comparison operator.
type Op string

const (
	Equal              Op = "="
	NotEqual           Op = "!="
	GreaterThan        Op = ">"
	LessThan           Op = "<"
	GreaterThanOrEqual Op = ">="
	LessThanOrEqual    Op = "<="
	ILike              Op = "ILIKE"
	In                 Op = "IN"

	noLimit = -1
)

// Condition compares one column with a value. In expects a slice.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Condition.
func Where(field string, op Op, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// ListQuery describes a SELECT over one table.
type ListQuery struct {
	Table      string
	Columns    []string
	Conditions []Condition
	OrderBy    string
	Desc       bool
	Limit      int
}

// Option configures a ListQuery.
type Option func(*ListQuery)

// NewListQuery returns a query selecting every column with no limit.
func NewListQuery(table string, opts ...Option) *ListQuery {
	q := &ListQuery{Table: table, Limit: noLimit}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// WithColumns sets the selected columns.
func WithColumns(cols ...string) Option {
	return func(q *ListQuery) { q.Columns = cols }
}

// WithCondition adds cond when keep is true, so optional filters read inline.
func WithCondition(keep bool, cond Condition) Option {
	return func(q *ListQuery) {
		if keep {
			q.Conditions = append(q.Conditions, cond)
		}
	}
}

// WithOrderBy orders by column, descending when desc is set.
func WithOrderBy(column string, desc bool) Option {
	return func(q *ListQuery) {
		q.OrderBy = column
		q.Desc = desc
	}
}

// WithLimit sets the row limit. Negative values are ignored.
func WithLimit(limit int) Option {
	return func(q *ListQuery) {
		if limit >= 0 {
			q.Limit = limit
		}
	}
}

// Build renders the SQL text and its positional arguments.
func (q *ListQuery) Build() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		cols := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			cols[i] = sanitizeQualified(c)
		}
		b.WriteString(strings.Join(cols, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(pgx.Identifier{q.Table}.Sanitize())

	var where []string
	for _, cond := range q.Conditions {
		clause, condArgs := renderCondition(cond, len(args)+1)
		if clause == "" {
			continue
		}
		where = append(where, clause)
		args = append(args, condArgs...)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(sanitizeQualified(q.OrderBy))
		if q.Desc {
			b.WriteString(" DESC")
		}
	}
	if q.Limit != noLimit {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func renderCondition(cond Condition, next int) (string, []any) {
	if cond.Field == "" {
		return "", nil
	}
	field := sanitizeQualified(cond.Field)
	switch cond.Op {
	case In:
		rv := reflect.ValueOf(cond.Value)
		if rv.Kind() != reflect.Slice || rv.Len() == 0 {
			return "", nil
		}
		placeholders := make([]string, rv.Len())
		args := make([]any, rv.Len())
		for i := range rv.Len() {
			placeholders[i] = fmt.Sprintf("$%d", next+i)
			args[i] = rv.Index(i).Interface()
		}
		return fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", ")), args
	case Equal, NotEqual, GreaterThan, LessThan, GreaterThanOrEqual, LessThanOrEqual, ILike:
		return fmt.Sprintf("%s %s $%d", field, cond.Op, next), []any{cond.Value}
	default:
		return "", nil
	}
}

func sanitizeQualified(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}
