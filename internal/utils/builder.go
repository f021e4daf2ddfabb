package querybuilder

import (
	"fmt"
	"strings"
)

// QueryBuilder renders simple single-table statements with "?" placeholders.
// Callers rebind the placeholders for their driver (sqlx.Rebind).
type QueryBuilder interface {
	Select(cols ...string) QueryBuilder
	From(table string) QueryBuilder
	Where(clause string, args ...interface{}) QueryBuilder
	And(clause string, args ...interface{}) QueryBuilder
	Or(clause string, args ...interface{}) QueryBuilder
	AndGroup(fn func(qb QueryBuilder)) QueryBuilder
	OrderBy(col string, asc bool) QueryBuilder
	Limit(n int) QueryBuilder

	Insert(cols ...string) QueryBuilder
	Into(table string) QueryBuilder
	Values(values ...interface{}) QueryBuilder
	OnConflict(cols ...string) QueryBuilder
	DoNothing() QueryBuilder

	Update(table string) QueryBuilder
	Set(col string, value interface{}) QueryBuilder

	Delete(table string) QueryBuilder

	Build() (string, []interface{})

	getConditions() []Condition
}

type operation int

const (
	opSelect operation = iota
	opInsert
	opUpdate
	opDelete
)

type assignment struct {
	col   string
	value interface{}
}

type queryBuilder struct {
	schema     string
	table      string
	op         operation
	cols       []string
	conditions []Condition
	values     [][]interface{}
	sets       []assignment
	orderBy    []string
	limit      int
	onConflict []string
	doNothing  bool
}

func NewQueryBuilder(schema string) QueryBuilder {
	return &queryBuilder{schema: schema}
}

func (q *queryBuilder) Select(cols ...string) QueryBuilder {
	q.op = opSelect
	q.cols = append(q.cols, cols...)
	return q
}

func (q *queryBuilder) From(table string) QueryBuilder {
	q.table = table
	return q
}

func (q *queryBuilder) Where(clause string, args ...interface{}) QueryBuilder {
	return q.And(clause, args...)
}

func (q *queryBuilder) And(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, Condition{condType: CondTypeAnd, clause: clause, args: args})
	return q
}

func (q *queryBuilder) Or(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, Condition{condType: CondTypeOr, clause: clause, args: args})
	return q
}

func (q *queryBuilder) AndGroup(fn func(qb QueryBuilder)) QueryBuilder {
	sub := NewQueryBuilder(q.schema)
	fn(sub)
	q.conditions = append(q.conditions, Condition{condType: CondTypeAnd, subCond: sub.getConditions()})
	return q
}

func (q *queryBuilder) OrderBy(col string, asc bool) QueryBuilder {
	dir := "ASC"
	if !asc {
		dir = "DESC"
	}
	q.orderBy = append(q.orderBy, col+" "+dir)
	return q
}

func (q *queryBuilder) Limit(n int) QueryBuilder {
	q.limit = n
	return q
}

func (q *queryBuilder) Insert(cols ...string) QueryBuilder {
	q.op = opInsert
	q.cols = cols
	return q
}

func (q *queryBuilder) Into(table string) QueryBuilder {
	q.table = table
	return q
}

func (q *queryBuilder) Values(values ...interface{}) QueryBuilder {
	q.values = append(q.values, values)
	return q
}

func (q *queryBuilder) OnConflict(cols ...string) QueryBuilder {
	q.onConflict = cols
	return q
}

func (q *queryBuilder) DoNothing() QueryBuilder {
	q.doNothing = true
	return q
}

func (q *queryBuilder) Update(table string) QueryBuilder {
	q.op = opUpdate
	q.table = table
	return q
}

// Set appends an assignment; order is preserved in the rendered statement.
func (q *queryBuilder) Set(col string, value interface{}) QueryBuilder {
	q.sets = append(q.sets, assignment{col: col, value: value})
	return q
}

func (q *queryBuilder) Delete(table string) QueryBuilder {
	q.op = opDelete
	q.table = table
	return q
}

func (q *queryBuilder) getConditions() []Condition {
	return q.conditions
}

func (q *queryBuilder) qualified() string {
	if q.schema == "" {
		return q.table
	}
	return q.schema + "." + q.table
}

// Build renders the statement. An inconsistent insert (row width differs
// from the column list) renders as an empty query.
func (q *queryBuilder) Build() (string, []interface{}) {
	switch q.op {
	case opInsert:
		return q.buildInsert()
	case opUpdate:
		return q.buildUpdate()
	case opDelete:
		return q.buildDelete()
	default:
		return q.buildSelect()
	}
}

func (q *queryBuilder) buildSelect() (string, []interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(q.cols, ", "), q.qualified())
	args := q.appendWhere(&sb, nil)
	if len(q.orderBy) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(q.orderBy, ", "))
	}
	if q.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.limit)
	}
	return sb.String(), args
}

func (q *queryBuilder) buildInsert() (string, []interface{}) {
	if len(q.values) == 0 || len(q.cols) == 0 {
		return "", nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.cols)), ", ")
	tuples := make([]string, 0, len(q.values))
	args := make([]interface{}, 0, len(q.values)*len(q.cols))
	for _, row := range q.values {
		if len(row) != len(q.cols) {
			return "", nil
		}
		tuples = append(tuples, "("+placeholders+")")
		args = append(args, row...)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES %s", q.qualified(), strings.Join(q.cols, ", "), strings.Join(tuples, ", "))
	if len(q.onConflict) > 0 && q.doNothing {
		fmt.Fprintf(&sb, " ON CONFLICT (%s) DO NOTHING", strings.Join(q.onConflict, ", "))
	}
	return sb.String(), args
}

func (q *queryBuilder) buildUpdate() (string, []interface{}) {
	if len(q.sets) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(q.sets))
	args := make([]interface{}, 0, len(q.sets))
	for _, s := range q.sets {
		clauses = append(clauses, s.col+" = ?")
		args = append(args, s.value)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s", q.qualified(), strings.Join(clauses, ", "))
	args = q.appendWhere(&sb, args)
	return sb.String(), args
}

// buildDelete refuses to render an unconditional delete.
func (q *queryBuilder) buildDelete() (string, []interface{}) {
	if len(q.conditions) == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString("DELETE FROM " + q.qualified())
	args := q.appendWhere(&sb, nil)
	return sb.String(), args
}

func (q *queryBuilder) appendWhere(sb *strings.Builder, args []interface{}) []interface{} {
	if len(q.conditions) == 0 {
		return args
	}
	clause, condArgs := buildCondition(q.conditions)
	sb.WriteString(" WHERE " + clause)
	return append(args, condArgs...)
}
