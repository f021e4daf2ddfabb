package querybuilder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelect(t *testing.T) {
	query, args := NewQueryBuilder("public").
		Select("id", "status").
		From("execution_jobs").
		Where("id = ?", "job-1").
		AndGroup(func(qb QueryBuilder) {
			qb.Where("status = ?", "pending").Or("status = ?", "running")
		}).
		OrderBy("created_at", false).
		Limit(10).
		Build()

	assert.Equal(t, "SELECT id, status FROM public.execution_jobs WHERE id = ? AND (status = ? OR status = ?) ORDER BY created_at DESC LIMIT 10", query)
	assert.Equal(t, []interface{}{"job-1", "pending", "running"}, args)
}

func TestInsertOnConflict(t *testing.T) {
	query, args := NewQueryBuilder("").
		Insert("id", "status").
		Into("execution_jobs").
		Values("a", "pending").
		Values("b", "pending").
		OnConflict("id").DoNothing().
		Build()

	assert.Equal(t, "INSERT INTO execution_jobs (id, status) VALUES (?, ?), (?, ?) ON CONFLICT (id) DO NOTHING", query)
	assert.Equal(t, []interface{}{"a", "pending", "b", "pending"}, args)
}

func TestInsertRowWidthMismatch(t *testing.T) {
	query, args := NewQueryBuilder("").Insert("id", "status").Into("t").Values("a").Build()
	assert.Empty(t, query)
	assert.Nil(t, args)
}

func TestUpdateKeepsAssignmentOrder(t *testing.T) {
	query, args := NewQueryBuilder("public").
		Update("execution_jobs").
		Set("status", "running").
		Set("started_at", "now").
		Where("id = ?", "job-1").
		And("status = ?", "pending").
		Build()

	assert.Equal(t, "UPDATE public.execution_jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?", query)
	assert.Equal(t, []interface{}{"running", "now", "job-1", "pending"}, args)
}

func TestDelete(t *testing.T) {
	query, _ := NewQueryBuilder("").Delete("execution_jobs").Build()
	assert.Empty(t, query, "unconditional delete must not render")

	query, args := NewQueryBuilder("").Delete("execution_jobs").Where("completed_at < ?", 5).Build()
	assert.Equal(t, "DELETE FROM execution_jobs WHERE completed_at < ?", query)
	assert.Equal(t, []interface{}{5}, args)
}

func TestPlaceholdersMatchArgs(t *testing.T) {
	builds := map[string]QueryBuilder{
		"select": NewQueryBuilder("public").Select("id").From("execution_jobs").Where("id = ?", "a").And("status = ?", "pending"),
		"insert": NewQueryBuilder("public").Insert("id", "status").Into("execution_jobs").Values("a", "pending"),
		"update": NewQueryBuilder("public").Update("execution_jobs").Set("status", "running").Where("id = ?", "job-1").And("status = ?", "pending"),
		"delete": NewQueryBuilder("public").Delete("execution_jobs").Where("completed_at < ?", 5).And("status = ?", "failed"),
	}
	for name, qb := range builds {
		t.Run(name, func(t *testing.T) {
			query, args := qb.Build()
			assert.NotEmpty(t, query)
			assert.Equal(t, len(args), strings.Count(query, "?"), query)
		})
	}
}
