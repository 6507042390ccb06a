package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPageClause(t *testing.T) {
	q, args := pageClause("SELECT 1 WHERE a = $1", []any{"x"}, 10, 20)
	assert.Equal(t, "SELECT 1 WHERE a = $1 LIMIT $2 OFFSET $3", q)
	assert.Equal(t, []any{"x", 10, 20}, args)

	q, args = pageClause("SELECT 1", nil, 0, 5)
	assert.Equal(t, "SELECT 1", q, "limit 0 devuelve todo")
	assert.Empty(t, args)
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, isUniqueViolation(unique))
	assert.False(t, isSerializationFailure(unique))

	assert.True(t, isSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isSerializationFailure(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isUniqueViolation(errors.New("otro")))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", derefString(nullIfEmpty("x")))
	assert.Equal(t, "", derefString(nil))
}
