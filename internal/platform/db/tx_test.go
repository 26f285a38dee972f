package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConstraintViolationHelpers(t *testing.T) {
	unique := fmt.Errorf("insert role: %w", &pgconn.PgError{Code: "23505"})
	foreign := fmt.Errorf("insert grant: %w", &pgconn.PgError{Code: "23503"})

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(foreign))
	assert.True(t, IsForeignKeyViolation(foreign))
	assert.False(t, IsForeignKeyViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
