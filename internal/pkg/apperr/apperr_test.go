package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

var errThingMissing = New(KindNotFound, "thing_not_found", "Thing not found")

func TestErrorIsMatchesCodeAndKind(t *testing.T) {
	err := fmt.Errorf("loading: %w", errThingMissing.WithDetails(map[string]any{"id": 7}))

	assert.ErrorIs(t, err, errThingMissing)
	assert.ErrorIs(t, err, NotFound)
	assert.NotErrorIs(t, err, Conflict)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestFromDB_Postgres(t *testing.T) {
	cases := map[string]*Error{
		"23505": ErrDuplicateKey,
		"23503": ErrForeignKey,
		"23502": ErrNotNull,
		"23514": ErrCheckViolation,
		"23P01": ErrConstraintFallback,
	}
	for code, want := range cases {
		err := FromDB(&pgconn.PgError{Code: code, ConstraintName: "idx_x"})
		assert.ErrorIs(t, err, want, code)
		assert.ErrorIs(t, err, Constraint, code)
	}

	other := &pgconn.PgError{Code: "40001"}
	assert.Same(t, other, FromDB(other))
}

func TestFromDB_MySQLAndSQLite(t *testing.T) {
	assert.ErrorIs(t, FromDB(&mysql.MySQLError{Number: 1062}), ErrDuplicateKey)
	assert.ErrorIs(t, FromDB(&mysql.MySQLError{Number: 1452}), ErrForeignKey)
	assert.ErrorIs(t, FromDB(errors.New("UNIQUE constraint failed: discount_codes.code")), ErrDuplicateKey)
	assert.ErrorIs(t, FromDB(errors.New("NOT NULL constraint failed: rooms.name")), ErrNotNull)
	assert.ErrorIs(t, FromDB(gorm.ErrDuplicatedKey), ErrDuplicateKey)
	assert.True(t, IsDuplicate(errors.New("UNIQUE constraint failed: x")))
	assert.NoError(t, FromDB(nil))
}
