package apperr

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrDuplicateKey       = New(KindConstraint, "duplicate_key", "record already exists")
	ErrForeignKey         = New(KindConstraint, "foreign_key_violation", "referenced record does not exist")
	ErrNotNull            = New(KindConstraint, "not_null_violation", "required value is missing")
	ErrCheckViolation     = New(KindConstraint, "check_violation", "value violates a check constraint")
	ErrConstraintFallback = New(KindConstraint, "constraint_violation", "database constraint violated")
)

// FromDB maps driver constraint errors (Postgres, MySQL, SQLite) onto ConstraintViolation
// errors. Anything else is returned unchanged.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicateKey.WithMessage("duplicate value violates %s", constraintName(pgErr.ConstraintName)).Wrap(err)
		case "23503":
			return ErrForeignKey.Wrap(err)
		case "23502":
			return ErrNotNull.WithMessage("column %s is required", pgErr.ColumnName).Wrap(err)
		case "23514":
			return ErrCheckViolation.WithMessage("value violates %s", constraintName(pgErr.ConstraintName)).Wrap(err)
		}
		if strings.HasPrefix(pgErr.Code, "23") {
			return ErrConstraintFallback.Wrap(err)
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return ErrDuplicateKey.Wrap(err)
		case 1451, 1452:
			return ErrForeignKey.Wrap(err)
		case 1048, 1364:
			return ErrNotNull.Wrap(err)
		case 3819:
			return ErrCheckViolation.Wrap(err)
		}
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey.Wrap(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrForeignKey.Wrap(err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return ErrCheckViolation.Wrap(err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"):
		return ErrDuplicateKey.Wrap(err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return ErrForeignKey.Wrap(err)
	case strings.Contains(msg, "not null constraint failed"):
		return ErrNotNull.Wrap(err)
	case strings.Contains(msg, "check constraint failed"):
		return ErrCheckViolation.Wrap(err)
	}
	return err
}

// IsDuplicate reports whether err is (or maps to) a unique-key violation.
func IsDuplicate(err error) bool {
	return errors.Is(FromDB(err), ErrDuplicateKey)
}

func constraintName(name string) string {
	if name == "" {
		return "a unique constraint"
	}
	return name
}
