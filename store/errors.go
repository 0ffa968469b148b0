package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"projectflow/models"
	"projectflow/utils"
)

// Common errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("conflict")
	ErrRestricted       = fmt.Errorf("%w: dependent records exist", ErrConflict)
	ErrInvalidInput     = errors.New("invalid input")
	ErrForbidden        = errors.New("permission denied")
	ErrConnectionFailed = errors.New("database connection failed")
)

// Error provides detailed error information
type Error struct {
	Op        string            // Operation that failed
	Entity    models.EntityKind // Entity involved
	Detail    string            // Human readable detail
	Err       error             // Underlying error
	Retryable bool              // Whether the operation can be retried
}

func (e *Error) Error() string {
	parts := []string{"store: " + e.Op}
	if e.Entity != "" {
		parts = append(parts, "entity="+string(e.Entity))
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, kind models.EntityKind, err error, detail string) *Error {
	return &Error{Op: op, Entity: kind, Err: err, Detail: detail}
}

func notFound(op string, kind models.EntityKind) *Error {
	return newError(op, kind, ErrNotFound, "")
}

func invalid(op string, kind models.EntityKind, format string, args ...interface{}) *Error {
	return newError(op, kind, ErrInvalidInput, fmt.Sprintf(format, args...))
}

func conflict(op string, kind models.EntityKind, format string, args ...interface{}) *Error {
	return newError(op, kind, ErrConflict, fmt.Sprintf(format, args...))
}

func forbidden(op string, kind models.EntityKind, format string, args ...interface{}) *Error {
	return newError(op, kind, ErrForbidden, fmt.Sprintf(format, args...))
}

// Detail returns the human readable part of a store error, or its text.
func Detail(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return err.Error()
}

// translate converts driver and gorm errors into store errors
func translate(op string, kind models.EntityKind, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, sql.ErrNoRows):
		return notFound(op, kind)
	case isDuplicate(err):
		return &Error{Op: op, Entity: kind, Err: ErrConflict, Detail: "duplicate key"}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Op: op, Entity: kind, Err: ErrInvalidInput, Detail: "referenced record does not exist"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Op: op, Entity: kind, Err: err}
	case isConnectivity(err):
		return &Error{Op: op, Entity: kind, Err: fmt.Errorf("%w: %w", ErrConnectionFailed, err), Retryable: true}
	}
	return &Error{Op: op, Entity: kind, Err: err}
}

// ClassifyFailure decides whether a failed store call may be retried.
// Only connectivity failures are transient; everything else, including
// cancellation and constraint violations, is fatal.
func ClassifyFailure(err error) utils.FailureClass {
	if err == nil {
		return utils.Fatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return utils.Fatal
	}
	var se *Error
	if errors.As(err, &se) && se.Retryable {
		return utils.Transient
	}
	if errors.Is(err, ErrConnectionFailed) || isConnectivity(err) {
		return utils.Transient
	}
	return utils.Fatal
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 is connection exception, 57P01-57P03 are server shutdown
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection is closed") ||
		strings.Contains(msg, "broken pipe")
}
