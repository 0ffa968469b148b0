package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"projectflow/models"
	"projectflow/utils"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return New(db), mock
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      error
		retryable bool
	}{
		{name: "record not found", err: gorm.ErrRecordNotFound, want: ErrNotFound},
		{name: "gorm duplicate", err: gorm.ErrDuplicatedKey, want: ErrConflict},
		{name: "postgres unique violation", err: &pgconn.PgError{Code: "23505"}, want: ErrConflict},
		{name: "sqlite unique violation", err: errors.New("UNIQUE constraint failed: projects.key"), want: ErrConflict},
		{name: "foreign key", err: gorm.ErrForeignKeyViolated, want: ErrInvalidInput},
		{name: "bad connection", err: driver.ErrBadConn, want: ErrConnectionFailed, retryable: true},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, want: ErrConnectionFailed, retryable: true},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:5432: connection refused"), want: ErrConnectionFailed, retryable: true},
		{name: "canceled", err: context.Canceled, want: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate("op", models.KindProject, tt.err)
			assert.ErrorIs(t, err, tt.want)
			var se *Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.retryable, se.Retryable)
			assert.Equal(t, models.KindProject, se.Entity)
		})
	}

	assert.NoError(t, translate("op", models.KindProject, nil))

	original := conflict("first", models.KindTask, "kept")
	assert.Same(t, original, translate("second", models.KindProject, original))
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want utils.FailureClass
	}{
		{name: "nil", err: nil, want: utils.Fatal},
		{name: "connectivity", err: translate("op", models.KindUser, &pgconn.PgError{Code: "08006"}), want: utils.Transient},
		{name: "raw bad conn", err: fmt.Errorf("query: %w", driver.ErrBadConn), want: utils.Transient},
		{name: "conflict", err: conflict("op", models.KindUser, "duplicate key"), want: utils.Fatal},
		{name: "not found", err: notFound("op", models.KindUser), want: utils.Fatal},
		{name: "undefined table", err: translate("op", models.KindUser, &pgconn.PgError{Code: "42P01"}), want: utils.Fatal},
		{name: "deadline", err: translate("op", models.KindUser, context.DeadlineExceeded), want: utils.Fatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFailure(tt.err))
		})
	}
}

func TestRetryRecoversFromDroppedConnection(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_active"}).AddRow(id.String(), "a@example.com", true))

	var slept []time.Duration
	policy := utils.RetryPolicy{Attempts: 3, Backoff: 10 * time.Millisecond, Sleep: func(d time.Duration) { slept = append(slept, d) }}
	u, err := utils.RetryValue(context.Background(), policy, ClassifyFailure, func(ctx context.Context) (*models.User, error) {
		return s.FindUserByEmail(ctx, "A@example.com", ReadOptions{IncludeDeleted: true})
	})
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, slept)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryGivesUpAfterBudget(t *testing.T) {
	s, mock := newMockStore(t)
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnError(&pgconn.PgError{Code: "57P01", Message: "terminating connection due to administrator command"})
	}

	var slept []time.Duration
	policy := utils.RetryPolicy{Attempts: 3, Backoff: time.Second, Sleep: func(d time.Duration) { slept = append(slept, d) }}
	_, err := utils.RetryValue(context.Background(), policy, ClassifyFailure, func(ctx context.Context) (*models.User, error) {
		return s.FindUserByEmail(ctx, "a@example.com", ReadOptions{})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFatalFailureIsNotRetried(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnError(&pgconn.PgError{Code: "42703", Message: "column does not exist"})

	calls := 0
	policy := utils.RetryPolicy{Attempts: 3, Sleep: func(time.Duration) {}}
	_, err := utils.RetryValue(context.Background(), policy, ClassifyFailure, func(ctx context.Context) (*models.User, error) {
		calls++
		return s.FindUserByEmail(ctx, "a@example.com", ReadOptions{})
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, utils.ErrRetriesExhausted)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
