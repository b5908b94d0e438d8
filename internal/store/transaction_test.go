package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction(t *testing.T) {
	t.Parallel()

	fnErr := errors.New("function failed")
	dbErr := errors.New("database unavailable")

	testCases := []struct {
		name      string
		setup     func(mock sqlmock.Sqlmock)
		fn        TxFn
		wantErrIs []error
		contains  string
	}{
		{
			name: "commit on success",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			fn: func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, "UPDATE users SET current_workload = 10")
				return err
			},
		},
		{
			name: "rollback on function error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return fnErr },
			wantErrIs: []error{fnErr},
		},
		{
			name: "begin failure",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(dbErr)
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErrIs: []error{ErrTransactionFailed, dbErr},
			contains:  "begin",
		},
		{
			name: "commit failure",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(dbErr)
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErrIs: []error{ErrTransactionFailed, dbErr},
			contains:  "commit",
		},
		{
			name: "rollback failure keeps original error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback().WillReturnError(dbErr)
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return fnErr },
			wantErrIs: []error{fnErr},
			contains:  "error rolling back transaction",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tc.setup(mock)
			err = RunInTransaction(context.Background(), db, tc.fn)

			if len(tc.wantErrIs) == 0 {
				assert.NoError(t, err)
			}
			for _, target := range tc.wantErrIs {
				assert.ErrorIs(t, err, target)
			}
			if tc.contains != "" {
				assert.Contains(t, err.Error(), tc.contains)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunInTransaction_Panic(t *testing.T) {
	t.Parallel()

	for _, rollbackErr := range []error{nil, errors.New("rollback failed")} {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(rollbackErr)

		assert.PanicsWithValue(t, "boom", func() {
			_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	}
}
