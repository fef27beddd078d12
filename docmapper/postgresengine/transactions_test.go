package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_IsSerializationFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "pgx serialization failure",
			err:      &pgconn.PgError{Code: "40001"},
			expected: true,
		},
		{
			name:     "pgx deadlock",
			err:      &pgconn.PgError{Code: "40P01"},
			expected: true,
		},
		{
			name:     "pgx unique violation is not a serialization failure",
			err:      &pgconn.PgError{Code: "23505"},
			expected: false,
		},
		{
			name:     "pq serialization failure",
			err:      &pq.Error{Code: "40001"},
			expected: true,
		},
		{
			name:     "pq deadlock",
			err:      &pq.Error{Code: "40P01"},
			expected: true,
		},
		{
			name:     "wrapped pgx serialization failure",
			err:      fmt.Errorf("commit failed: %w", &pgconn.PgError{Code: "40001"}),
			expected: true,
		},
		{
			name:     "joined pq serialization failure",
			err:      errors.Join(ErrExecFailed, &pq.Error{Code: "40001"}),
			expected: true,
		},
		{
			name:     "plain error",
			err:      errors.New("connection reset"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isSerializationFailure(tt.err))
		})
	}
}

func Test_Engine_TransactionalOperations_RejectForeignTransactionContext(t *testing.T) {
	engine, engineErr := newEngine(nil)
	require.NoError(t, engineErr)

	ctx := context.Background()
	collection := collectionHandle{scope: "app", name: "accounts"}
	foreignTx := "not a transaction"

	t.Run("get", func(t *testing.T) {
		_, err := engine.GetInTransaction(ctx, foreignTx, collection, "acc-1")
		assert.ErrorIs(t, err, ErrForeignTransactionContext)
	})

	t.Run("insert", func(t *testing.T) {
		_, err := engine.InsertInTransaction(ctx, foreignTx, collection, "acc-1", []byte(`{}`))
		assert.ErrorIs(t, err, ErrForeignTransactionContext)
	})

	t.Run("replace", func(t *testing.T) {
		_, err := engine.ReplaceInTransaction(ctx, foreignTx, collection, "acc-1", []byte(`{}`), 1)
		assert.ErrorIs(t, err, ErrForeignTransactionContext)
	})

	t.Run("remove", func(t *testing.T) {
		err := engine.RemoveInTransaction(ctx, foreignTx, collection, "acc-1", 1)
		assert.ErrorIs(t, err, ErrForeignTransactionContext)
	})

	t.Run("exists", func(t *testing.T) {
		_, err := engine.ExistsInTransaction(ctx, foreignTx, collection, "acc-1")
		assert.ErrorIs(t, err, ErrForeignTransactionContext)
	})

	t.Run("nil transaction", func(t *testing.T) {
		var nilTx *Transaction
		_, err := engine.GetInTransaction(ctx, nilTx, collection, "acc-1")
		assert.ErrorIs(t, err, ErrForeignTransactionContext)
	})
}
