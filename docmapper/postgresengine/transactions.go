package postgresengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/lacinoire/spring-data-couchbase/docmapper"
	"github.com/lacinoire/spring-data-couchbase/docmapper/postgresengine/internal/adapters"
)

var (
	ErrBeginTransactionFailed    = errors.New("failed to begin database transaction")
	ErrCommitTransactionFailed   = errors.New("failed to commit database transaction")
	ErrRollbackTransactionFailed = errors.New("failed to roll back database transaction")
	ErrForeignTransactionContext = errors.New("transaction context was not created by this engine")
)

const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"

	logMsgBeginTxFailed    = "failed to begin database transaction"
	logMsgCommitTxFailed   = "failed to commit database transaction"
	logMsgRollbackTxFailed = "failed to roll back database transaction"
)

// Transaction is an open serializable database transaction. Pass it to the
// engine's *InTransaction methods, or attach it to a context with
// docmapper.WithTransaction so a Template routes its operations through it.
type Transaction struct {
	tx adapters.DBTransaction
}

// BeginTransaction opens a serializable transaction on the underlying database.
// The caller must finish it with Commit or Rollback.
func (e *Engine) BeginTransaction(ctx context.Context) (*Transaction, error) {
	tx, beginErr := e.db.Begin(ctx)
	if beginErr != nil {
		e.logError(logMsgBeginTxFailed, beginErr)
		return nil, errors.Join(ErrBeginTransactionFailed, beginErr)
	}

	return &Transaction{tx: tx}, nil
}

// Commit commits the transaction. A serialization failure or deadlock reported
// by Postgres surfaces as docmapper.ErrTransactionConflict so callers can retry.
func (t *Transaction) Commit(ctx context.Context) error {
	if commitErr := t.tx.Commit(ctx); commitErr != nil {
		if isSerializationFailure(commitErr) {
			return errors.Join(docmapper.ErrTransactionConflict, commitErr)
		}

		return errors.Join(ErrCommitTransactionFailed, commitErr)
	}

	return nil
}

// Rollback aborts the transaction. Rolling back an already finished
// transaction is not an error.
func (t *Transaction) Rollback(ctx context.Context) error {
	if rollbackErr := t.tx.Rollback(ctx); rollbackErr != nil {
		return errors.Join(ErrRollbackTransactionFailed, rollbackErr)
	}

	return nil
}

func (t *Transaction) Query(ctx context.Context, query string) (adapters.DBRows, error) {
	return t.tx.Query(ctx, query)
}

func (t *Transaction) Exec(ctx context.Context, query string) (adapters.DBResult, error) {
	return t.tx.Exec(ctx, query)
}

// WithinTransaction begins a serializable transaction, attaches it to the
// context, and runs fn. It commits when fn succeeds and rolls back otherwise.
func (e *Engine) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, beginErr := e.BeginTransaction(ctx)
	if beginErr != nil {
		return beginErr
	}

	if fnErr := fn(docmapper.WithTransaction(ctx, tx)); fnErr != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			e.logError(logMsgRollbackTxFailed, rollbackErr)
		}

		if isSerializationFailure(fnErr) {
			return errors.Join(docmapper.ErrTransactionConflict, fnErr)
		}

		return fnErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logError(logMsgCommitTxFailed, commitErr)

		return commitErr
	}

	return nil
}

// GetInTransaction reads a document through an open transaction.
func (e *Engine) GetInTransaction(
	ctx context.Context,
	tx docmapper.TransactionContext,
	collection docmapper.CollectionHandle,
	id string,
) (docmapper.FetchResult, error) {

	runner, txErr := e.transactionOf(tx)
	if txErr != nil {
		return docmapper.FetchResult{}, txErr
	}

	return e.get(ctx, runner, collection, id)
}

// InsertInTransaction writes a new document through an open transaction.
func (e *Engine) InsertInTransaction(
	ctx context.Context,
	tx docmapper.TransactionContext,
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
) (docmapper.WriteResult, error) {

	runner, txErr := e.transactionOf(tx)
	if txErr != nil {
		return docmapper.WriteResult{}, txErr
	}

	result, insertErr := e.insert(ctx, runner, collection, id, payload)
	if insertErr != nil {
		return docmapper.WriteResult{}, e.asTransactionError(insertErr)
	}

	return result, nil
}

// ReplaceInTransaction overwrites a document through an open transaction,
// conditionally when the version token is non-zero.
func (e *Engine) ReplaceInTransaction(
	ctx context.Context,
	tx docmapper.TransactionContext,
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
	version docmapper.VersionTokenInt64,
) (docmapper.WriteResult, error) {

	runner, txErr := e.transactionOf(tx)
	if txErr != nil {
		return docmapper.WriteResult{}, txErr
	}

	result, replaceErr := e.replace(ctx, runner, collection, id, payload, version)
	if replaceErr != nil {
		return docmapper.WriteResult{}, e.asTransactionError(replaceErr)
	}

	return result, nil
}

// RemoveInTransaction deletes a document through an open transaction.
func (e *Engine) RemoveInTransaction(
	ctx context.Context,
	tx docmapper.TransactionContext,
	collection docmapper.CollectionHandle,
	id string,
	version docmapper.VersionTokenInt64,
) error {

	runner, txErr := e.transactionOf(tx)
	if txErr != nil {
		return txErr
	}

	if removeErr := e.remove(ctx, runner, collection, id, version); removeErr != nil {
		return e.asTransactionError(removeErr)
	}

	return nil
}

// ExistsInTransaction reports document existence through an open transaction.
func (e *Engine) ExistsInTransaction(
	ctx context.Context,
	tx docmapper.TransactionContext,
	collection docmapper.CollectionHandle,
	id string,
) (bool, error) {

	runner, txErr := e.transactionOf(tx)
	if txErr != nil {
		return false, txErr
	}

	return e.exists(ctx, runner, collection, id)
}

func (e *Engine) transactionOf(tx docmapper.TransactionContext) (*Transaction, error) {
	transaction, ok := tx.(*Transaction)
	if !ok || transaction == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignTransactionContext, tx)
	}

	return transaction, nil
}

// asTransactionError maps serialization failures raised by a statement inside
// the transaction onto docmapper.ErrTransactionConflict.
func (e *Engine) asTransactionError(err error) error {
	if isSerializationFailure(err) {
		return errors.Join(docmapper.ErrTransactionConflict, err)
	}

	return err
}

// isSerializationFailure reports whether err carries a Postgres serialization
// failure or deadlock code, for both the pgx and the database/sql drivers.
func isSerializationFailure(err error) bool {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgCodeSerializationFailure || pgxErr.Code == pgCodeDeadlockDetected
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == pgCodeSerializationFailure || code == pgCodeDeadlockDetected
	}

	return false
}
