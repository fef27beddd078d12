package postgresengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/lacinoire/spring-data-couchbase/docmapper"
	"github.com/lacinoire/spring-data-couchbase/docmapper/postgresengine/internal/adapters"
)

// Insert writes a new document, failing with docmapper.ErrDocumentExists when
// one is already stored under id. The returned version token is the initial one.
func (e *Engine) Insert(
	ctx context.Context,
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
) (docmapper.WriteResult, error) {

	return e.insert(ctx, e.db, collection, id, payload)
}

// Upsert writes a document unconditionally, creating it with the initial
// version token or incrementing the stored one.
func (e *Engine) Upsert(
	ctx context.Context,
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
) (docmapper.WriteResult, error) {

	return e.upsert(ctx, e.db, collection, id, payload)
}

// Replace overwrites the stored document. A non-zero version token makes the
// write conditional: docmapper.ErrCASMismatch when the stored token differs,
// docmapper.ErrDocumentNotFound when no document exists under id.
func (e *Engine) Replace(
	ctx context.Context,
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
	version docmapper.VersionTokenInt64,
) (docmapper.WriteResult, error) {

	return e.replace(ctx, e.db, collection, id, payload, version)
}

// Remove deletes the stored document, conditionally when the version token is non-zero.
func (e *Engine) Remove(
	ctx context.Context,
	collection docmapper.CollectionHandle,
	id string,
	version docmapper.VersionTokenInt64,
) error {

	return e.remove(ctx, e.db, collection, id, version)
}

func (e *Engine) insert(
	ctx context.Context,
	runner queryRunner,
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
) (docmapper.WriteResult, error) {

	var empty docmapper.WriteResult

	query, buildErr := e.buildInsertQuery(collection, id, payload)
	if buildErr != nil {
		return empty, buildErr
	}

	rows, queryErr := e.runQuery(ctx, runner, query, logActionInsert)
	if queryErr != nil {
		return empty, queryErr
	}
	defer e.closeRows(rows)

	// ON CONFLICT DO NOTHING returns no row when a document already exists.
	if !rows.Next() {
		return empty, fmt.Errorf("%w: %s", docmapper.ErrDocumentExists, id)
	}

	return e.scanWriteResult(rows, id)
}

func (e *Engine) upsert(
	ctx context.Context,
	runner queryRunner,
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
) (docmapper.WriteResult, error) {

	var empty docmapper.WriteResult

	query, buildErr := e.buildUpsertQuery(collection, id, payload)
	if buildErr != nil {
		return empty, buildErr
	}

	rows, queryErr := e.runQuery(ctx, runner, query, logActionUpsert)
	if queryErr != nil {
		return empty, queryErr
	}
	defer e.closeRows(rows)

	if !rows.Next() {
		return empty, errors.Join(ErrQueryFailed, fmt.Errorf("upsert of document %q returned no row", id))
	}

	return e.scanWriteResult(rows, id)
}

func (e *Engine) replace(
	ctx context.Context,
	runner queryRunner,
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
	version docmapper.VersionTokenInt64,
) (docmapper.WriteResult, error) {

	var empty docmapper.WriteResult

	query, buildErr := e.buildReplaceQuery(collection, id, payload, version)
	if buildErr != nil {
		return empty, buildErr
	}

	rows, queryErr := e.runQuery(ctx, runner, query, logActionReplace)
	if queryErr != nil {
		return empty, queryErr
	}
	defer e.closeRows(rows)

	if !rows.Next() {
		return empty, e.missingRowError(ctx, runner, collection, id, version)
	}

	return e.scanWriteResult(rows, id)
}

func (e *Engine) remove(
	ctx context.Context,
	runner queryRunner,
	collection docmapper.CollectionHandle,
	id string,
	version docmapper.VersionTokenInt64,
) error {

	query, buildErr := e.buildRemoveQuery(collection, id, version)
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, execErr := e.runExec(ctx, runner, query, logActionRemove)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return e.missingRowError(ctx, runner, collection, id, version)
	}

	return nil
}

// missingRowError decides why a conditional write affected no row: a stale
// version token when the document still exists, a missing document otherwise.
func (e *Engine) missingRowError(
	ctx context.Context,
	runner queryRunner,
	collection docmapper.CollectionHandle,
	id string,
	version docmapper.VersionTokenInt64,
) error {

	if version != 0 {
		found, existsErr := e.exists(ctx, runner, collection, id)
		if existsErr != nil {
			return existsErr
		}

		if found {
			return fmt.Errorf("%w: %s", docmapper.ErrCASMismatch, id)
		}
	}

	return fmt.Errorf("%w: %s", docmapper.ErrDocumentNotFound, id)
}

func (e *Engine) scanWriteResult(rows adapters.DBRows, id string) (docmapper.WriteResult, error) {
	var version int64

	if scanErr := rows.Scan(&version); scanErr != nil {
		e.logError(logMsgScanRowFailed, scanErr)
		return docmapper.WriteResult{}, errors.Join(ErrScanRowFailed, scanErr)
	}

	return docmapper.WriteResult{ID: id, Version: version}, nil
}

func (e *Engine) buildInsertQuery(
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
) (sqlQueryString, error) {

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(e.documentTableName).
		Cols(colScopeName, colCollectionName, colDocumentID, colPayload, colVersion).
		Vals(goqu.Vals{
			collection.ScopeName(),
			collection.CollectionName(),
			id,
			goqu.L(castJsonb, string(payload)),
			initialVersion,
		}).
		OnConflict(goqu.DoNothing()).
		Returning(colVersion)

	return e.toSQL(insertStmt.ToSQL())
}

func (e *Engine) buildUpsertQuery(
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
) (sqlQueryString, error) {

	conflictTarget := fmt.Sprintf("%s, %s, %s", colScopeName, colCollectionName, colDocumentID)

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(e.documentTableName).
		Cols(colScopeName, colCollectionName, colDocumentID, colPayload, colVersion).
		Vals(goqu.Vals{
			collection.ScopeName(),
			collection.CollectionName(),
			id,
			goqu.L(castJsonb, string(payload)),
			initialVersion,
		}).
		OnConflict(goqu.DoUpdate(conflictTarget, goqu.Record{
			colPayload: goqu.L(castJsonb, string(payload)),
			colVersion: goqu.L(fmt.Sprintf("%s.%s + 1", e.documentTableName, colVersion)),
		})).
		Returning(colVersion)

	return e.toSQL(insertStmt.ToSQL())
}

func (e *Engine) buildReplaceQuery(
	collection docmapper.CollectionHandle,
	id string,
	payload []byte,
	version docmapper.VersionTokenInt64,
) (sqlQueryString, error) {

	whereExpressions := e.keyExpressions(collection, id)
	if version != 0 {
		whereExpressions = append(whereExpressions, goqu.C(colVersion).Eq(version))
	}

	updateStmt := goqu.Dialect(dialectPostgres).
		Update(e.documentTableName).
		Set(goqu.Record{
			colPayload: goqu.L(castJsonb, string(payload)),
			colVersion: goqu.L(fmt.Sprintf("%s + 1", colVersion)),
		}).
		Where(whereExpressions...).
		Returning(colVersion)

	return e.toSQL(updateStmt.ToSQL())
}

func (e *Engine) buildRemoveQuery(
	collection docmapper.CollectionHandle,
	id string,
	version docmapper.VersionTokenInt64,
) (sqlQueryString, error) {

	whereExpressions := e.keyExpressions(collection, id)
	if version != 0 {
		whereExpressions = append(whereExpressions, goqu.C(colVersion).Eq(version))
	}

	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(e.documentTableName).
		Where(whereExpressions...)

	return e.toSQL(deleteStmt.ToSQL())
}
