package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/lacinoire/spring-data-couchbase/docmapper"
	"github.com/lacinoire/spring-data-couchbase/docmapper/postgresengine/internal/adapters"
)

var (
	ErrNilDatabaseConnection = errors.New("nil database connection supplied")
	ErrEmptyTableName        = errors.New("empty table name supplied")
	ErrBuildingQueryFailed   = errors.New("failed to build sql query")
	ErrQueryFailed           = errors.New("database query execution failed")
	ErrExecFailed            = errors.New("database execution failed")
	ErrScanRowFailed         = errors.New("failed to scan database row")
	ErrRowsAffectedFailed    = errors.New("failed to get rows affected count")
)

const (
	defaultDocumentTableName = "documents"
	defaultCatalogTableName  = "collections"

	colScopeName      = "scope_name"
	colCollectionName = "collection_name"
	colDocumentID     = "document_id"
	colPayload        = "payload"
	colVersion        = "version"

	dialectPostgres = "postgres"
	castJsonb       = "?::jsonb"

	initialVersion = 1

	logMsgBuildQueryFailed = "failed to build sql query"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgDBExecFailed     = "database execution failed"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgSQLExecuted      = "executed sql for: "
	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrDurationMS      = "duration_ms"
	logActionResolve       = "resolve"
	logActionGet           = "get"
	logActionInsert        = "insert"
	logActionUpsert        = "upsert"
	logActionReplace       = "replace"
	logActionRemove        = "remove"
	logActionExists        = "exists"
)

type sqlQueryString = string

// queryRunner is satisfied by both the pooled adapter and an open transaction.
type queryRunner interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// Engine stores versioned documents in Postgres. It implements the docmapper
// CollectionResolver, Executor, and TransactionalExecutor interfaces.
type Engine struct {
	db                adapters.DBAdapter
	documentTableName string
	catalogTableName  string
	logger            docmapper.Logger
	handles           *xsync.MapOf[string, docmapper.CollectionHandle]
}

// NewEngineFromPGXPool creates a new Engine using a pgx Pool with optional configuration.
func NewEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), options...)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional configuration.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), options...)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional configuration.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), options...)
}

func newEngine(db adapters.DBAdapter, options ...Option) (*Engine, error) {
	e := &Engine{
		db:                db,
		documentTableName: defaultDocumentTableName,
		catalogTableName:  defaultCatalogTableName,
		handles:           xsync.NewMapOf[string, docmapper.CollectionHandle](),
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// collectionHandle is the engine's resolved scope/collection pair.
type collectionHandle struct {
	scope string
	name  string
}

func (h collectionHandle) ScopeName() string {
	return h.scope
}

func (h collectionHandle) CollectionName() string {
	return h.name
}

// Resolve looks up the scope/collection pair in the catalog table, caching
// resolved handles. It fails with docmapper.ErrCollectionNotFound when the
// pair is not cataloged.
func (e *Engine) Resolve(ctx context.Context, scopeName string, collectionName string) (docmapper.CollectionHandle, error) {
	cacheKey := scopeName + "/" + collectionName
	if handle, ok := e.handles.Load(cacheKey); ok {
		return handle, nil
	}

	query, buildErr := e.buildCatalogQuery(scopeName, collectionName)
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := e.runQuery(ctx, e.db, query, logActionResolve)
	if queryErr != nil {
		return nil, queryErr
	}
	defer e.closeRows(rows)

	if !rows.Next() {
		return nil, fmt.Errorf("%w: %s.%s", docmapper.ErrCollectionNotFound, scopeName, collectionName)
	}

	handle := collectionHandle{scope: scopeName, name: collectionName}
	e.handles.Store(cacheKey, handle)

	return handle, nil
}

// Get reads the payload and version token of the document stored under id.
func (e *Engine) Get(ctx context.Context, collection docmapper.CollectionHandle, id string) (docmapper.FetchResult, error) {
	return e.get(ctx, e.db, collection, id)
}

// Exists reports whether a document is stored under id.
func (e *Engine) Exists(ctx context.Context, collection docmapper.CollectionHandle, id string) (bool, error) {
	return e.exists(ctx, e.db, collection, id)
}

func (e *Engine) get(
	ctx context.Context,
	runner queryRunner,
	collection docmapper.CollectionHandle,
	id string,
) (docmapper.FetchResult, error) {

	var empty docmapper.FetchResult

	query, buildErr := e.buildGetQuery(collection, id)
	if buildErr != nil {
		return empty, buildErr
	}

	rows, queryErr := e.runQuery(ctx, runner, query, logActionGet)
	if queryErr != nil {
		return empty, queryErr
	}
	defer e.closeRows(rows)

	if !rows.Next() {
		return empty, fmt.Errorf("%w: %s", docmapper.ErrDocumentNotFound, id)
	}

	var payload []byte
	var version int64

	if scanErr := rows.Scan(&payload, &version); scanErr != nil {
		e.logError(logMsgScanRowFailed, scanErr)
		return empty, errors.Join(ErrScanRowFailed, scanErr)
	}

	return docmapper.FetchResult{ID: id, Payload: payload, Version: version}, nil
}

func (e *Engine) exists(
	ctx context.Context,
	runner queryRunner,
	collection docmapper.CollectionHandle,
	id string,
) (bool, error) {

	query, buildErr := e.buildExistsQuery(collection, id)
	if buildErr != nil {
		return false, buildErr
	}

	rows, queryErr := e.runQuery(ctx, runner, query, logActionExists)
	if queryErr != nil {
		return false, queryErr
	}
	defer e.closeRows(rows)

	return rows.Next(), nil
}

func (e *Engine) buildCatalogQuery(scopeName, collectionName string) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(e.catalogTableName).
		Select(goqu.V(1)).
		Where(
			goqu.C(colScopeName).Eq(scopeName),
			goqu.C(colCollectionName).Eq(collectionName),
		)

	return e.toSQL(selectStmt.ToSQL())
}

func (e *Engine) buildGetQuery(collection docmapper.CollectionHandle, id string) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(e.documentTableName).
		Select(colPayload, colVersion).
		Where(e.keyExpressions(collection, id)...)

	return e.toSQL(selectStmt.ToSQL())
}

func (e *Engine) buildExistsQuery(collection docmapper.CollectionHandle, id string) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(e.documentTableName).
		Select(goqu.V(1)).
		Where(e.keyExpressions(collection, id)...)

	return e.toSQL(selectStmt.ToSQL())
}

// keyExpressions builds the primary-key predicate for one document.
func (e *Engine) keyExpressions(collection docmapper.CollectionHandle, id string) []goqu.Expression {
	return []goqu.Expression{
		goqu.C(colScopeName).Eq(collection.ScopeName()),
		goqu.C(colCollectionName).Eq(collection.CollectionName()),
		goqu.C(colDocumentID).Eq(id),
	}
}

func (e *Engine) toSQL(query string, _ []any, err error) (sqlQueryString, error) {
	if err != nil {
		e.logError(logMsgBuildQueryFailed, err)
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return query, nil
}

// runQuery executes a SQL query with timing and debug logging.
func (e *Engine) runQuery(
	ctx context.Context,
	runner queryRunner,
	query string,
	action string,
) (adapters.DBRows, error) {

	start := time.Now()
	rows, queryErr := runner.Query(ctx, query)
	e.logQueryWithDuration(query, action, time.Since(start))

	if queryErr != nil {
		e.logError(logMsgDBQueryFailed, queryErr, logAttrQuery, query)
		return nil, errors.Join(ErrQueryFailed, queryErr)
	}

	return rows, nil
}

// runExec executes a SQL statement with timing and debug logging.
func (e *Engine) runExec(
	ctx context.Context,
	runner queryRunner,
	query string,
	action string,
) (int64, error) {

	start := time.Now()
	result, execErr := runner.Exec(ctx, query)
	e.logQueryWithDuration(query, action, time.Since(start))

	if execErr != nil {
		e.logError(logMsgDBExecFailed, execErr, logAttrQuery, query)
		return 0, errors.Join(ErrExecFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		e.logError(logMsgDBExecFailed, rowsAffectedErr)
		return 0, errors.Join(ErrRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (e *Engine) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if e.logger != nil {
			e.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (e *Engine) logQueryWithDuration(query string, action string, duration time.Duration) {
	if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, e.toMilliseconds(duration), logAttrQuery, query)
	}
}

// logError logs error information at the error level if the logger is configured.
func (e *Engine) logError(message string, err error, args ...any) {
	if e.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		e.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (e *Engine) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// Interface conformance.
var (
	_ docmapper.CollectionResolver    = (*Engine)(nil)
	_ docmapper.Executor              = (*Engine)(nil)
	_ docmapper.TransactionalExecutor = (*Engine)(nil)
)
