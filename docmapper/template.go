package docmapper

import (
	"context"
	"errors"
)

const (
	defaultScopeName      = "_default"
	defaultCollectionName = "_default"

	logMsgOperation         = "docmapper operation: "
	logMsgEncodeFailed      = "encoding entity failed"
	logMsgExecutorFailed    = "executor call failed"
	logMsgApplyResultFailed = "applying server result failed"
	logMsgVersionConflict   = "version conflict detected"

	logAttrError         = "error"
	logAttrOperation     = "operation"
	logAttrDocumentID    = "document_id"
	logAttrEntityType    = "entity_type"
	logAttrNewVersion    = "new_version"
	logAttrDurationMS    = "duration_ms"
	logAttrTransactional = "transactional"

	metricOperationDuration = "docmapper_operation_duration_seconds"
	metricOperationErrors   = "docmapper_operation_errors_total"
	metricVersionConflicts  = "docmapper_version_conflicts_total"

	spanNamePrefix        = "docmapper."
	spanAttrOperation     = "operation"
	spanAttrDocumentID    = "document_id"
	spanAttrEntityType    = "entity_type"
	spanAttrErrorType     = "error_type"
	spanAttrDurationMS    = "duration_ms"
	spanAttrTransactional = "transactional"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeMapping             = "mapping"
	errorTypeDecode              = "decode"
	errorTypeStorage             = "storage"
	errorTypeVersionConflict     = "version_conflict"
	errorTypeTransactionConflict = "transaction_conflict"
	errorTypeCanceled            = "canceled"
)

// Template dispatches the logical document operations (save, find, remove,
// exists) for one entity type against one scope/collection, routing each
// operation through the transactional or non-transactional execution path
// depending on whether an ambient TransactionContext is present.
//
// A Template holds no mutable state besides configuration and is safe for
// concurrent use.
type Template[T any] struct {
	codec       *Codec[T]
	applier     *ResultApplier[T]
	hooks       *LifecycleHooks[T]
	translation TranslationService
	registry    *TransactionResultRegistry

	resolver   CollectionResolver
	executor   Executor
	txExecutor TransactionalExecutor
	txProvider TransactionContextProvider

	scopeName      string
	collectionName string

	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// NewTemplate creates a Template for the described entity type with optional
// configuration. Resolver and executor are mandatory collaborators; a
// transactional executor is only needed when operations run inside
// transactions.
func NewTemplate[T any](
	descriptor EntityDescriptor[T],
	resolver CollectionResolver,
	executor Executor,
	options ...Option[T],
) (*Template[T], error) {

	if err := descriptor.Validate(); err != nil {
		return nil, err
	}

	if resolver == nil {
		return nil, ErrNilCollectionResolver
	}

	if executor == nil {
		return nil, ErrNilExecutor
	}

	t := &Template[T]{
		hooks:          NewLifecycleHooks[T](),
		translation:    NewJSONTranslation(),
		registry:       NewTransactionResultRegistry(),
		resolver:       resolver,
		executor:       executor,
		txProvider:     contextTransactionProvider{},
		scopeName:      defaultScopeName,
		collectionName: defaultCollectionName,
	}

	for _, option := range options {
		if err := option(t); err != nil {
			return nil, err
		}
	}

	codec, codecErr := NewCodec(descriptor, t.hooks, t.translation)
	if codecErr != nil {
		return nil, codecErr
	}

	applier, applierErr := NewResultApplier(descriptor, t.hooks, t.registry)
	if applierErr != nil {
		return nil, applierErr
	}

	t.codec = codec
	t.applier = applier

	return t, nil
}

// Registry returns the shared transaction-result registry.
func (t *Template[T]) Registry() *TransactionResultRegistry {
	return t.registry
}

// Save writes the entity using the optimistic-concurrency policy:
//
//   - non-zero version token: conditional replace; a token mismatch surfaces
//     as ErrVersionConflict and the entity is left unchanged
//   - zero token inside an active transaction: insert, the transactional
//     execution path has no unconditional upsert primitive
//   - zero token otherwise: upsert
//
// On success the entity carries the server-assigned version token.
func (t *Template[T]) Save(ctx context.Context, entity T) (T, error) {
	return t.dispatchWrite(ctx, entity, opFromSavePolicy)
}

// Insert writes the entity, failing with ErrDocumentExists (inside a
// StorageError) when a document already exists under its id.
func (t *Template[T]) Insert(ctx context.Context, entity T) (T, error) {
	return t.dispatchWrite(ctx, entity, OpInsert)
}

// Upsert writes the entity unconditionally. Inside an active transaction the
// write is executed as a transactional insert, the transaction layer exposes
// no blind-overwrite primitive.
func (t *Template[T]) Upsert(ctx context.Context, entity T) (T, error) {
	return t.dispatchWrite(ctx, entity, OpUpsert)
}

// Replace overwrites the stored document. A non-zero version token on the
// entity makes the replace conditional; a token mismatch surfaces as
// ErrVersionConflict.
func (t *Template[T]) Replace(ctx context.Context, entity T) (T, error) {
	return t.dispatchWrite(ctx, entity, OpReplace)
}

// opFromSavePolicy tells dispatchWrite to pick the operation from the save
// policy: replace on a non-zero version token, insert inside a transaction,
// upsert otherwise.
const opFromSavePolicy = OpKind(-1)

// dispatchWrite picks the operation, resolves the collection, encodes the
// entity and runs the write. Resolution comes before encoding so that no
// lifecycle hook fires for a write that cannot reach storage.
func (t *Template[T]) dispatchWrite(ctx context.Context, entity T, op OpKind) (T, error) {
	tx, inTx := t.txProvider.Current(ctx)

	if op == opFromSavePolicy {
		switch {
		case t.codec.Descriptor().VersionOf(entity) != 0:
			op = OpReplace
		case inTx:
			op = OpInsert
		default:
			op = OpUpsert
		}
	}

	if op == OpUpsert && inTx {
		op = OpInsert
	}

	observer, ctx := t.startOperation(ctx, op, t.codec.Descriptor().IDOf(entity), inTx)

	if inTx && t.txExecutor == nil {
		observer.finishError(ErrNoTransactionalExecutor)
		return entity, ErrNoTransactionalExecutor
	}

	collection, resolveErr := t.resolver.Resolve(ctx, t.scopeName, t.collectionName)
	if resolveErr != nil {
		observer.finishError(resolveErr)
		return entity, resolveErr
	}

	current, doc, payload, encodeErr := t.encodeForWrite(ctx, entity)
	if encodeErr != nil {
		observer.finishError(encodeErr)
		return entity, encodeErr
	}

	id := t.codec.Descriptor().IDOf(current)
	if id == "" {
		idErr := errors.Join(ErrMissingDocumentID, errors.New(t.codec.Descriptor().TypeName))
		observer.finishError(idErr)
		return entity, idErr
	}
	observer.id = id

	version := t.codec.Descriptor().VersionOf(current)

	var result WriteResult
	var execErr error

	if inTx {
		switch op {
		case OpInsert:
			result, execErr = t.txExecutor.InsertInTransaction(ctx, tx, collection, id, payload)
		case OpReplace:
			result, execErr = t.txExecutor.ReplaceInTransaction(ctx, tx, collection, id, payload, version)
		}
	} else {
		switch op {
		case OpInsert:
			result, execErr = t.executor.Insert(ctx, collection, id, payload)
		case OpUpsert:
			result, execErr = t.executor.Upsert(ctx, collection, id, payload)
		case OpReplace:
			result, execErr = t.executor.Replace(ctx, collection, id, payload, version)
		}
	}

	if execErr != nil {
		translated := t.translateExecutorError(op, id, execErr)
		observer.finishError(translated)
		return entity, translated
	}

	return t.applyWriteResult(ctx, observer, entity, current, doc, id, result)
}

// FindByID reads and decodes the document stored under id. Inside an active
// transaction the read runs on the transactional execution path and the
// transaction metadata is registered during decode.
func (t *Template[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T

	tx, inTx := t.txProvider.Current(ctx)
	observer, ctx := t.startOperation(ctx, OpGet, id, inTx)

	collection, resolveErr := t.resolver.Resolve(ctx, t.scopeName, t.collectionName)
	if resolveErr != nil {
		observer.finishError(resolveErr)
		return zero, resolveErr
	}

	var fetch FetchResult
	var execErr error

	if inTx {
		if t.txExecutor == nil {
			observer.finishError(ErrNoTransactionalExecutor)
			return zero, ErrNoTransactionalExecutor
		}
		fetch, execErr = t.txExecutor.GetInTransaction(ctx, tx, collection, id)
	} else {
		fetch, execErr = t.executor.Get(ctx, collection, id)
	}

	if execErr != nil {
		translated := t.translateExecutorError(OpGet, id, execErr)
		observer.finishError(translated)
		return zero, translated
	}

	entity, decodeErr := t.codec.DecodeWithTransaction(ctx, id, fetch.Payload, fetch.Version, fetch.TxResult, t.registry)
	if decodeErr != nil {
		observer.finishError(decodeErr)
		return zero, decodeErr
	}

	observer.finishSuccess(fetch.Version)

	return entity, nil
}

// Remove deletes the document the entity is stored under. A non-zero version
// token on the entity makes the remove conditional; a token mismatch surfaces
// as ErrVersionConflict.
func (t *Template[T]) Remove(ctx context.Context, entity T) error {
	id := t.codec.Descriptor().IDOf(entity)
	if id == "" {
		return errors.Join(ErrMissingDocumentID, errors.New(t.codec.Descriptor().TypeName))
	}

	return t.removeByIDWithVersion(ctx, id, t.codec.Descriptor().VersionOf(entity))
}

// RemoveByID deletes the document stored under id without a concurrency check.
func (t *Template[T]) RemoveByID(ctx context.Context, id string) error {
	return t.removeByIDWithVersion(ctx, id, 0)
}

func (t *Template[T]) removeByIDWithVersion(ctx context.Context, id string, version VersionTokenInt64) error {
	tx, inTx := t.txProvider.Current(ctx)
	observer, ctx := t.startOperation(ctx, OpRemove, id, inTx)

	collection, resolveErr := t.resolver.Resolve(ctx, t.scopeName, t.collectionName)
	if resolveErr != nil {
		observer.finishError(resolveErr)
		return resolveErr
	}

	var execErr error

	if inTx {
		if t.txExecutor == nil {
			observer.finishError(ErrNoTransactionalExecutor)
			return ErrNoTransactionalExecutor
		}
		execErr = t.txExecutor.RemoveInTransaction(ctx, tx, collection, id, version)
	} else {
		execErr = t.executor.Remove(ctx, collection, id, version)
	}

	if execErr != nil {
		translated := t.translateExecutorError(OpRemove, id, execErr)
		observer.finishError(translated)
		return translated
	}

	observer.finishSuccess(0)

	return nil
}

// Exists reports whether a document is stored under id.
func (t *Template[T]) Exists(ctx context.Context, id string) (bool, error) {
	tx, inTx := t.txProvider.Current(ctx)
	observer, ctx := t.startOperation(ctx, OpExists, id, inTx)

	collection, resolveErr := t.resolver.Resolve(ctx, t.scopeName, t.collectionName)
	if resolveErr != nil {
		observer.finishError(resolveErr)
		return false, resolveErr
	}

	var found bool
	var execErr error

	if inTx {
		if t.txExecutor == nil {
			observer.finishError(ErrNoTransactionalExecutor)
			return false, ErrNoTransactionalExecutor
		}
		found, execErr = t.txExecutor.ExistsInTransaction(ctx, tx, collection, id)
	} else {
		found, execErr = t.executor.Exists(ctx, collection, id)
	}

	if execErr != nil {
		translated := t.translateExecutorError(OpExists, id, execErr)
		observer.finishError(translated)
		return false, translated
	}

	observer.finishSuccess(0)

	return found, nil
}

// encodeForWrite runs the codec and the translation service for a write.
func (t *Template[T]) encodeForWrite(ctx context.Context, entity T) (T, *Document, []byte, error) {
	current, doc, encodeErr := t.codec.Encode(ctx, entity)
	if encodeErr != nil {
		t.logError(logMsgEncodeFailed, encodeErr, logAttrEntityType, t.codec.Descriptor().TypeName)
		return entity, nil, nil, encodeErr
	}

	payload, translateErr := t.translation.Encode(doc)
	if translateErr != nil {
		wrapped := errors.Join(ErrMappingFailed, translateErr)
		t.logError(logMsgEncodeFailed, wrapped, logAttrEntityType, t.codec.Descriptor().TypeName)
		return entity, nil, nil, wrapped
	}

	return current, doc, payload, nil
}

// applyWriteResult runs the result applier unless the context was cancelled
// while the executor call resolved. A cancelled operation must not fire
// partial lifecycle events.
func (t *Template[T]) applyWriteResult(
	ctx context.Context,
	observer *operationObserver[T],
	original T,
	current T,
	doc *Document,
	id string,
	result WriteResult,
) (T, error) {

	if ctxErr := ctx.Err(); ctxErr != nil {
		observer.finishError(ctxErr)
		return original, ctxErr
	}

	resultID := result.ID
	if resultID == "" {
		resultID = id
	}

	applied, applyErr := t.applier.Apply(ctx, current, doc, resultID, result.Version, result.TxResult)
	if applyErr != nil {
		t.logError(logMsgApplyResultFailed, applyErr, logAttrDocumentID, resultID)
		observer.finishError(applyErr)
		return applied, applyErr
	}

	observer.finishSuccess(result.Version)

	return applied, nil
}

// translateExecutorError maps executor failures into the package taxonomy:
// a cas mismatch becomes ErrVersionConflict, a transaction conflict passes
// through unchanged, everything else is wrapped into a StorageError carrying
// the operation kind and document id.
func (t *Template[T]) translateExecutorError(op OpKind, id string, err error) error {
	switch {
	case errors.Is(err, ErrCASMismatch):
		return errors.Join(ErrVersionConflict, err)

	case errors.Is(err, ErrTransactionConflict):
		return err

	default:
		return &StorageError{Op: op, ID: id, Err: err}
	}
}
