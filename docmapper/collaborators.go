package docmapper

import (
	"context"
)

// CollectionHandle identifies a resolved target collection within a scope.
// Engines may attach additional state behind their own implementations.
type CollectionHandle interface {
	ScopeName() string
	CollectionName() string
}

// CollectionResolver resolves a scope/collection pair into a handle executors
// accept. It fails with ErrCollectionNotFound when the scope or collection
// does not exist.
type CollectionResolver interface {
	Resolve(ctx context.Context, scopeName string, collectionName string) (CollectionHandle, error)
}

// FetchResult is the server-returned outcome of a read.
type FetchResult struct {
	ID       string
	Payload  []byte
	Version  VersionTokenInt64
	TxResult any
}

// WriteResult is the server-returned outcome of a write: the assigned id, the
// new version token, and optional opaque transaction metadata.
type WriteResult struct {
	ID       string
	Version  VersionTokenInt64
	TxResult any
}

// Executor performs non-transactional operations against the database.
//
// Implementations signal expected conditions with the package sentinels:
// ErrDocumentNotFound, ErrDocumentExists, and ErrCASMismatch for a rejected
// conditional replace or remove. Any other failure is wrapped into a
// StorageError at the dispatcher boundary.
type Executor interface {
	Get(ctx context.Context, collection CollectionHandle, id string) (FetchResult, error)
	Insert(ctx context.Context, collection CollectionHandle, id string, payload []byte) (WriteResult, error)
	Upsert(ctx context.Context, collection CollectionHandle, id string, payload []byte) (WriteResult, error)
	Replace(ctx context.Context, collection CollectionHandle, id string, payload []byte, version VersionTokenInt64) (WriteResult, error)
	Remove(ctx context.Context, collection CollectionHandle, id string, version VersionTokenInt64) error
	Exists(ctx context.Context, collection CollectionHandle, id string) (bool, error)
}

// TransactionalExecutor performs operations inside an ambient transaction.
// It mirrors Executor minus upsert: the transaction layer exposes no
// blind-overwrite primitive, callers are expected to read before they write.
// Conflicts detected by the transaction machinery surface as
// ErrTransactionConflict.
type TransactionalExecutor interface {
	GetInTransaction(ctx context.Context, tx TransactionContext, collection CollectionHandle, id string) (FetchResult, error)
	InsertInTransaction(ctx context.Context, tx TransactionContext, collection CollectionHandle, id string, payload []byte) (WriteResult, error)
	ReplaceInTransaction(ctx context.Context, tx TransactionContext, collection CollectionHandle, id string, payload []byte, version VersionTokenInt64) (WriteResult, error)
	RemoveInTransaction(ctx context.Context, tx TransactionContext, collection CollectionHandle, id string, version VersionTokenInt64) error
	ExistsInTransaction(ctx context.Context, tx TransactionContext, collection CollectionHandle, id string) (bool, error)
}
