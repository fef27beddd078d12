package docmapper

import (
	"errors"
	"fmt"
)

var (
	// ErrMappingFailed is returned when converting an entity into a Document fails,
	// either because serialization failed or because a before-convert / before-save hook returned an error.
	ErrMappingFailed = errors.New("mapping entity to document failed")

	// ErrDecodeFailed is returned when a stored payload cannot be decoded into a Document or entity.
	ErrDecodeFailed = errors.New("decoding stored document failed")

	// ErrVersionConflict is returned when a conditional write was rejected because the stored
	// version token no longer matches the supplied one. This is an expected, recoverable
	// condition: callers are supposed to re-read and retry explicitly, the core never retries.
	ErrVersionConflict = errors.New("version conflict, stored version token does not match")

	// ErrTransactionConflict is reported by a transactional executor when the surrounding
	// transaction detected a conflict. It is propagated unchanged, resolution belongs to
	// the transaction coordinator outside this package.
	ErrTransactionConflict = errors.New("transaction conflict reported by the transactional executor")

	// ErrCASMismatch is the executor-level signal that a replace or remove found a different
	// version token than expected. The dispatcher translates it into ErrVersionConflict.
	ErrCASMismatch = errors.New("cas mismatch, document was modified concurrently")

	// ErrDocumentNotFound is returned when no document exists under the given id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentExists is returned when an insert found an existing document under the given id.
	ErrDocumentExists = errors.New("document already exists")

	// ErrCollectionNotFound is returned by a CollectionResolver when the scope or collection does not exist.
	ErrCollectionNotFound = errors.New("scope or collection does not exist")

	// ErrMissingDocumentID is returned when a write operation needs a document id
	// but the entity declares no id accessor or carries an empty id.
	ErrMissingDocumentID = errors.New("entity has no document id")

	// ErrNoTransactionalExecutor is returned when an operation runs inside an active transaction
	// but the Template was constructed without a TransactionalExecutor.
	ErrNoTransactionalExecutor = errors.New("no transactional executor configured")

	// ErrNilCollectionResolver is returned when a Template is constructed without a CollectionResolver.
	ErrNilCollectionResolver = errors.New("nil collection resolver supplied")

	// ErrNilExecutor is returned when a Template is constructed without an Executor.
	ErrNilExecutor = errors.New("nil executor supplied")

	// ErrEmptyScopeName is returned when an empty scope name is supplied.
	ErrEmptyScopeName = errors.New("empty scope name supplied")

	// ErrEmptyCollectionName is returned when an empty collection name is supplied.
	ErrEmptyCollectionName = errors.New("empty collection name supplied")

	// ErrInvalidDescriptor is returned when an EntityDescriptor is incomplete or inconsistent.
	ErrInvalidDescriptor = errors.New("invalid entity descriptor")
)

// OpKind identifies the logical operation a Template dispatched to an executor.
type OpKind int

const (
	OpGet OpKind = iota
	OpInsert
	OpUpsert
	OpReplace
	OpRemove
	OpExists
)

// String provides a string representation of OpKind for error messages and logging.
func (k OpKind) String() string {
	switch k {
	case OpGet:
		return "get"
	case OpInsert:
		return "insert"
	case OpUpsert:
		return "upsert"
	case OpReplace:
		return "replace"
	case OpRemove:
		return "remove"
	case OpExists:
		return "exists"
	default:
		return "unknown"
	}
}

// StorageError wraps any failure from an executor, attaching the operation kind
// and document id so callers can decide about retries without inspecting
// executor-internal error types.
type StorageError struct {
	Op  OpKind
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s of document %q: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
