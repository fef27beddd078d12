package docmapper

import (
	"context"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// TransactionContext is an opaque handle representing an ambient
// multi-operation transaction. It is established and torn down entirely by
// the caller's surrounding scope; this package only detects its presence and
// hands it to the transactional executor, which asserts its concrete type.
type TransactionContext any

// contextKey is a private type to prevent context key collisions.
type contextKey string

const transactionContextKey contextKey = "docmapper.transaction_context"

// WithTransaction returns a context carrying the given TransactionContext.
// Every Template operation issued with the returned context routes through
// the transactional executor.
//
// Attaching the transaction to the context makes the propagation explicit:
// it travels with the call chain instead of relying on goroutine-local state,
// so crossing goroutines cannot silently lose it.
//
// Example usage:
//
//	tx, _ := engine.BeginTransaction(ctx)
//	ctx = docmapper.WithTransaction(ctx, tx)
//	saved, err := template.Save(ctx, entity)
func WithTransaction(ctx context.Context, tx TransactionContext) context.Context {
	return context.WithValue(ctx, transactionContextKey, tx)
}

// TransactionFromContext extracts the ambient TransactionContext, if any.
func TransactionFromContext(ctx context.Context) (TransactionContext, bool) {
	tx := ctx.Value(transactionContextKey)
	if tx == nil {
		return nil, false
	}

	return tx, true
}

// TransactionContextProvider discovers the ambient TransactionContext for an
// operation. The default provider reads it from the context; alternate
// implementations can bridge other propagation schemes.
type TransactionContextProvider interface {
	Current(ctx context.Context) (TransactionContext, bool)
}

type contextTransactionProvider struct{}

func (contextTransactionProvider) Current(ctx context.Context) (TransactionContext, bool) {
	return TransactionFromContext(ctx)
}

// TransactionResultKeyUint64 is a type alias for uint64, representing the
// correlation key under which a transaction result is registered.
type TransactionResultKeyUint64 = uint64

// TransactionResultRegistry maps monotonically issued correlation keys to
// opaque transaction results. It is shared by all operations within one
// transaction's lifetime and safe for concurrent use; values are inserted
// once and never mutated in place.
type TransactionResultRegistry struct {
	nextKey atomic.Uint64
	results *xsync.MapOf[TransactionResultKeyUint64, any]
}

// NewTransactionResultRegistry creates an empty registry.
func NewTransactionResultRegistry() *TransactionResultRegistry {
	return &TransactionResultRegistry{
		results: xsync.NewMapOf[TransactionResultKeyUint64, any](),
	}
}

// Store registers a transaction result under a freshly issued key and returns the key.
func (r *TransactionResultRegistry) Store(txResult any) TransactionResultKeyUint64 {
	key := r.nextKey.Add(1)
	r.results.Store(key, txResult)

	return key
}

// Load returns the transaction result registered under the key, if any.
func (r *TransactionResultRegistry) Load(key TransactionResultKeyUint64) (any, bool) {
	return r.results.Load(key)
}

// Len returns the number of registered results.
func (r *TransactionResultRegistry) Len() int {
	return r.results.Size()
}
