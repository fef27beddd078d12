package docmapper

import (
	"context"
)

// ResultApplier merges a post-write server result back into the entity and
// fires the after-save hooks.
type ResultApplier[T any] struct {
	descriptor EntityDescriptor[T]
	hooks      *LifecycleHooks[T]
	registry   *TransactionResultRegistry
}

// NewResultApplier creates a ResultApplier. A nil hooks registry means no
// hooks, a nil registry allocates a fresh one.
func NewResultApplier[T any](
	descriptor EntityDescriptor[T],
	hooks *LifecycleHooks[T],
	registry *TransactionResultRegistry,
) (*ResultApplier[T], error) {

	if err := descriptor.Validate(); err != nil {
		return nil, err
	}

	if hooks == nil {
		hooks = NewLifecycleHooks[T]()
	}

	if registry == nil {
		registry = NewTransactionResultRegistry()
	}

	return &ResultApplier[T]{
		descriptor: descriptor,
		hooks:      hooks,
		registry:   registry,
	}, nil
}

// Registry returns the shared transaction-result registry.
func (a *ResultApplier[T]) Registry() *TransactionResultRegistry {
	return a.registry
}

// Apply sets the entity's identifier and version fields from the server
// result, registers a supplied transaction result under a fresh correlation
// key, and fires the after-save hooks with the mutated entity and the
// Document used to produce it.
//
// Entities without an id or version field skip those steps silently; when no
// transaction result is supplied the registry is not touched. A failing
// after-save hook surfaces to the caller.
func (a *ResultApplier[T]) Apply(
	ctx context.Context,
	entity T,
	doc *Document,
	id string,
	version VersionTokenInt64,
	txResult any,
) (T, error) {

	a.descriptor.ApplyID(entity, id)
	a.descriptor.ApplyVersion(entity, version)

	if txResult != nil {
		key := a.registry.Store(txResult)
		a.descriptor.ApplyTxResultKey(entity, key)
	}

	if hookErr := a.hooks.callAfterSave(ctx, entity, doc); hookErr != nil {
		return entity, hookErr
	}

	return entity, nil
}
