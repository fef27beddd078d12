package docmapper

import (
	"context"
)

// BeforeConvertHook runs before an entity is converted into a Document.
// It may return a transformed entity which replaces the original for the
// remainder of the operation. An error aborts the operation.
type BeforeConvertHook[T any] func(ctx context.Context, entity T) (T, error)

// AfterConvertHook runs after conversion with the original entity and the
// resulting Document. An error aborts the operation.
type AfterConvertHook[T any] func(ctx context.Context, entity T, doc *Document) error

// BeforeSaveHook runs right before the encoded Document is handed to an
// executor. An error aborts the operation.
type BeforeSaveHook[T any] func(ctx context.Context, entity T, doc *Document) error

// AfterSaveHook runs after a successful write with the mutated entity and the
// Document that produced it. An error surfaces to the caller; a misbehaving
// hook must be visible, not hidden.
type AfterSaveHook[T any] func(ctx context.Context, entity T, doc *Document) error

// LifecycleHooks holds the registered hooks for each lifecycle stage.
// Hooks run synchronously in registration order; the first error stops the
// chain and propagates as an ordinary error return.
type LifecycleHooks[T any] struct {
	beforeConvert []BeforeConvertHook[T]
	afterConvert  []AfterConvertHook[T]
	beforeSave    []BeforeSaveHook[T]
	afterSave     []AfterSaveHook[T]
}

// NewLifecycleHooks creates an empty hook registry.
func NewLifecycleHooks[T any]() *LifecycleHooks[T] {
	return &LifecycleHooks[T]{}
}

// OnBeforeConvert registers a before-convert hook.
func (h *LifecycleHooks[T]) OnBeforeConvert(hook BeforeConvertHook[T]) *LifecycleHooks[T] {
	h.beforeConvert = append(h.beforeConvert, hook)
	return h
}

// OnAfterConvert registers an after-convert hook.
func (h *LifecycleHooks[T]) OnAfterConvert(hook AfterConvertHook[T]) *LifecycleHooks[T] {
	h.afterConvert = append(h.afterConvert, hook)
	return h
}

// OnBeforeSave registers a before-save hook.
func (h *LifecycleHooks[T]) OnBeforeSave(hook BeforeSaveHook[T]) *LifecycleHooks[T] {
	h.beforeSave = append(h.beforeSave, hook)
	return h
}

// OnAfterSave registers an after-save hook.
func (h *LifecycleHooks[T]) OnAfterSave(hook AfterSaveHook[T]) *LifecycleHooks[T] {
	h.afterSave = append(h.afterSave, hook)
	return h
}

func (h *LifecycleHooks[T]) callBeforeConvert(ctx context.Context, entity T) (T, error) {
	current := entity

	for _, hook := range h.beforeConvert {
		next, err := hook(ctx, current)
		if err != nil {
			return entity, err
		}
		current = next
	}

	return current, nil
}

func (h *LifecycleHooks[T]) callAfterConvert(ctx context.Context, entity T, doc *Document) error {
	for _, hook := range h.afterConvert {
		if err := hook(ctx, entity, doc); err != nil {
			return err
		}
	}

	return nil
}

func (h *LifecycleHooks[T]) callBeforeSave(ctx context.Context, entity T, doc *Document) error {
	for _, hook := range h.beforeSave {
		if err := hook(ctx, entity, doc); err != nil {
			return err
		}
	}

	return nil
}

func (h *LifecycleHooks[T]) callAfterSave(ctx context.Context, entity T, doc *Document) error {
	for _, hook := range h.afterSave {
		if err := hook(ctx, entity, doc); err != nil {
			return err
		}
	}

	return nil
}
