package docmapper

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// Codec converts between typed entities and the generic Document
// representation, firing the conversion lifecycle hooks on the way.
type Codec[T any] struct {
	descriptor  EntityDescriptor[T]
	hooks       *LifecycleHooks[T]
	translation TranslationService
	api         jsoniter.API
}

// NewCodec creates a Codec for the described entity type. A nil hooks registry
// means no hooks, a nil translation service selects JSON.
func NewCodec[T any](
	descriptor EntityDescriptor[T],
	hooks *LifecycleHooks[T],
	translation TranslationService,
) (*Codec[T], error) {

	if err := descriptor.Validate(); err != nil {
		return nil, err
	}

	if hooks == nil {
		hooks = NewLifecycleHooks[T]()
	}

	if translation == nil {
		translation = NewJSONTranslation()
	}

	return &Codec[T]{
		descriptor:  descriptor,
		hooks:       hooks,
		translation: translation,
		api:         jsoniter.ConfigFastest,
	}, nil
}

// Descriptor returns the entity descriptor the codec was built with.
func (c *Codec[T]) Descriptor() EntityDescriptor[T] {
	return c.descriptor
}

// Encode converts an entity into a Document.
//
// It fires the before-convert hooks (which may substitute a transformed
// entity), writes the declared fields into a fresh Document with the
// storage-owned fields stripped from the body, lifts the entity's id into the
// identifier attribute, then fires the after-convert and before-save hooks
// with the original entity.
//
// It returns the possibly substituted entity alongside the Document; the
// caller must use the returned entity for version lookup and result
// application so hook substitutions are not lost.
func (c *Codec[T]) Encode(ctx context.Context, entity T) (T, *Document, error) {
	current, hookErr := c.hooks.callBeforeConvert(ctx, entity)
	if hookErr != nil {
		return entity, nil, errors.Join(ErrMappingFailed, hookErr)
	}

	raw, marshalErr := c.api.Marshal(current)
	if marshalErr != nil {
		return entity, nil, errors.Join(ErrMappingFailed, marshalErr)
	}

	doc := NewDocument()
	if decodeErr := c.translation.Decode(raw, doc); decodeErr != nil {
		return entity, nil, errors.Join(ErrMappingFailed, decodeErr)
	}

	for _, name := range c.descriptor.storageOwnedFields() {
		doc.Remove(name)
	}

	doc.SetID(c.descriptor.IDOf(current))

	if hookErr = c.hooks.callAfterConvert(ctx, entity, doc); hookErr != nil {
		return entity, nil, errors.Join(ErrMappingFailed, hookErr)
	}

	if hookErr = c.hooks.callBeforeSave(ctx, entity, doc); hookErr != nil {
		return entity, nil, errors.Join(ErrMappingFailed, hookErr)
	}

	return current, doc, nil
}

// Decode converts a stored payload into a typed entity.
//
// The id is injected as the identifier attribute. The version token is
// injected into the version attribute of the document only when the entity
// type declares a version field and the token is non-zero, and is then
// written through the accessor as well: structural conversion cannot be
// trusted to carry a value that was supplied outside the raw payload.
func (c *Codec[T]) Decode(ctx context.Context, id string, raw []byte, version VersionTokenInt64) (T, error) {
	var zero T

	doc := NewDocument()
	if decodeErr := c.translation.Decode(raw, doc); decodeErr != nil {
		return zero, errors.Join(ErrDecodeFailed, decodeErr)
	}

	doc.SetID(id)

	if c.descriptor.HasVersionField() && version != 0 && c.descriptor.VersionField != "" {
		doc.Set(c.descriptor.VersionField, version)
	}

	entity, convertErr := c.convertDocument(doc, id)
	if convertErr != nil {
		return zero, errors.Join(ErrDecodeFailed, convertErr)
	}

	c.descriptor.ApplyID(entity, id)

	if c.descriptor.HasVersionField() {
		c.descriptor.ApplyVersion(entity, version)
	}

	return entity, nil
}

// DecodeWithTransaction decodes like Decode and additionally registers the
// transaction result in the registry, storing the issued correlation key on
// the entity's transaction-result field if it declares one.
func (c *Codec[T]) DecodeWithTransaction(
	ctx context.Context,
	id string,
	raw []byte,
	version VersionTokenInt64,
	txResult any,
	registry *TransactionResultRegistry,
) (T, error) {

	entity, err := c.Decode(ctx, id, raw, version)
	if err != nil {
		return entity, err
	}

	if txResult != nil && registry != nil {
		key := registry.Store(txResult)
		c.descriptor.ApplyTxResultKey(entity, key)
	}

	return entity, nil
}

// convertDocument materializes a typed entity from the document body. The id
// travels inside the conversion payload so the declared identifier field is
// populated by structural conversion like any other field.
func (c *Codec[T]) convertDocument(doc *Document, id string) (T, error) {
	var zero T

	conversion := doc
	if c.descriptor.IDField != "" {
		conversion = doc.Clone()
		conversion.Set(c.descriptor.IDField, id)
	}

	payload, marshalErr := conversion.MarshalJSON()
	if marshalErr != nil {
		return zero, marshalErr
	}

	entity := c.descriptor.New()
	if unmarshalErr := c.api.Unmarshal(payload, entity); unmarshalErr != nil {
		return zero, unmarshalErr
	}

	return entity, nil
}
