package docmapper

import (
	"errors"
)

var (
	ErrEmptyTypeName      = errors.New("entity descriptor has an empty type name")
	ErrNilEntityFactory   = errors.New("entity descriptor has no factory function")
	ErrIncompleteAccessor = errors.New("entity descriptor declares a field without both accessors")
)

// VersionTokenInt64 is a type alias for int64, representing the opaque CAS token
// of a stored document. A non-zero token on an outgoing write means "replace only
// if the stored token still matches", zero means "no concurrency check".
type VersionTokenInt64 = int64

// EntityDescriptor carries the per-type metadata the mapping layer needs to
// read and write the designated fields of an entity. It replaces runtime
// reflection with explicit accessor functions supplied by the caller at
// registration time.
//
// Every field triple is optional: a nil accessor means the entity type does
// not declare that field and the corresponding mapping step is skipped
// silently. This is not an error, read-only projections legitimately omit
// id and version fields.
//
// T is expected to be a pointer type so the Set accessors can mutate the
// entity in place.
type EntityDescriptor[T any] struct {
	// TypeName names the entity type in errors and log output.
	TypeName string

	// New creates a fresh, empty entity for decode to fill.
	New func() T

	// IDField is the JSON field name of the identifier; it is stripped from the
	// document body on encode because the identifier attribute carries it.
	IDField string
	GetID   func(T) string
	SetID   func(T, string)

	// VersionField is the JSON field name of the version token.
	VersionField string
	GetVersion   func(T) VersionTokenInt64
	SetVersion   func(T, VersionTokenInt64)

	// TxResultField is the JSON field name of the transaction-result correlation key.
	TxResultField  string
	SetTxResultKey func(T, uint64)
}

// Validate checks the descriptor for completeness and consistency.
func (d EntityDescriptor[T]) Validate() error {
	if d.TypeName == "" {
		return errors.Join(ErrInvalidDescriptor, ErrEmptyTypeName)
	}

	if d.New == nil {
		return errors.Join(ErrInvalidDescriptor, ErrNilEntityFactory)
	}

	if (d.GetID == nil) != (d.SetID == nil) {
		return errors.Join(ErrInvalidDescriptor, ErrIncompleteAccessor)
	}

	if (d.GetVersion == nil) != (d.SetVersion == nil) {
		return errors.Join(ErrInvalidDescriptor, ErrIncompleteAccessor)
	}

	return nil
}

// HasIDField reports whether the entity type declares an identifier field.
func (d EntityDescriptor[T]) HasIDField() bool {
	return d.GetID != nil
}

// HasVersionField reports whether the entity type declares a version field.
func (d EntityDescriptor[T]) HasVersionField() bool {
	return d.GetVersion != nil
}

// HasTxResultField reports whether the entity type declares a transaction-result key field.
func (d EntityDescriptor[T]) HasTxResultField() bool {
	return d.SetTxResultKey != nil
}

// IDOf returns the entity's document id, or the empty string when the type
// declares no identifier field.
func (d EntityDescriptor[T]) IDOf(entity T) string {
	if d.GetID == nil {
		return ""
	}

	return d.GetID(entity)
}

// ApplyID writes the document id onto the entity; no-op when the type declares
// no identifier field.
func (d EntityDescriptor[T]) ApplyID(entity T, id string) {
	if d.SetID != nil {
		d.SetID(entity, id)
	}
}

// VersionOf returns the entity's current version token, or zero when the type
// declares no version field.
func (d EntityDescriptor[T]) VersionOf(entity T) VersionTokenInt64 {
	if d.GetVersion == nil {
		return 0
	}

	return d.GetVersion(entity)
}

// ApplyVersion writes the version token onto the entity; no-op when the type
// declares no version field.
func (d EntityDescriptor[T]) ApplyVersion(entity T, token VersionTokenInt64) {
	if d.SetVersion != nil {
		d.SetVersion(entity, token)
	}
}

// ApplyTxResultKey writes the transaction-result correlation key onto the
// entity; no-op when the type declares no such field.
func (d EntityDescriptor[T]) ApplyTxResultKey(entity T, key uint64) {
	if d.SetTxResultKey != nil {
		d.SetTxResultKey(entity, key)
	}
}

// storageOwnedFields lists the field names the storage layer owns; they are
// stripped from the document body on encode and injected back on decode.
func (d EntityDescriptor[T]) storageOwnedFields() []string {
	fields := make([]string, 0, 3)

	if d.IDField != "" {
		fields = append(fields, d.IDField)
	}
	if d.VersionField != "" {
		fields = append(fields, d.VersionField)
	}
	if d.TxResultField != "" {
		fields = append(fields, d.TxResultField)
	}

	return fields
}
