package docmapper

import (
	"errors"
	"io"
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

var ErrNotAJSONObject = errors.New("payload is not a json object")

// DocumentField is one named field of a Document.
type DocumentField struct {
	Name  string
	Value any
}

// Document is the generic, ordered field-mapping representation of an entity,
// independent of its typed shape. The identifier attribute is kept outside the
// field list because it is owned by the storage layer, not the document body.
//
// A Document is ephemeral: it exists only for the duration of one
// encode/write or read/decode cycle.
type Document struct {
	id     string
	fields []DocumentField
	index  map[string]int
}

// NewDocument creates an empty Document.
func NewDocument() *Document {
	return &Document{index: make(map[string]int)}
}

// NewDocumentWithID creates an empty Document with the identifier attribute set.
func NewDocumentWithID(id string) *Document {
	doc := NewDocument()
	doc.id = id

	return doc
}

// ID returns the identifier attribute.
func (d *Document) ID() string {
	return d.id
}

// SetID sets the identifier attribute.
func (d *Document) SetID(id string) {
	d.id = id
}

// Set writes a field value. Overwriting an existing field keeps its position.
func (d *Document) Set(name string, value any) {
	if pos, ok := d.index[name]; ok {
		d.fields[pos].Value = value
		return
	}

	d.index[name] = len(d.fields)
	d.fields = append(d.fields, DocumentField{Name: name, Value: value})
}

// Get returns a field value and whether the field is present.
func (d *Document) Get(name string) (any, bool) {
	pos, ok := d.index[name]
	if !ok {
		return nil, false
	}

	return d.fields[pos].Value, true
}

// Remove deletes a field if present, preserving the order of the remaining fields.
func (d *Document) Remove(name string) {
	pos, ok := d.index[name]
	if !ok {
		return
	}

	d.fields = append(d.fields[:pos], d.fields[pos+1:]...)
	delete(d.index, name)

	for i := pos; i < len(d.fields); i++ {
		d.index[d.fields[i].Name] = i
	}
}

// Len returns the number of fields.
func (d *Document) Len() int {
	return len(d.fields)
}

// Fields returns a copy of the fields in insertion order.
func (d *Document) Fields() []DocumentField {
	out := make([]DocumentField, len(d.fields))
	copy(out, d.fields)

	return out
}

// Clone returns a deep-enough copy for one encode/decode cycle:
// field values are shared, the field list and index are not.
func (d *Document) Clone() *Document {
	clone := NewDocumentWithID(d.id)
	for _, field := range d.fields {
		clone.Set(field.Name, field.Value)
	}

	return clone
}

// Equal reports structural equality: same identifier attribute and the same
// fields in the same order.
func (d *Document) Equal(other *Document) bool {
	if other == nil || d.id != other.id || len(d.fields) != len(other.fields) {
		return false
	}

	for i, field := range d.fields {
		if field.Name != other.fields[i].Name {
			return false
		}
		if !reflect.DeepEqual(field.Value, other.fields[i].Value) {
			return false
		}
	}

	return true
}

// MarshalJSON serializes the document body as a JSON object preserving field order.
// The identifier attribute is not part of the body.
func (d *Document) MarshalJSON() ([]byte, error) {
	stream := jsoniter.ConfigFastest.BorrowStream(nil)
	defer jsoniter.ConfigFastest.ReturnStream(stream)

	stream.WriteObjectStart()

	for i, field := range d.fields {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(field.Name)
		stream.WriteVal(field.Value)
	}

	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}

	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())

	return out, nil
}

// UnmarshalJSON parses a JSON object into the document body preserving field order.
// The identifier attribute is left untouched.
func (d *Document) UnmarshalJSON(data []byte) error {
	if d.index == nil {
		d.index = make(map[string]int)
	}

	iter := jsoniter.ParseBytes(jsoniter.ConfigFastest, data)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return ErrNotAJSONObject
	}

	iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		d.Set(field, it.Read())
		return it.Error == nil
	})

	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return iter.Error
	}

	return nil
}
