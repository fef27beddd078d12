package docmapper

import (
	jsoniter "github.com/json-iterator/go"
)

// TranslationService converts between the generic Document representation and
// raw bytes. The mapping core is agnostic to the concrete byte format; the
// default implementation uses JSON.
type TranslationService interface {
	Encode(doc *Document) ([]byte, error)
	Decode(raw []byte, target *Document) error
}

// JSONTranslation is the default TranslationService, serializing documents as
// JSON objects with field order preserved.
type JSONTranslation struct {
	api jsoniter.API
}

// NewJSONTranslation creates a JSON translation service.
func NewJSONTranslation() *JSONTranslation {
	return &JSONTranslation{api: jsoniter.ConfigFastest}
}

// Encode serializes the document body to JSON bytes.
func (t *JSONTranslation) Encode(doc *Document) ([]byte, error) {
	return doc.MarshalJSON()
}

// Decode parses JSON bytes into the target document body.
func (t *JSONTranslation) Decode(raw []byte, target *Document) error {
	return target.UnmarshalJSON(raw)
}

// Ensure JSONTranslation implements TranslationService.
var _ TranslationService = (*JSONTranslation)(nil)
