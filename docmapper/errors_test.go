package docmapper_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lacinoire/spring-data-couchbase/docmapper"
)

func Test_OpKind_String(t *testing.T) {
	tests := []struct {
		op       docmapper.OpKind
		expected string
	}{
		{op: docmapper.OpGet, expected: "get"},
		{op: docmapper.OpInsert, expected: "insert"},
		{op: docmapper.OpUpsert, expected: "upsert"},
		{op: docmapper.OpReplace, expected: "replace"},
		{op: docmapper.OpRemove, expected: "remove"},
		{op: docmapper.OpExists, expected: "exists"},
		{op: docmapper.OpKind(99), expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.op.String())
		})
	}
}

func Test_StorageError_CarriesOperationAndDocumentID(t *testing.T) {
	cause := errors.New("connection reset")
	err := &docmapper.StorageError{Op: docmapper.OpReplace, ID: "acc-1", Err: cause}

	assert.Contains(t, err.Error(), "replace")
	assert.Contains(t, err.Error(), "acc-1")
	assert.ErrorIs(t, err, cause)
}
