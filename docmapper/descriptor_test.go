package docmapper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lacinoire/spring-data-couchbase/docmapper"
)

type account struct {
	ID      string                      `json:"id"`
	Version docmapper.VersionTokenInt64 `json:"version"`
	Owner   string                      `json:"owner"`
}

func accountDescriptor() docmapper.EntityDescriptor[*account] {
	return docmapper.EntityDescriptor[*account]{
		TypeName: "Account",
		New:      func() *account { return &account{} },

		IDField: "id",
		GetID:   func(a *account) string { return a.ID },
		SetID:   func(a *account, id string) { a.ID = id },

		VersionField: "version",
		GetVersion:   func(a *account) docmapper.VersionTokenInt64 { return a.Version },
		SetVersion:   func(a *account, token docmapper.VersionTokenInt64) { a.Version = token },
	}
}

func Test_EntityDescriptor_Validate_ErrorCases(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(d *docmapper.EntityDescriptor[*account])
		expectedErr error
	}{
		{
			name:        "empty type name",
			mutate:      func(d *docmapper.EntityDescriptor[*account]) { d.TypeName = "" },
			expectedErr: docmapper.ErrEmptyTypeName,
		},
		{
			name:        "nil factory",
			mutate:      func(d *docmapper.EntityDescriptor[*account]) { d.New = nil },
			expectedErr: docmapper.ErrNilEntityFactory,
		},
		{
			name:        "id getter without setter",
			mutate:      func(d *docmapper.EntityDescriptor[*account]) { d.SetID = nil },
			expectedErr: docmapper.ErrIncompleteAccessor,
		},
		{
			name:        "id setter without getter",
			mutate:      func(d *docmapper.EntityDescriptor[*account]) { d.GetID = nil },
			expectedErr: docmapper.ErrIncompleteAccessor,
		},
		{
			name:        "version getter without setter",
			mutate:      func(d *docmapper.EntityDescriptor[*account]) { d.SetVersion = nil },
			expectedErr: docmapper.ErrIncompleteAccessor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descriptor := accountDescriptor()
			tt.mutate(&descriptor)

			err := descriptor.Validate()

			assert.ErrorIs(t, err, docmapper.ErrInvalidDescriptor)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func Test_EntityDescriptor_Validate_CompleteDescriptor(t *testing.T) {
	assert.NoError(t, accountDescriptor().Validate())
}

func Test_EntityDescriptor_Validate_AccessorsAreOptional(t *testing.T) {
	descriptor := docmapper.EntityDescriptor[*account]{
		TypeName: "Projection",
		New:      func() *account { return &account{} },
	}

	assert.NoError(t, descriptor.Validate())
	assert.False(t, descriptor.HasIDField())
	assert.False(t, descriptor.HasVersionField())
	assert.False(t, descriptor.HasTxResultField())
}

func Test_EntityDescriptor_Accessors_ReadAndWriteDesignatedFields(t *testing.T) {
	descriptor := accountDescriptor()
	entity := &account{ID: "acc-1", Version: 7, Owner: "Ada"}

	assert.Equal(t, "acc-1", descriptor.IDOf(entity))
	assert.Equal(t, docmapper.VersionTokenInt64(7), descriptor.VersionOf(entity))

	descriptor.ApplyID(entity, "acc-2")
	descriptor.ApplyVersion(entity, 8)

	assert.Equal(t, "acc-2", entity.ID)
	assert.Equal(t, docmapper.VersionTokenInt64(8), entity.Version)
}

func Test_EntityDescriptor_Accessors_SkipSilentlyWhenUndeclared(t *testing.T) {
	descriptor := docmapper.EntityDescriptor[*account]{
		TypeName: "Projection",
		New:      func() *account { return &account{} },
	}
	entity := &account{ID: "acc-1", Version: 7}

	// Undeclared fields read as zero values and writes are no-ops.
	assert.Equal(t, "", descriptor.IDOf(entity))
	assert.Equal(t, docmapper.VersionTokenInt64(0), descriptor.VersionOf(entity))

	descriptor.ApplyID(entity, "acc-2")
	descriptor.ApplyVersion(entity, 9)
	descriptor.ApplyTxResultKey(entity, 3)

	assert.Equal(t, "acc-1", entity.ID)
	assert.Equal(t, docmapper.VersionTokenInt64(7), entity.Version)
}
