package docmapper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacinoire/spring-data-couchbase/docmapper"
)

type receipt struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
	TxKey uint64 `json:"txKey"`
}

func receiptDescriptor() docmapper.EntityDescriptor[*receipt] {
	return docmapper.EntityDescriptor[*receipt]{
		TypeName: "Receipt",
		New:      func() *receipt { return &receipt{} },

		IDField: "id",
		GetID:   func(r *receipt) string { return r.ID },
		SetID:   func(r *receipt, id string) { r.ID = id },

		TxResultField:  "txKey",
		SetTxResultKey: func(r *receipt, key uint64) { r.TxKey = key },
	}
}

func Test_Codec_Encode_StripsStorageOwnedFieldsFromBody(t *testing.T) {
	// setup
	codec, codecErr := docmapper.NewCodec(accountDescriptor(), nil, nil)
	require.NoError(t, codecErr)
	entity := &account{ID: "acc-1", Version: 3, Owner: "Ada"}

	// act
	_, doc, encodeErr := codec.Encode(context.Background(), entity)

	// assert
	require.NoError(t, encodeErr)
	assert.Equal(t, "acc-1", doc.ID())

	_, hasID := doc.Get("id")
	assert.False(t, hasID)
	_, hasVersion := doc.Get("version")
	assert.False(t, hasVersion)

	owner, hasOwner := doc.Get("owner")
	assert.True(t, hasOwner)
	assert.Equal(t, "Ada", owner)
}

func Test_Codec_Encode_BeforeConvertHookMaySubstituteEntity(t *testing.T) {
	// setup
	hooks := docmapper.NewLifecycleHooks[*account]()
	hooks.OnBeforeConvert(func(_ context.Context, entity *account) (*account, error) {
		substituted := *entity
		substituted.Owner = "Grace"
		return &substituted, nil
	})

	codec, codecErr := docmapper.NewCodec(accountDescriptor(), hooks, nil)
	require.NoError(t, codecErr)
	original := &account{ID: "acc-1", Owner: "Ada"}

	// act
	current, doc, encodeErr := codec.Encode(context.Background(), original)

	// assert
	require.NoError(t, encodeErr)
	assert.Equal(t, "Grace", current.Owner)
	assert.Equal(t, "Ada", original.Owner, "original entity must stay untouched")

	owner, _ := doc.Get("owner")
	assert.Equal(t, "Grace", owner, "document reflects the substituted entity")
}

func Test_Codec_Encode_HookFailuresAbortWithMappingError(t *testing.T) {
	hookFailure := errors.New("hook rejected the entity")

	tests := []struct {
		name     string
		register func(hooks *docmapper.LifecycleHooks[*account])
	}{
		{
			name: "before-convert hook fails",
			register: func(hooks *docmapper.LifecycleHooks[*account]) {
				hooks.OnBeforeConvert(func(_ context.Context, entity *account) (*account, error) {
					return entity, hookFailure
				})
			},
		},
		{
			name: "after-convert hook fails",
			register: func(hooks *docmapper.LifecycleHooks[*account]) {
				hooks.OnAfterConvert(func(_ context.Context, _ *account, _ *docmapper.Document) error {
					return hookFailure
				})
			},
		},
		{
			name: "before-save hook fails",
			register: func(hooks *docmapper.LifecycleHooks[*account]) {
				hooks.OnBeforeSave(func(_ context.Context, _ *account, _ *docmapper.Document) error {
					return hookFailure
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// setup
			hooks := docmapper.NewLifecycleHooks[*account]()
			tt.register(hooks)

			codec, codecErr := docmapper.NewCodec(accountDescriptor(), hooks, nil)
			require.NoError(t, codecErr)

			// act
			_, _, encodeErr := codec.Encode(context.Background(), &account{ID: "acc-1"})

			// assert
			assert.ErrorIs(t, encodeErr, docmapper.ErrMappingFailed)
			assert.ErrorIs(t, encodeErr, hookFailure)
		})
	}
}

func Test_Codec_Encode_HooksRunInRegistrationOrder(t *testing.T) {
	// setup
	var order []string
	hooks := docmapper.NewLifecycleHooks[*account]()
	hooks.OnBeforeConvert(func(_ context.Context, entity *account) (*account, error) {
		order = append(order, "before-convert")
		return entity, nil
	})
	hooks.OnAfterConvert(func(_ context.Context, _ *account, _ *docmapper.Document) error {
		order = append(order, "after-convert")
		return nil
	})
	hooks.OnBeforeSave(func(_ context.Context, _ *account, _ *docmapper.Document) error {
		order = append(order, "before-save")
		return nil
	})

	codec, codecErr := docmapper.NewCodec(accountDescriptor(), hooks, nil)
	require.NoError(t, codecErr)

	// act
	_, _, encodeErr := codec.Encode(context.Background(), &account{ID: "acc-1"})

	// assert
	require.NoError(t, encodeErr)
	assert.Equal(t, []string{"before-convert", "after-convert", "before-save"}, order)
}

func Test_Codec_Decode_InjectsIdentifierAndVersion(t *testing.T) {
	// setup
	codec, codecErr := docmapper.NewCodec(accountDescriptor(), nil, nil)
	require.NoError(t, codecErr)

	// act
	entity, decodeErr := codec.Decode(context.Background(), "acc-1", []byte(`{"owner":"Ada"}`), 5)

	// assert
	require.NoError(t, decodeErr)
	assert.Equal(t, "acc-1", entity.ID)
	assert.Equal(t, docmapper.VersionTokenInt64(5), entity.Version)
	assert.Equal(t, "Ada", entity.Owner)
}

func Test_Codec_Decode_ZeroVersionTokenLeavesVersionZero(t *testing.T) {
	codec, codecErr := docmapper.NewCodec(accountDescriptor(), nil, nil)
	require.NoError(t, codecErr)

	entity, decodeErr := codec.Decode(context.Background(), "acc-1", []byte(`{"owner":"Ada"}`), 0)

	require.NoError(t, decodeErr)
	assert.Equal(t, "acc-1", entity.ID)
	assert.Equal(t, docmapper.VersionTokenInt64(0), entity.Version)
}

func Test_Codec_Decode_IsIdempotent(t *testing.T) {
	// setup
	codec, codecErr := docmapper.NewCodec(accountDescriptor(), nil, nil)
	require.NoError(t, codecErr)
	payload := []byte(`{"owner":"Ada"}`)

	// act
	first, firstErr := codec.Decode(context.Background(), "acc-1", payload, 5)
	second, secondErr := codec.Decode(context.Background(), "acc-1", payload, 5)

	// assert
	require.NoError(t, firstErr)
	require.NoError(t, secondErr)
	assert.Equal(t, first, second)
}

func Test_Codec_Decode_WhenPayloadIsMalformed(t *testing.T) {
	codec, codecErr := docmapper.NewCodec(accountDescriptor(), nil, nil)
	require.NoError(t, codecErr)

	_, decodeErr := codec.Decode(context.Background(), "acc-1", []byte(`not json`), 0)

	assert.ErrorIs(t, decodeErr, docmapper.ErrDecodeFailed)
}

func Test_Codec_DecodeWithTransaction_RegistersResultAndAppliesKey(t *testing.T) {
	// setup
	codec, codecErr := docmapper.NewCodec(receiptDescriptor(), nil, nil)
	require.NoError(t, codecErr)
	registry := docmapper.NewTransactionResultRegistry()
	txResult := struct{ Attempt int }{Attempt: 2}

	// act
	entity, decodeErr := codec.DecodeWithTransaction(
		context.Background(), "rcpt-1", []byte(`{"total":42}`), 0, txResult, registry,
	)

	// assert
	require.NoError(t, decodeErr)
	assert.Equal(t, "rcpt-1", entity.ID)
	assert.Equal(t, 42, entity.Total)
	require.NotZero(t, entity.TxKey)

	stored, found := registry.Load(entity.TxKey)
	assert.True(t, found)
	assert.Equal(t, txResult, stored)
}

func Test_Codec_DecodeWithTransaction_WithoutResultLeavesRegistryUntouched(t *testing.T) {
	codec, codecErr := docmapper.NewCodec(receiptDescriptor(), nil, nil)
	require.NoError(t, codecErr)
	registry := docmapper.NewTransactionResultRegistry()

	entity, decodeErr := codec.DecodeWithTransaction(
		context.Background(), "rcpt-1", []byte(`{"total":42}`), 0, nil, registry,
	)

	require.NoError(t, decodeErr)
	assert.Zero(t, entity.TxKey)
	assert.Equal(t, 0, registry.Len())
}

func Test_NewCodec_RejectsInvalidDescriptor(t *testing.T) {
	descriptor := accountDescriptor()
	descriptor.TypeName = ""

	_, codecErr := docmapper.NewCodec(descriptor, nil, nil)

	assert.ErrorIs(t, codecErr, docmapper.ErrInvalidDescriptor)
}
