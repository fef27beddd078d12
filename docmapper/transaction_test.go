package docmapper_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacinoire/spring-data-couchbase/docmapper"
)

func Test_WithTransaction_RoundTrip(t *testing.T) {
	type fakeTx struct{ name string }
	tx := &fakeTx{name: "tx-1"}

	ctx := docmapper.WithTransaction(context.Background(), tx)

	extracted, found := docmapper.TransactionFromContext(ctx)
	require.True(t, found)
	assert.Same(t, tx, extracted)
}

func Test_TransactionFromContext_WhenNoTransactionIsAttached(t *testing.T) {
	extracted, found := docmapper.TransactionFromContext(context.Background())

	assert.False(t, found)
	assert.Nil(t, extracted)
}

func Test_TransactionResultRegistry_StoreAndLoad(t *testing.T) {
	registry := docmapper.NewTransactionResultRegistry()

	firstKey := registry.Store("first")
	secondKey := registry.Store("second")

	assert.NotEqual(t, firstKey, secondKey)
	assert.Equal(t, 2, registry.Len())

	first, found := registry.Load(firstKey)
	assert.True(t, found)
	assert.Equal(t, "first", first)

	second, found := registry.Load(secondKey)
	assert.True(t, found)
	assert.Equal(t, "second", second)
}

func Test_TransactionResultRegistry_Load_UnknownKey(t *testing.T) {
	registry := docmapper.NewTransactionResultRegistry()

	_, found := registry.Load(42)

	assert.False(t, found)
}

func Test_TransactionResultRegistry_ConcurrentStoresIssueUniqueKeys(t *testing.T) {
	// setup
	const goroutines = 16
	const storesPerGoroutine = 100

	registry := docmapper.NewTransactionResultRegistry()
	keys := make(chan docmapper.TransactionResultKeyUint64, goroutines*storesPerGoroutine)

	// act
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < storesPerGoroutine; i++ {
				keys <- registry.Store(worker)
			}
		}(g)
	}
	wg.Wait()
	close(keys)

	// assert
	seen := make(map[docmapper.TransactionResultKeyUint64]bool)
	for key := range keys {
		assert.False(t, seen[key], "key %d issued twice", key)
		seen[key] = true
	}
	assert.Equal(t, goroutines*storesPerGoroutine, registry.Len())
}
