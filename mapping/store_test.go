package mapping

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu   sync.Mutex
	data string
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.data), nil
}

func (f *fakeFetcher) set(data string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.err = data, err
}

func TestStoreReloadSwapsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{data: header + "Notice ID,id,TRUE,TRUE,TRUE,TRUE,,,\n"}

	store, err := NewFetcherStore(ctx, f, "mappings.csv", zap.NewNop())
	require.NoError(t, err)
	first := store.Current()
	assert.Len(t, first.Rows(), 1)

	f.set(header+"Notice ID,id,TRUE,TRUE,TRUE,TRUE,,,\nTender Title,tender/title,TRUE,FALSE,FALSE,TRUE,,,\n", nil)
	require.NoError(t, store.Reload(ctx))
	assert.Len(t, store.Current().Rows(), 2)
	// alter Schnappschuss bleibt unverändert
	assert.Len(t, first.Rows(), 1)
}

func TestStoreReloadFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{data: header + "Notice ID,id,TRUE,TRUE,TRUE,TRUE,,,\n"}
	store, err := NewFetcherStore(ctx, f, "mappings.csv", zap.NewNop())
	require.NoError(t, err)
	before := store.Current()

	f.set("", errors.New("bucket unavailable"))
	require.Error(t, store.Reload(ctx))
	assert.Same(t, before, store.Current())

	f.set(strings.Replace(header, "uri", "url", 1), nil)
	require.Error(t, store.Reload(ctx))
	assert.Same(t, before, store.Current())
}

func TestStoreConcurrentReads(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{data: header + "Notice ID,id,TRUE,TRUE,TRUE,TRUE,,,\n"}
	store, err := NewFetcherStore(ctx, f, "mappings.csv", zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.NotNil(t, store.Current())
			}
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Reload(ctx))
	}
	wg.Wait()
}

func TestNewFileStoreFailsOnMissingFile(t *testing.T) {
	_, err := NewFileStore(context.Background(), "does-not-exist.csv", zap.NewNop())
	assert.Error(t, err)
}
