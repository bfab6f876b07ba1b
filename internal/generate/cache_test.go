package generate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/apply-agent/internal/types"
)

// memContentStore is an in-memory ContentStore that counts reads.
type memContentStore struct {
	rows map[string]*types.GeneratedContent
	gets int
}

func newMemContentStore() *memContentStore {
	return &memContentStore{rows: make(map[string]*types.GeneratedContent)}
}

func (m *memContentStore) SaveContent(_ context.Context, content *types.GeneratedContent) error {
	cp := *content
	m.rows[content.Fingerprint] = &cp
	return nil
}

func (m *memContentStore) GetContent(_ context.Context, fingerprint string) (*types.GeneratedContent, error) {
	m.gets++
	row, ok := m.rows[fingerprint]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func TestCacheWritesThrough(t *testing.T) {
	ctx := context.Background()
	backing := newMemContentStore()
	c := NewCache(backing)

	content := &types.GeneratedContent{Fingerprint: "fp1", ResumeText: "resume"}
	require.NoError(t, c.Put(ctx, content))

	assert.Contains(t, backing.rows, "fp1", "put must write through to the store")

	got, err := c.Get(ctx, "fp1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "resume", got.ResumeText)
	assert.Zero(t, backing.gets, "memory hit must not consult the store")
}

func TestCachePromotesStoreHit(t *testing.T) {
	ctx := context.Background()
	backing := newMemContentStore()
	backing.rows["fp2"] = &types.GeneratedContent{Fingerprint: "fp2", ResumeText: "from store"}
	c := NewCache(backing)

	got, err := c.Get(ctx, "fp2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, backing.gets)

	// Promoted: the second read stays in memory.
	_, err = c.Get(ctx, "fp2")
	require.NoError(t, err)
	assert.Equal(t, 1, backing.gets)
}

func TestCacheMissAndNilStore(t *testing.T) {
	ctx := context.Background()

	c := NewCache(newMemContentStore())
	got, err := c.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, got)

	memOnly := NewCache(nil)
	require.NoError(t, memOnly.Put(ctx, &types.GeneratedContent{Fingerprint: "fp3"}))
	got, err = memOnly.Get(ctx, "fp3")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
