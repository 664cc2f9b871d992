package treecache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/stratastore/internal/app/system/sectiontree"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func sampleForest() []*models.SectionNode {
	child := &models.SectionNode{
		Section:  models.Section{Name: "Wedding", Slug: "wedding", Level: 1},
		Children: []*models.SectionNode{},
	}
	return []*models.SectionNode{{
		Section:  models.Section{Name: "Invitations", Slug: "invitations"},
		Children: []*models.SectionNode{child},
	}}
}

func TestCache_RoundTripUntilInvalidated(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	c := New(client)

	_, ok := c.Get(ctx, sectiontree.KeyNavigation)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sectiontree.KeyNavigation, sampleForest()))
	got, ok := c.Get(ctx, sectiontree.KeyNavigation)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "invitations", got[0].Slug)
	require.Len(t, got[0].Children, 1)
	assert.Equal(t, "wedding", got[0].Children[0].Slug)
	assert.NotNil(t, got[0].Children[0].Children)

	require.NoError(t, c.Invalidate(ctx))
	_, ok = c.Get(ctx, sectiontree.KeyNavigation)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(2), stats["misses"])
}

func TestCache_PrefixAndTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	c := New(client, WithPrefix("test:"), WithTTL(time.Minute))

	require.NoError(t, c.Set(ctx, sectiontree.KeyHomepage, sampleForest()))
	assert.True(t, mr.Exists("test:"+sectiontree.KeyHomepage))

	mr.FastForward(time.Minute + time.Second)
	_, ok := c.Get(ctx, sectiontree.KeyHomepage)
	assert.False(t, ok)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := New(client)
	require.NoError(t, mr.Set(DefaultPrefix+sectiontree.KeyHierarchyAll, "{not json"))

	_, ok := c.Get(context.Background(), sectiontree.KeyHierarchyAll)
	assert.False(t, ok)
}

func TestCache_RedisDownDegrades(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	c := New(client)
	mr.Close()

	_, ok := c.Get(ctx, sectiontree.KeyNavigation)
	assert.False(t, ok)
	assert.Error(t, c.Set(ctx, sectiontree.KeyNavigation, sampleForest()))
}
