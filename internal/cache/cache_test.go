package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/model"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() }) //nolint:errcheck
	return &Cache{client: client, ttl: time.Hour}, srv
}

func testResult(score float64) *analytics.Result {
	return &analytics.Result{OverallScore: score, TableVersion: "v1"}
}

func TestCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "analytics:aud-1:abc", testResult(77.5)))

	got, found, err := c.Get(ctx, "analytics:aud-1:abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 77.5, got.OverallScore, 0.0001)
	assert.Equal(t, "v1", got.TableVersion)
}

func TestCache_MissReturnsNotFound(t *testing.T) {
	c, _ := newTestCache(t)

	got, found, err := c.Get(context.Background(), "analytics:missing:xyz")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestCache_EntriesExpire(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "analytics:aud-1:abc", testResult(50)))
	srv.FastForward(2 * time.Hour)

	_, found, err := c.Get(ctx, "analytics:aud-1:abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_InvalidateRemovesOnlyAuditKeys(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "analytics:aud-1:aaa", testResult(10)))
	require.NoError(t, c.Set(ctx, "analytics:aud-1:bbb", testResult(20)))
	require.NoError(t, c.Set(ctx, "analytics:aud-2:ccc", testResult(30)))

	require.NoError(t, c.Invalidate(ctx, "aud-1"))

	_, found, err := c.Get(ctx, "analytics:aud-1:aaa")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = c.Get(ctx, "analytics:aud-1:bbb")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = c.Get(ctx, "analytics:aud-2:ccc")
	require.NoError(t, err)
	assert.True(t, found, "other audits keep their entries")
}

func TestFingerprint_TracksRecordState(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []model.QueryRecord{
		{ID: "q1", Status: model.QueryStatusCompleted, UpdatedAt: now},
		{ID: "q2", Status: model.QueryStatusPending, UpdatedAt: now},
	}

	base := Fingerprint(records)
	assert.Len(t, base, 16)

	// Order doesn't matter.
	swapped := []model.QueryRecord{records[1], records[0]}
	assert.Equal(t, base, Fingerprint(swapped))

	// Status changes do.
	records[1].Status = model.QueryStatusCompleted
	assert.NotEqual(t, base, Fingerprint(records))

	// So do update times.
	records[1].Status = model.QueryStatusPending
	records[1].UpdatedAt = now.Add(time.Second)
	assert.NotEqual(t, base, Fingerprint(records))
}

func TestKey_EmbedsAuditAndFingerprint(t *testing.T) {
	records := []model.QueryRecord{{ID: "q1", Status: model.QueryStatusCompleted}}
	key := Key("aud-9", records)
	assert.Contains(t, key, "analytics:aud-9:")
	assert.Contains(t, key, Fingerprint(records))
}
