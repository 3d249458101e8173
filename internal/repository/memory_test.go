package repository

import (
	"context"
	"testing"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_Tracks(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(&config.SessionConfig{TrackTTL: time.Minute, MaxMemoryTracks: 2}, nil)

	track := testTrack()
	require.NoError(t, repo.SaveTrack(ctx, "s1", track))

	// Хранится копия
	track[0].Timestamp = 1
	loaded, err := repo.LoadTrack(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), loaded[0].Timestamp)

	require.NoError(t, repo.SaveTrack(ctx, "s2", track))
	require.NoError(t, repo.SaveTrack(ctx, "s3", track))

	// Емкость 2: самый старый список вытеснен
	_, err = repo.LoadTrack(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err := repo.HasTrack(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.HasTrack(ctx, "s3")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.DeleteTrack(ctx, "s3"))
	_, err = repo.LoadTrack(ctx, "s3")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, repo.SaveTrack(ctx, "", track))
}

func TestMemoryRepository_Buoys(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(nil, nil)

	_, err := repo.LoadBuoys(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SaveBuoys(ctx, testBuoys()))
	loaded, err := repo.LoadBuoys(ctx)
	require.NoError(t, err)
	assert.Equal(t, testBuoys(), loaded)

	nearby, err := repo.NearbyBuoys(ctx, models.GeoPoint{Latitude: 10.0, Longitude: 106.0}, 20)
	require.NoError(t, err)
	require.Len(t, nearby, 2)
	assert.Equal(t, "b1", nearby[0].ID)
	assert.Zero(t, nearby[0].DistanceKM)
	assert.Equal(t, "b2", nearby[1].ID)
	assert.InDelta(t, 11.1, nearby[1].DistanceKM, 0.2)
}
