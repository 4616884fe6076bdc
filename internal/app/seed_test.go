package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_reviews/internal/app"
	"hotel_reviews/internal/domain"
	"hotel_reviews/internal/storage/memory"
)

type fakeCatalog map[int64]map[string]any

func (f fakeCatalog) GetProperty(_ context.Context, id int64) (map[string]any, error) {
	p, ok := f[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p == nil {
		return nil, errors.New("remote 500")
	}
	return p, nil
}

func TestMapProperty(t *testing.T) {
	in, err := app.MapProperty(map[string]any{
		"hotel_name": " Hotel du Lac ",
		"address":    map[string]any{"city": "Geneva"},
		"latitude":   46.2044,
		"longitude":  "6,1432",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InsertHotel{Name: "Hotel du Lac", Location: "Geneva", Latitude: "46.2044", Longitude: "6.1432"}, in)

	_, err = app.MapProperty(map[string]any{"name": "No City", "lat": 1.0, "lng": 2.0})
	assert.ErrorContains(t, err, "city")
}

func TestSeed_ImportsIdempotently(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := app.NewRepository(store, nil)
	cat := fakeCatalog{
		1: {"name": "Grand", "city": "Paris", "lat": 48.8, "lon": 2.3},
		2: {"name": "grand", "city": "paris", "lat": 48.8, "lon": 2.3},
		3: {"name": "Lido", "city": "Venice", "lat": 45.4, "lon": 12.3},
		4: nil,
		5: {"name": "Broken"},
	}
	svc := app.NewSeedService(cat, repo)

	stats, err := svc.Seed(ctx, []int64{1, 2, 3, 4, 5, 6}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Imported)
	assert.Equal(t, int64(1), stats.Missing)
	assert.Equal(t, int64(2), stats.Failed)

	hs, err := store.ListHotels(ctx)
	require.NoError(t, err)
	assert.Len(t, hs, 2)

	_, err = svc.Seed(ctx, []int64{1, 3}, 1)
	require.NoError(t, err)
	hs, err = store.ListHotels(ctx)
	require.NoError(t, err)
	assert.Len(t, hs, 2)
}

func TestSeed_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := app.NewSeedService(fakeCatalog{}, app.NewRepository(memory.New(), nil))

	_, err := svc.Seed(ctx, []int64{1, 2}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
