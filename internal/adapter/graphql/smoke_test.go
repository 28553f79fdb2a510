//go:build dataapi

package graphql

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/observability"
)

// These tests hit a real data API and require DATA_API_URL.
// Run with: go test -tags=dataapi ./internal/adapter/graphql/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("DATA_API_URL")
	if url == "" {
		t.Fatal("DATA_API_URL must be set to run smoke tests")
	}
	return NewClient(url, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestSmoke_Metadata(t *testing.T) {
	c := smokeClient(t)

	meta, err := c.Metadata(context.Background())
	require.NoError(t, err)

	assert.True(t, meta.Loaded())
	assert.Len(t, meta.Directions, 16)
	assert.NoError(t, domain.WindCatalog().CheckBounds(meta.WindBounds()))
}

func TestSmoke_Weather(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedSource(c, 10, time.Hour, nil, observability.NewMetricsForTesting())

	meta, err := cached.Metadata(context.Background())
	require.NoError(t, err)

	q := domain.WeatherQuery{
		TimeRange: meta.TimeRanges[0],
		Month:     meta.Months[0],
		Rect:      domain.RectangleFromClick(domain.Point{Lat: 46, Lng: -6}, 8),
	}
	r1, err := cached.Weather(context.Background(), q)
	require.NoError(t, err)
	assert.NotEmpty(t, r1.Winds)

	r2, err := cached.Weather(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
