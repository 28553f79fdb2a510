package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/selection"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	id := uuid.MustParse("6f1c0c1e-6d0e-4a55-9a43-3d1b1f1e7c42")
	sel := selection.Selection{
		ID:         id,
		Generation: 7,
		Point:      domain.Point{Lat: 46, Lng: -6},
		TimeRange:  "2016-2020",
		Month:      "Aug",
		SelectedAt: now,
	}
	summary := domain.Summary{
		Location:       "46° 0' 0'' N, 6° 0' 0'' W",
		SeaTemperature: &domain.SeaTemperature{MeanC: 20, MeanF: 68},
		GeneratedAt:    now,
	}

	msg, err := serializeToMessage(sel, summary)
	require.NoError(t, err)

	assert.Equal(t, []byte(id.String()), msg.Key)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "generation", msg.Headers[0].Key)
	assert.Equal(t, []byte("7"), msg.Headers[0].Value)
	assert.Equal(t, "time_range", msg.Headers[1].Key)
	assert.Equal(t, []byte("2016-2020"), msg.Headers[1].Value)
	assert.Equal(t, "month", msg.Headers[2].Key)
	assert.Equal(t, []byte("Aug"), msg.Headers[2].Value)
	assert.Equal(t, "generated_at", msg.Headers[3].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[3].Value)

	var decoded SummaryMessage
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, id, decoded.Selection.ID)
	assert.Equal(t, summary.Location, decoded.Summary.Location)
	assert.Equal(t, summary.Texts(), decoded.Texts)
}
