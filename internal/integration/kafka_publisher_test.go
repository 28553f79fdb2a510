//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/prevailing-winds/internal/adapter/kafka"
	"github.com/couchcryptid/prevailing-winds/internal/config"
	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/observability"
	"github.com/couchcryptid/prevailing-winds/internal/pipeline"
	"github.com/couchcryptid/prevailing-winds/internal/selection"
)

// publishedMessage holds a deserialized message read from the summary topic.
type publishedMessage struct {
	Value   kafka.SummaryMessage
	Key     string
	Headers map[string]string
}

// readPublished reads a single message from the summary topic and deserializes it.
func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from summary topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var value kafka.SummaryMessage
	require.NoError(t, json.Unmarshal(msg.Value, &value), "unmarshal summary message")

	return publishedMessage{Value: value, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

type staticSource struct {
	result domain.WeatherResult
}

func (s staticSource) Metadata(context.Context) (domain.Metadata, error) {
	return domain.DefaultMetadata(), nil
}

func (s staticSource) Weather(context.Context, domain.WeatherQuery) (domain.WeatherResult, error) {
	return s.result, nil
}

// TestSummaryPublisher verifies a published summary round-trips through Kafka with its
// key and headers intact.
func TestSummaryPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "test-summaries"
	createTopic(t, broker, topic)

	pub := kafka.NewPublisher(&config.Config{KafkaBrokers: []string{broker}, KafkaSummaryTopic: topic}, discardLogger())
	defer pub.Close()

	now := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	sel := selection.Selection{
		ID:         uuid.New(),
		Generation: 3,
		Point:      domain.Point{Lat: 46, Lng: -6},
		Rect:       domain.RectangleFromClick(domain.Point{Lat: 46, Lng: -6}, 6),
		Zoom:       6,
		TimeRange:  "2016-2020",
		Month:      "Aug",
		SelectedAt: now,
	}
	summary := domain.Summary{
		Query:          sel.Query(),
		Location:       domain.FormatDMS(46, -6),
		SeaTemperature: &domain.SeaTemperature{MeanC: 20, MeanF: 68},
		GeneratedAt:    now,
	}
	require.NoError(t, pub.Publish(ctx, sel, summary))

	got := readPublished(ctx, t, newConsumer(t, broker, topic))

	assert.Equal(t, sel.ID.String(), got.Key)
	assert.Equal(t, "3", got.Headers["generation"])
	assert.Equal(t, "2016-2020", got.Headers["time_range"])
	assert.Equal(t, "Aug", got.Headers["month"])
	assert.Equal(t, now.Format(time.RFC3339), got.Headers["generated_at"])
	assert.Equal(t, sel.ID, got.Value.Selection.ID)
	assert.Equal(t, summary.Location, got.Value.Summary.Location)
	assert.Equal(t, []string{"Average water temperature is 20°C (68°F)"}, got.Value.Texts)
}

// TestPipelinePublishesSummaries runs the selection pipeline against a static source and
// checks that the applied summary reaches the topic.
func TestPipelinePublishesSummaries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "test-pipeline-summaries"
	createTopic(t, broker, topic)

	pub := kafka.NewPublisher(&config.Config{KafkaBrokers: []string{broker}, KafkaSummaryTopic: topic}, discardLogger())
	defer pub.Close()

	state, err := selection.New(domain.DefaultAreaSelector(), 6, clockwork.NewRealClock())
	require.NoError(t, err)
	src := staticSource{result: domain.WeatherResult{
		Winds: []domain.RawRecord{
			{Index: 5, Direction: 1, Count: 60},
			{Index: 1, Direction: 9, Count: 40},
		},
	}}
	p := pipeline.New(src, state, pub, domain.DefaultCatalogs(), 400, discardLogger(), observability.NewMetricsForTesting())

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- p.Run(runCtx) }()
	defer func() {
		stop()
		<-done
	}()

	require.Eventually(t, func() bool {
		return p.CheckReadiness(ctx) == nil
	}, 10*time.Second, 50*time.Millisecond)

	sel, err := p.Select(selection.Request{
		Point:     domain.Point{Lat: 46, Lng: -6},
		TimeRange: "2016-2020",
		Month:     "Jul",
	})
	require.NoError(t, err)

	got := readPublished(ctx, t, newConsumer(t, broker, topic))

	assert.Equal(t, sel.ID.String(), got.Key)
	assert.Equal(t, "Jul", got.Headers["month"])
	assert.Equal(t, 100, got.Value.Summary.Wind.Total)
	require.NotEmpty(t, got.Value.Texts)
	assert.Contains(t, got.Value.Texts[0], "are most often encountered making up 60%")

	snap := p.State().Snapshot()
	assert.Equal(t, selection.StatusReady, snap.Status)
}
