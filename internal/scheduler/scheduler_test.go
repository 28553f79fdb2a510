package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/prevailing-winds/internal/observability"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) RefreshMetadata(ctx context.Context) error {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RefreshesOnInterval(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, 100*time.Millisecond, time.Second, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return r.calls.Load() >= 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestScheduler_WaitsForFirstInterval(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, time.Hour, time.Second, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestScheduler_StopHaltsRefreshes(t *testing.T) {
	r := &countingRefresher{err: errors.New("upstream down")}
	s := New(r, 100*time.Millisecond, time.Second, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		return r.calls.Load() >= 1
	}, 3*time.Second, 20*time.Millisecond)
	s.Stop()

	after := r.calls.Load()
	time.Sleep(300 * time.Millisecond)
	assert.LessOrEqual(t, r.calls.Load(), after+1)
}

func TestScheduler_RefreshRecordsOutcome(t *testing.T) {
	r := &countingRefresher{err: errors.New("upstream down")}
	s := New(r, time.Hour, time.Second, discardLogger(), observability.NewMetricsForTesting())

	s.refresh()
	r.err = nil
	s.refresh()

	assert.Equal(t, int32(2), r.calls.Load())
}
