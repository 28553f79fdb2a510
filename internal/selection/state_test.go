package selection

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
)

func newTestState(t *testing.T) (*State, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 3, 9, 0, 0, 0, time.UTC))
	s, err := New(domain.DefaultAreaSelector(), 6, clock)
	require.NoError(t, err)
	return s, clock
}

func zoom(z int) *int { return &z }

func TestNew_InvalidZoom(t *testing.T) {
	_, err := New(domain.DefaultAreaSelector(), 99, nil)
	assert.ErrorIs(t, err, ErrInvalidZoom)
}

func TestState_Idle(t *testing.T) {
	s, clock := newTestState(t)

	snap := s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.Selection)
	assert.Nil(t, snap.Summary)
	assert.Equal(t, 6, snap.Zoom)
	assert.True(t, clock.Now().Equal(snap.UpdatedAt))
}

func TestState_Select(t *testing.T) {
	s, clock := newTestState(t)

	sel, err := s.Select(Request{Point: domain.Point{Lat: 46, Lng: -6}, TimeRange: "2020", Month: "Jan"})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), sel.Generation)
	assert.NotEqual(t, [16]byte{}, [16]byte(sel.ID))
	assert.Equal(t, 6, sel.Zoom)
	assert.InDelta(t, 3.0, sel.Pad, 1e-12)
	assert.Equal(t, domain.RectangleFromClick(domain.Point{Lat: 46, Lng: -6}, 6), sel.Rect)
	assert.Greater(t, sel.Area, 0.0)
	assert.True(t, clock.Now().Equal(sel.SelectedAt))
	assert.Equal(t, domain.WeatherQuery{TimeRange: "2020", Month: "Jan", Rect: sel.Rect}, sel.Query())

	snap := s.Snapshot()
	assert.Equal(t, StatusPending, snap.Status)
	require.NotNil(t, snap.Selection)
	assert.Equal(t, sel.ID, snap.Selection.ID)
}

func TestState_SelectWithZoomUpdatesZoom(t *testing.T) {
	s, _ := newTestState(t)

	sel, err := s.Select(Request{Point: domain.Point{Lat: 10, Lng: 10}, Zoom: zoom(9)})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, sel.Pad, 1e-12)
	assert.Equal(t, 9, s.Zoom())

	_, err = s.Select(Request{Zoom: zoom(-1)})
	assert.ErrorIs(t, err, ErrInvalidZoom)
	assert.Equal(t, 9, s.Zoom())
}

func TestState_SetZoom(t *testing.T) {
	s, _ := newTestState(t)

	require.NoError(t, s.SetZoom(3))
	assert.Equal(t, 3, s.Zoom())
	assert.ErrorIs(t, s.SetZoom(23), ErrInvalidZoom)

	preview, err := s.Preview(Request{Point: domain.Point{Lat: 0, Lng: 0}})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, preview.Pad, 1e-12)
	assert.Zero(t, preview.Generation)
	assert.Equal(t, StatusIdle, s.Snapshot().Status, "Preview must not change state")
}

func TestState_LastClickWins(t *testing.T) {
	s, _ := newTestState(t)

	first, err := s.Select(Request{Point: domain.Point{Lat: 10, Lng: 10}})
	require.NoError(t, err)
	second, err := s.Select(Request{Point: domain.Point{Lat: 20, Lng: 20}})
	require.NoError(t, err)

	assert.False(t, s.IsCurrent(first.Generation))
	assert.True(t, s.IsCurrent(second.Generation))

	assert.False(t, s.Complete(first.Generation, domain.Summary{AreaText: "stale"}))
	assert.False(t, s.Fail(first.Generation, errors.New("stale")))
	assert.Equal(t, StatusPending, s.Snapshot().Status)

	assert.True(t, s.Complete(second.Generation, domain.Summary{AreaText: "fresh"}))
	snap := s.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, "fresh", snap.Summary.AreaText)
}

func TestState_Fail(t *testing.T) {
	s, _ := newTestState(t)
	sel, err := s.Select(Request{Point: domain.Point{Lat: 1, Lng: 1}})
	require.NoError(t, err)

	assert.True(t, s.Fail(sel.Generation, errors.New("upstream down")))

	snap := s.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "upstream down", snap.Error)
	assert.Nil(t, snap.Summary)
}

func TestState_CompleteWithoutSelection(t *testing.T) {
	s, _ := newTestState(t)
	assert.False(t, s.Complete(0, domain.Summary{}))
	assert.False(t, s.Complete(1, domain.Summary{}))
}

func TestState_Subscribe(t *testing.T) {
	s, _ := newTestState(t)

	ch, cancel := s.Subscribe(4)
	initial := <-ch
	assert.Equal(t, StatusIdle, initial.Status)
	assert.Equal(t, 1, s.Subscribers())

	sel, err := s.Select(Request{Point: domain.Point{Lat: 5, Lng: 5}})
	require.NoError(t, err)
	pending := <-ch
	assert.Equal(t, StatusPending, pending.Status)

	s.Complete(sel.Generation, domain.Summary{AreaText: "done"})
	ready := <-ch
	assert.Equal(t, StatusReady, ready.Status)
	assert.Equal(t, "done", ready.Summary.AreaText)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, s.Subscribers())
}

func TestState_SlowSubscriberKeepsNewest(t *testing.T) {
	s, _ := newTestState(t)
	ch, cancel := s.Subscribe(1)
	defer cancel()

	var last Selection
	for i := 0; i < 5; i++ {
		sel, err := s.Select(Request{Point: domain.Point{Lat: float64(i), Lng: 0}})
		require.NoError(t, err)
		last = sel
	}

	snap := <-ch
	require.NotNil(t, snap.Selection)
	assert.Equal(t, last.Generation, snap.Selection.Generation)
}

func TestState_ConcurrentSelects(t *testing.T) {
	s, _ := newTestState(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Select(Request{Point: domain.Point{Lat: float64(i % 60), Lng: float64(i)}})
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	require.NotNil(t, snap.Selection)
	assert.Equal(t, uint64(50), snap.Selection.Generation)
}
