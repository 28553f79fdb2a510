// Package selection owns the current area selection. Every click replaces the previous
// selection and bumps a generation counter; results are applied only while their
// generation is still current, so the newest click always wins.
package selection

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
)

// Zoom bounds accepted by SetZoom and Select.
const (
	MinZoom = 0
	MaxZoom = 22
)

// ErrInvalidZoom is returned for zoom levels outside [MinZoom, MaxZoom].
var ErrInvalidZoom = errors.New("invalid zoom level")

// Status is the lifecycle of the current selection.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Request is a click to turn into a selection. A nil Zoom keeps the current zoom.
type Request struct {
	Point     domain.Point
	Zoom      *int
	TimeRange string
	Month     string
}

// Selection is one accepted click and the rectangle derived from it.
type Selection struct {
	ID         uuid.UUID        `json:"id"`
	Generation uint64           `json:"generation"`
	Point      domain.Point     `json:"point"`
	Rect       domain.Rectangle `json:"rect"`
	Zoom       int              `json:"zoom"`
	Pad        float64          `json:"pad"`
	Area       float64          `json:"area_nm2"`
	TimeRange  string           `json:"time_range"`
	Month      string           `json:"month"`
	SelectedAt time.Time        `json:"selected_at"`
}

// Query returns the upstream query for the selection.
func (s Selection) Query() domain.WeatherQuery {
	return domain.WeatherQuery{TimeRange: s.TimeRange, Month: s.Month, Rect: s.Rect}
}

// Snapshot is a consistent copy of the state.
type Snapshot struct {
	Zoom      int             `json:"zoom"`
	Status    Status          `json:"status"`
	Selection *Selection      `json:"selection,omitempty"`
	Summary   *domain.Summary `json:"summary,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// State is the session selection store. It is safe for concurrent use.
type State struct {
	selector domain.AreaSelector
	clock    clockwork.Clock

	mu         sync.RWMutex
	zoom       int
	generation uint64
	current    *Selection
	status     Status
	summary    *domain.Summary
	err        error
	updatedAt  time.Time

	subs    map[uint64]chan Snapshot
	nextSub uint64
}

// New creates an idle State. A nil clock uses the real clock.
func New(selector domain.AreaSelector, initialZoom int, clock clockwork.Clock) (*State, error) {
	if err := checkZoom(initialZoom); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &State{
		selector:  selector,
		clock:     clock,
		zoom:      initialZoom,
		status:    StatusIdle,
		updatedAt: clock.Now().UTC(),
		subs:      make(map[uint64]chan Snapshot),
	}, nil
}

func checkZoom(z int) error {
	if z < MinZoom || z > MaxZoom {
		return fmt.Errorf("%w %d: must be in [%d, %d]", ErrInvalidZoom, z, MinZoom, MaxZoom)
	}
	return nil
}

// Selector returns the area selector clicks are turned into rectangles with.
func (s *State) Selector() domain.AreaSelector {
	return s.selector
}

// Zoom returns the current zoom level.
func (s *State) Zoom() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zoom
}

// SetZoom changes the zoom used by later clicks. The current selection is kept.
func (s *State) SetZoom(z int) error {
	if err := checkZoom(z); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = z
	return nil
}

// Preview computes the selection a request would produce without storing it.
func (s *State) Preview(req Request) (Selection, error) {
	zoom := s.Zoom()
	if req.Zoom != nil {
		zoom = *req.Zoom
	}
	if err := checkZoom(zoom); err != nil {
		return Selection{}, err
	}
	rect := s.selector.RectangleFromClick(req.Point, zoom)
	return Selection{
		Point:     req.Point,
		Rect:      rect,
		Zoom:      zoom,
		Pad:       s.selector.PadFactor(zoom),
		Area:      rect.Area(),
		TimeRange: req.TimeRange,
		Month:     req.Month,
	}, nil
}

// Select replaces the current selection, marks it pending and notifies subscribers.
func (s *State) Select(req Request) (Selection, error) {
	sel, err := s.Preview(req)
	if err != nil {
		return Selection{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	sel.ID = uuid.New()
	sel.Generation = s.generation
	sel.SelectedAt = s.clock.Now().UTC()

	s.zoom = sel.Zoom
	s.current = &sel
	s.status = StatusPending
	s.summary = nil
	s.err = nil
	s.updatedAt = sel.SelectedAt
	s.broadcastLocked()
	return sel, nil
}

// IsCurrent reports whether gen is the newest selection.
func (s *State) IsCurrent(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.Generation == gen
}

// Complete stores the summary of selection gen. It returns false and changes nothing
// when a newer selection has replaced gen.
func (s *State) Complete(gen uint64, summary domain.Summary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Generation != gen {
		return false
	}
	s.status = StatusReady
	s.summary = &summary
	s.err = nil
	s.updatedAt = s.clock.Now().UTC()
	s.broadcastLocked()
	return true
}

// Fail records a failed query for selection gen, with the same staleness rule as Complete.
func (s *State) Fail(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Generation != gen {
		return false
	}
	s.status = StatusFailed
	s.summary = nil
	s.err = err
	s.updatedAt = s.clock.Now().UTC()
	s.broadcastLocked()
	return true
}

// Snapshot returns a copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Zoom:      s.zoom,
		Status:    s.status,
		UpdatedAt: s.updatedAt,
	}
	if s.current != nil {
		sel := *s.current
		snap.Selection = &sel
	}
	if s.summary != nil {
		sum := *s.summary
		snap.Summary = &sum
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

// Subscribe returns a channel receiving a snapshot after every selection change,
// starting with the current one. A full channel loses its oldest update. Call the
// returned cancel func to unsubscribe; it closes the channel.
func (s *State) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (s *State) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *State) broadcastLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Drop the oldest update so the newest one fits.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
