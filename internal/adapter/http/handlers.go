package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/pipeline"
	"github.com/couchcryptid/prevailing-winds/internal/selection"
)

const maxBodyBytes = 1 << 16

var (
	errBadRequest = errors.New("bad request")
	errNoArea     = errors.New("no area selected")
)

type zoomRequest struct {
	Zoom *int `json:"zoom" validate:"required,min=0,max=22"`
}

type selectionRequest struct {
	Lat       *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng       *float64 `json:"lng" validate:"required"`
	Zoom      *int     `json:"zoom" validate:"omitempty,min=0,max=22"`
	TimeRange string   `json:"timeRange" validate:"required"`
	Month     string   `json:"month" validate:"required"`
}

func (r selectionRequest) toRequest() selection.Request {
	return selection.Request{
		Point:     domain.Point{Lat: *r.Lat, Lng: *r.Lng},
		Zoom:      r.Zoom,
		TimeRange: r.TimeRange,
		Month:     r.Month,
	}
}

func (s *Server) handleMeta(w http.ResponseWriter, _ *http.Request) {
	meta, ok := s.svc.Metadata()
	if !ok {
		s.writeError(w, pipeline.ErrNotReady)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"metadata": meta,
		"catalogs": s.svc.Catalogs(),
		"zoom":     s.svc.State().Zoom(),
	})
}

func (s *Server) handleSetZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.State().SetZoom(*req.Zoom); err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]int{"zoom": *req.Zoom})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := checkFinite(req); err != nil {
		s.writeError(w, err)
		return
	}
	sel, err := s.svc.Select(req.toRequest())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusAccepted, sel)
}

func (s *Server) handleSelection(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.svc.State().Snapshot())
}

func (s *Server) handleSelectionArea(w http.ResponseWriter, _ *http.Request) {
	snap := s.svc.State().Snapshot()
	if snap.Selection == nil {
		s.writeError(w, errNoArea)
		return
	}
	sel := snap.Selection

	feature := geojson.NewFeature(sel.Rect.Bound().ToPolygon())
	feature.ID = sel.ID.String()
	feature.Properties["generation"] = sel.Generation
	feature.Properties["status"] = snap.Status
	feature.Properties["zoom"] = sel.Zoom
	feature.Properties["pad"] = sel.Pad
	feature.Properties["area_nm2"] = sel.Area
	feature.Properties["area_text"] = domain.FormatArea(sel.Area)
	feature.Properties["location"] = domain.FormatDMS(sel.Point.Lat, sel.Point.Lng)
	feature.Properties["time_range"] = sel.TimeRange
	feature.Properties["month"] = sel.Month
	sharedobs.WriteJSON(w, http.StatusOK, feature)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	req, err := parseSummaryQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := checkFinite(req); err != nil {
		s.writeError(w, err)
		return
	}
	summary, err := s.svc.Summarize(r.Context(), req.toRequest())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"texts":   summary.Texts(),
	})
}

func parseSummaryQuery(r *http.Request) (selectionRequest, error) {
	q := r.URL.Query()
	req := selectionRequest{
		TimeRange: q.Get("timeRange"),
		Month:     q.Get("month"),
	}
	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"lat", &req.Lat},
		{"lng", &req.Lng},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, fmt.Errorf("%w: %s: %v", errBadRequest, p.name, err)
		}
		*p.dst = &v
	}
	if raw := q.Get("zoom"); raw != "" {
		z, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%w: zoom: %v", errBadRequest, err)
		}
		req.Zoom = &z
	}
	return req, nil
}

func checkFinite(req selectionRequest) error {
	if math.IsNaN(*req.Lng) || math.IsInf(*req.Lng, 0) {
		return fmt.Errorf("%w: lng must be finite", errBadRequest)
	}
	return nil
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return s.validate.Struct(v)
}

func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, errBadRequest),
		errors.Is(err, selection.ErrInvalidZoom),
		errors.Is(err, domain.ErrUnknownTimeRange),
		errors.Is(err, domain.ErrUnknownMonth):
		return http.StatusBadRequest
	case errors.Is(err, errNoArea):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrTooManyCells):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNotReady), errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrQueryRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "status", status, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
