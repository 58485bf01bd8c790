package rest

import (
	"net/http"
	"strconv"
	"strings"

	"gridguardian-backend/internal/application/services"
	"gridguardian-backend/internal/config"
	"gridguardian-backend/internal/domain/graph"
	apperrors "gridguardian-backend/internal/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// GraphHandler serves the read API over a GraphReader.
type GraphHandler struct {
	reader   services.GraphReader
	mapView  config.MapDefaults
	validate *validator.Validate
	logger   *zap.Logger
}

// NewGraphHandler creates a GraphHandler.
func NewGraphHandler(reader services.GraphReader, mapView config.MapDefaults, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		reader:   reader,
		mapView:  mapView,
		validate: validator.New(),
		logger:   logger,
	}
}

// PointDetail is a point with its incident edges.
type PointDetail struct {
	Point graph.Point  `json:"point"`
	Edges []graph.Edge `json:"edges"`
}

// BoundsResponse is the map view that fits the graph.
type BoundsResponse struct {
	Bounds  *graph.Bounds `json:"bounds"`
	Center  LatLng        `json:"center"`
	Zoom    int           `json:"zoom"`
	Loading bool          `json:"loading"`
}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PointQuery filters the point listing.
type PointQuery struct {
	Search string   `validate:"max=100"`
	MinLat *float64 `validate:"omitempty,gte=-90,lte=90"`
	MaxLat *float64 `validate:"omitempty,gte=-90,lte=90"`
	MinLng *float64 `validate:"omitempty,gte=-180,lte=180"`
	MaxLng *float64 `validate:"omitempty,gte=-180,lte=180"`
	Limit  int      `validate:"gte=0,lte=10000"`
}

// GetGraph returns the current state.
//
// @Summary Current graph
// @Tags graph
// @Produce json
// @Success 200 {object} APIResponse
// @Router /api/graph [get]
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.reader.Current(r.Context()))
}

// ListPoints returns the points, optionally filtered by name and box.
//
// @Summary List detection points
// @Tags points
// @Param q query string false "name or id substring"
// @Param minLat query number false "south edge"
// @Param maxLat query number false "north edge"
// @Param minLng query number false "west edge"
// @Param maxLng query number false "east edge"
// @Param limit query int false "maximum number of points"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /api/points [get]
func (h *GraphHandler) ListPoints(w http.ResponseWriter, r *http.Request) {
	query, err := h.parsePointQuery(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	// casers are stateful, one per request
	fold := cases.Fold()
	state := h.reader.Current(r.Context())
	points := make([]graph.Point, 0, len(state.Points))
	for _, p := range state.Points {
		if !matches(fold, query, p) {
			continue
		}
		points = append(points, p)
		if query.Limit > 0 && len(points) == query.Limit {
			break
		}
	}
	respondJSON(w, http.StatusOK, points)
}

func (h *GraphHandler) parsePointQuery(r *http.Request) (PointQuery, error) {
	values := r.URL.Query()
	query := PointQuery{Search: strings.TrimSpace(values.Get("q"))}

	floats := map[string]**float64{
		"minLat": &query.MinLat,
		"maxLat": &query.MaxLat,
		"minLng": &query.MinLng,
		"maxLng": &query.MaxLng,
	}
	for name, dst := range floats {
		raw := values.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return query, invalidParam(name, raw)
		}
		*dst = &v
	}
	if raw := values.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return query, invalidParam("limit", raw)
		}
		query.Limit = v
	}

	if err := h.validate.Struct(query); err != nil {
		return query, apperrors.Validation(string(apperrors.CodeInvalidInput), "invalid point query").
			WithDetails(err.Error()).
			WithCause(err).
			Build()
	}
	return query, nil
}

func invalidParam(name, value string) error {
	return apperrors.Validation(string(apperrors.CodeInvalidInput), "invalid query parameter "+name).
		WithDetails(value).
		Build()
}

func matches(fold cases.Caser, q PointQuery, p graph.Point) bool {
	if q.Search != "" {
		needle := fold.String(q.Search)
		if !strings.Contains(fold.String(p.Name), needle) && !strings.Contains(fold.String(p.ID), needle) {
			return false
		}
	}
	if q.MinLat != nil && p.Lat < *q.MinLat {
		return false
	}
	if q.MaxLat != nil && p.Lat > *q.MaxLat {
		return false
	}
	if q.MinLng != nil && p.Lng < *q.MinLng {
		return false
	}
	if q.MaxLng != nil && p.Lng > *q.MaxLng {
		return false
	}
	return true
}

// GetPoint returns one point and its incident edges.
//
// @Summary Get a detection point
// @Tags points
// @Param pointID path string true "point id"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /api/points/{pointID} [get]
func (h *GraphHandler) GetPoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pointID")
	state := h.reader.Current(r.Context())

	point, ok := state.FindPoint(id)
	if !ok {
		respondError(w, r, h.logger, apperrors.NotFound(string(apperrors.CodePointNotFound), "point not found").
			WithResource(id).
			Build())
		return
	}
	respondJSON(w, http.StatusOK, PointDetail{Point: point, Edges: state.EdgesOf(id)})
}

// ListEdges returns the derived edges.
//
// @Summary List derived edges
// @Tags graph
// @Success 200 {object} APIResponse
// @Router /api/edges [get]
func (h *GraphHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	edges := h.reader.Current(r.Context()).Edges
	if edges == nil {
		edges = []graph.Edge{}
	}
	respondJSON(w, http.StatusOK, edges)
}

// GetBounds returns the box that fits every point and edge, or the default
// map view when the graph is empty.
//
// @Summary Map view fitting the graph
// @Tags graph
// @Success 200 {object} APIResponse
// @Router /api/bounds [get]
func (h *GraphHandler) GetBounds(w http.ResponseWriter, r *http.Request) {
	state := h.reader.Current(r.Context())
	resp := BoundsResponse{
		Center:  LatLng{Lat: h.mapView.DefaultLat, Lng: h.mapView.DefaultLng},
		Zoom:    h.mapView.DefaultZoom,
		Loading: state.Loading,
	}
	if b, ok := graph.ComputeBounds(state.Points, state.Edges); ok {
		resp.Bounds = &b
		resp.Center.Lat, resp.Center.Lng = b.Center()
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetSnapshot describes the stored snapshot.
//
// @Summary Snapshot metadata
// @Tags snapshot
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /api/snapshot [get]
func (h *GraphHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	info, ok := h.reader.SnapshotInfo(r.Context())
	if !ok {
		respondError(w, r, h.logger, apperrors.NotFound(string(apperrors.CodeSnapshotNotFound), "no snapshot stored").Build())
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// RefreshSnapshot stores the current graph as the snapshot.
//
// @Summary Refresh the snapshot
// @Tags snapshot
// @Success 200 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /api/snapshot [post]
func (h *GraphHandler) RefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.reader.RefreshSnapshot(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"version":    snap.Version,
		"createdAt":  snap.CreatedAt,
		"pointCount": len(snap.Points),
	})
}

// DeleteSnapshot clears the stored snapshot.
//
// @Summary Clear the snapshot
// @Tags snapshot
// @Success 204
// @Router /api/snapshot [delete]
func (h *GraphHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.reader.ClearSnapshot(r.Context()); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
