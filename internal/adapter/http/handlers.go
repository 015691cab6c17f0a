package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
	"github.com/go-chi/render"
)

var routeIndex = map[string]map[string]string{
	"routes": {
		"/api":              "Check if API is running",
		"/api/observations": "Return observations with optional filters",
		"/api/stats":        "Summary statistics for numeric fields",
		"/api/outliers":     "Return outliers by z-score or IQR",
		"/healthz":          "Liveness probe",
		"/readyz":           "Readiness probe; ready once the startup load completes",
		"/metrics":          "Prometheus metrics",
	},
}

// pageParams are the pagination inputs of /api/observations.
type pageParams struct {
	Limit int `validate:"min=1"`
	Skip  int `validate:"min=0"`
}

// outlierParams are the inputs of /api/outliers.
type outlierParams struct {
	Field  string `validate:"required"`
	Method string
	K      float64 `validate:"gt=0"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, routeIndex)
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseRangeQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.analytics.QueryRange(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analytics.SummaryStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	params := outlierParams{
		Field:  strings.TrimSpace(values.Get("field")),
		Method: values.Get("method"),
		K:      domain.DefaultOutlierK,
	}
	if raw := values.Get("k"); raw != "" {
		k, err := domain.ParseBound("k", raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		params.K = k
	}
	if err := s.check(params); err != nil {
		s.writeError(w, r, err)
		return
	}

	method, err := domain.ParseMethod(params.Method, params.K)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.analytics.DetectOutliers(r.Context(), params.Field, method)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

// parseRangeQuery reads start/end, min_<p>/max_<p> for every range field, and
// limit/skip.
func (s *Server) parseRangeQuery(values url.Values) (domain.RangeQuery, error) {
	q := domain.RangeQuery{Bounds: make(map[string]domain.FloatRange)}

	if v := values.Get("start"); v != "" {
		q.Time.Min = &v
	}
	if v := values.Get("end"); v != "" {
		q.Time.Max = &v
	}

	for _, f := range domain.RangeFields() {
		lo, err := optionalBound(values, "min_"+f.Param)
		if err != nil {
			return domain.RangeQuery{}, err
		}
		hi, err := optionalBound(values, "max_"+f.Param)
		if err != nil {
			return domain.RangeQuery{}, err
		}
		if lo != nil || hi != nil {
			q.Bounds[f.Name] = domain.FloatRange{Min: lo, Max: hi}
		}
	}

	limit, err := parseInt(values, "limit", domain.DefaultLimit)
	if err != nil {
		return domain.RangeQuery{}, err
	}
	skip, err := parseInt(values, "skip", 0)
	if err != nil {
		return domain.RangeQuery{}, err
	}
	if err := s.check(pageParams{Limit: limit, Skip: skip}); err != nil {
		return domain.RangeQuery{}, err
	}
	q.Limit, q.Skip = limit, skip
	return q, nil
}

func optionalBound(values url.Values, name string) (*float64, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := domain.ParseBound(name, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseInt(values url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidBound, name, raw)
	}
	return n, nil
}
