package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/painel-obra/internal/cache"
	"github.com/couchcryptid/painel-obra/internal/domain"
	"github.com/couchcryptid/painel-obra/internal/pipeline"
)

// Error kinds reported by unavailable responses.
const (
	kindConfiguration = "configuration"
	kindUnavailable   = "unavailable"
	kindBadRequest    = "bad_request"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Retry bool   `json:"retry"`
}

type boardQuery struct {
	Disciplines []string `validate:"max=50,dive,max=200"`
	Sites       []string `validate:"max=200,dive,max=200"`
	Contractors []string `validate:"max=50,dive,max=200"`
	Force       bool
}

type forecastsQuery struct {
	Cities []string `validate:"max=50,dive,max=100"`
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := boardQuery{
		Disciplines: values(q, "discipline"),
		Sites:       values(q, "site"),
		Contractors: values(q, "contractor"),
	}
	if v := q.Get("force"); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "force must be a boolean")
			return
		}
		query.Force = force
	}
	if err := s.validate.Struct(query); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	f := domain.Filters{Disciplines: query.Disciplines, Sites: query.Sites, Contractors: query.Contractors}
	board, err := s.dashboard.Board(r.Context(), f, query.Force)
	if err != nil {
		s.writeUnavailable(w, "board", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.dashboard.FilterOptions(r.Context())
	if err != nil {
		s.writeUnavailable(w, "filters", err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) handleForecasts(w http.ResponseWriter, r *http.Request) {
	query := forecastsQuery{Cities: values(r.URL.Query(), "city")}
	if err := s.validate.Struct(query); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"forecasts": s.dashboard.Forecasts(r.Context(), query.Cities),
	})
}

func (s *Server) handleMunicipalities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"municipalities": s.dashboard.Municipalities(),
	})
}

// writeUnavailable reports a failed roster read. The dashboard keeps running
// and the client may retry.
func (s *Server) writeUnavailable(w http.ResponseWriter, route string, err error) {
	resp := errorResponse{Error: "roster unavailable", Kind: kindUnavailable, Retry: true}
	switch {
	case errors.Is(err, pipeline.ErrNotConfigured):
		resp.Error = "roster source is not configured"
		resp.Kind = kindConfiguration
	case errors.Is(err, cache.ErrRosterUnavailable):
		resp.Error = "roster source could not be reached"
	}
	s.logger.Warn("request failed", "route", route, "kind", resp.Kind, "error", err)
	writeJSON(w, http.StatusServiceUnavailable, resp)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: kindBadRequest})
}

// values returns the trimmed, non-blank values of a repeated query parameter.
// Comma-separated lists are not split; site names may contain commas.
func values(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
