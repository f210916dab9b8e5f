package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/netshark/netshark/model"
)

// filterRegistry is the adapter-side, mutex-guarded store of filter
// descriptors supplemented from original_source/backend/src/api/handlers/filters.rs.
// It never touches the Capture Manager: descriptors are data, matching
// the spec's statement that the core never compiles a filter expression.
type filterRegistry struct {
	mu      sync.Mutex
	filters map[string]model.Filter
}

func newFilterRegistry() *filterRegistry {
	return &filterRegistry{filters: make(map[string]model.Filter)}
}

type filtersListBody struct {
	Filters []model.Filter `json:"filters"`
}

func (s *Server) handleFiltersList(r *http.Request) HTTPResponse {
	s.filters.mu.Lock()
	defer s.filters.mu.Unlock()

	out := make([]model.Filter, 0, len(s.filters.filters))
	for _, f := range s.filters.filters {
		out = append(out, f)
	}
	return NewHTTPResponse(http.StatusOK, filtersListBody{Filters: out})
}

func (s *Server) handleFilterCreate(r *http.Request) HTTPResponse {
	if httpErr := EnsureJSONEncodedRequestBody(r); httpErr != nil {
		return *httpErr
	}
	var body model.Filter
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return NewHTTPError(err, http.StatusBadRequest, "malformed request body")
	}
	body.ID = uuid.NewString()

	s.filters.mu.Lock()
	s.filters.filters[body.ID] = body
	s.filters.mu.Unlock()

	return NewHTTPResponse(http.StatusCreated, body)
}

func (s *Server) handleFilterUpdate(r *http.Request) HTTPResponse {
	id := mux.Vars(r)["id"]
	if httpErr := EnsureJSONEncodedRequestBody(r); httpErr != nil {
		return *httpErr
	}
	var body model.Filter
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return NewHTTPError(err, http.StatusBadRequest, "malformed request body")
	}

	s.filters.mu.Lock()
	defer s.filters.mu.Unlock()
	if _, ok := s.filters.filters[id]; !ok {
		return NewHTTPError(nil, http.StatusNotFound, "filter not found")
	}
	body.ID = id
	s.filters.filters[id] = body

	return NewHTTPResponse(http.StatusOK, body)
}

func (s *Server) handleFilterDelete(r *http.Request) HTTPResponse {
	id := mux.Vars(r)["id"]

	s.filters.mu.Lock()
	defer s.filters.mu.Unlock()
	if _, ok := s.filters.filters[id]; !ok {
		return NewHTTPError(nil, http.StatusNotFound, "filter not found")
	}
	delete(s.filters.filters, id)

	return NewHTTPResponse(http.StatusNoContent, nil)
}
