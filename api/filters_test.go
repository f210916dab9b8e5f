package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netshark/netshark/model"
)

func postJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestFilterCRUDLifecycle(t *testing.T) {
	s := newTestServer()

	created := postJSON(t, s, http.MethodPost, "/api/filters", model.Filter{Name: "https-only", Expression: "tcp port 443"})
	require.Equal(t, http.StatusCreated, created.Code)

	var filter model.Filter
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &filter))
	assert.NotEmpty(t, filter.ID)
	assert.Equal(t, "https-only", filter.Name)

	listReq := httptest.NewRequest(http.MethodGet, "/api/filters", nil)
	listRec := httptest.NewRecorder()
	s.Router().ServeHTTP(listRec, listReq)
	assert.Equal(t, http.StatusOK, listRec.Code)

	var listed filtersListBody
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listed))
	require.Len(t, listed.Filters, 1)

	filter.Name = "https-and-dns"
	updated := postJSON(t, s, http.MethodPut, "/api/filters/"+filter.ID, filter)
	assert.Equal(t, http.StatusOK, updated.Code)

	deleteReq := httptest.NewRequest(http.MethodDelete, "/api/filters/"+filter.ID, nil)
	deleteRec := httptest.NewRecorder()
	s.Router().ServeHTTP(deleteRec, deleteReq)
	assert.Equal(t, http.StatusNoContent, deleteRec.Code)

	getAgainReq := httptest.NewRequest(http.MethodDelete, "/api/filters/"+filter.ID, nil)
	getAgainRec := httptest.NewRecorder()
	s.Router().ServeHTTP(getAgainRec, getAgainReq)
	assert.Equal(t, http.StatusNotFound, getAgainRec.Code)
}

func TestFilterUpdateUnknownIDNotFound(t *testing.T) {
	s := newTestServer()
	rec := postJSON(t, s, http.MethodPut, "/api/filters/does-not-exist", model.Filter{Name: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilterCreateRejectsNonJSONBody(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/filters", bytes.NewReader([]byte("name=x")))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
