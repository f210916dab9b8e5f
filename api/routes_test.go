package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netshark/netshark/capture"
	"github.com/netshark/netshark/model"
)

type stubHandle struct{}

func (stubHandle) Next() (capture.Frame, error) { return capture.Frame{}, capture.ErrTimeout }
func (stubHandle) Close()                       {}

type stubOpener struct{}

func (stubOpener) Open(string, bool, string) (capture.Handle, error) { return stubHandle{}, nil }

type stubProvider struct{}

func (stubProvider) List() ([]model.InterfaceInfo, error) {
	return []model.InterfaceInfo{{DeviceName: "eth0", IsUp: true}}, nil
}

func newTestServer() *Server {
	manager := capture.NewManager(stubOpener{}, stubProvider{})
	return NewServer(manager)
}

func TestHandleDescriptorListsEndpoints(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body descriptorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "netshark", body.Name)
	assert.NotEmpty(t, body.Endpoints)
}

func TestHandleListInterfaces(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/interfaces", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eth0")
}

func TestHandleCaptureStartWithoutInterfaceIsAnError(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/capture/start", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestHandleCaptureStartSetsInterfaceFromBody(t *testing.T) {
	s := newTestServer()
	body, err := json.Marshal(startRequest{Interface: strPtr("eth0")})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/capture/start", bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var status statusBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.IsRunning)
	assert.Equal(t, "eth0", status.Interface)

	stopReq := httptest.NewRequest(http.MethodPost, "/api/capture/stop", nil)
	stopRec := httptest.NewRecorder()
	s.Router().ServeHTTP(stopRec, stopReq)
	assert.Equal(t, http.StatusOK, stopRec.Code)
}

func TestHandlePacketsListEmptyStore(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/packets?offset=0&limit=10", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

func TestHandlePacketGetNotFound(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/packets/12345", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPacketsStatsRouteIsNotShadowedByVariableSegment(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/packets/stats", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	// If mux matched /api/packets/{id} first, "stats" would fail to parse
	// as a uint64 id and this would come back 400 instead of 200.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func strPtr(s string) *string { return &s }
