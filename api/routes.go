package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/netshark/netshark/capture"
	"github.com/netshark/netshark/printer"
	"github.com/netshark/netshark/version"
)

// Per-call deadlines for core operations invoked from HTTP handlers, per
// SPEC_FULL §5: 10s for start/stop, 2-5s for read queries.
const (
	mutateTimeout     = 10 * time.Second
	statusTimeout     = 2 * time.Second
	queryTimeout      = 5 * time.Second
	shutdownGrace     = 5 * time.Second
)

// Server is the HTTP/WebSocket adapter over a *capture.Manager. It owns
// routing, JSON encoding, request parsing, and the filter-descriptor
// registry; none of this lives in the core.
type Server struct {
	manager *capture.Manager
	filters *filterRegistry
	router  *mux.Router
}

// NewServer wires every §6.1/§6.2 route onto manager.
func NewServer(manager *capture.Manager) *Server {
	s := &Server{manager: manager, filters: newFilterRegistry()}
	s.router = s.buildRouter()
	return s
}

// Router returns the adapter's http.Handler, for use with httptest or a
// custom *http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	r.Handle("/", asHandler(s.handleDescriptor)).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Handle("/interfaces", asHandler(timed(queryTimeout, s.handleListInterfaces))).Methods(http.MethodGet)

	apiRouter.Handle("/capture/start", asHandler(timed(mutateTimeout, s.handleCaptureStart))).Methods(http.MethodPost)
	apiRouter.Handle("/capture/stop", asHandler(timed(mutateTimeout, s.handleCaptureStop))).Methods(http.MethodPost)
	apiRouter.Handle("/capture/status", asHandler(timed(statusTimeout, s.handleCaptureStatus))).Methods(http.MethodGet)
	apiRouter.Handle("/capture/diagnostic", asHandler(timed(queryTimeout, s.handleCaptureDiagnostic))).Methods(http.MethodGet)
	apiRouter.Handle("/capture/settings", asHandler(timed(mutateTimeout, s.handleCaptureSettings))).Methods(http.MethodPost)

	// /packets/stats must be registered before /packets/{id}: gorilla/mux
	// matches in registration order, and {id} would otherwise swallow the
	// literal "stats" segment.
	apiRouter.Handle("/packets/stats", asHandler(timed(queryTimeout, s.handlePacketStats))).Methods(http.MethodGet)
	apiRouter.Handle("/packets", asHandler(timed(queryTimeout, s.handlePacketsList))).Methods(http.MethodGet)
	apiRouter.Handle("/packets/{id}", asHandler(timed(queryTimeout, s.handlePacketGet))).Methods(http.MethodGet)

	apiRouter.Handle("/filters", asHandler(s.handleFiltersList)).Methods(http.MethodGet)
	apiRouter.Handle("/filters", asHandler(s.handleFilterCreate)).Methods(http.MethodPost)
	apiRouter.Handle("/filters/{id}", asHandler(s.handleFilterUpdate)).Methods(http.MethodPut)
	apiRouter.Handle("/filters/{id}", asHandler(s.handleFilterDelete)).Methods(http.MethodDelete)

	apiRouter.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	return r
}

type descriptorBody struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

func (s *Server) handleDescriptor(r *http.Request) HTTPResponse {
	return NewHTTPResponse(http.StatusOK, descriptorBody{
		Name:    "netshark",
		Version: version.ReleaseVersion().String(),
		Endpoints: []string{
			"GET /api/interfaces",
			"POST /api/capture/start",
			"POST /api/capture/stop",
			"GET /api/capture/status",
			"GET /api/capture/diagnostic",
			"POST /api/capture/settings",
			"GET /api/packets",
			"GET /api/packets/{id}",
			"GET /api/packets/stats",
			"GET /api/filters",
			"POST /api/filters",
			"PUT /api/filters/{id}",
			"DELETE /api/filters/{id}",
			"GET /api/ws",
		},
	})
}

// Serve blocks on addr until either the listener fails or ctx is
// cancelled, in which case it shuts the server down within shutdownGrace.
// A bind failure is returned to the caller, which maps it to a non-zero
// process exit code per §6.1.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		printer.Infof("api: shutting down\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
