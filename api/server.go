package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log15 "github.com/inconshreveable/log15/v3"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/wricardo/telemetry-dashboard/board/config"
	"github.com/wricardo/telemetry-dashboard/board/counter"
	"github.com/wricardo/telemetry-dashboard/board/service"
	"github.com/wricardo/telemetry-dashboard/logging"
	"github.com/wricardo/telemetry-dashboard/telemetry"
	"github.com/wricardo/telemetry-dashboard/transport/websocket"
	"github.com/wricardo/telemetry-dashboard/view"
)

// ProfileSource lists the dashboard profiles on disk
type ProfileSource interface {
	ListConfigs() ([]*config.Info, error)
	RefreshCache()
}

// Server represents the REST API server
type Server struct {
	service  service.DashboardService
	hub      *websocket.Hub
	profiles ProfileSource
	router   *mux.Router
	log      log15.Logger
	title    string
}

// NewServer creates a new API server
func NewServer(dashboardService service.DashboardService, hub *websocket.Hub, logger log15.Logger) *Server {
	s := &Server{
		service: dashboardService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logging.OrDiscard(logger).New("module", "api"),
		title:   "Dashboard",
	}

	s.setupRoutes()
	return s
}

// WithProfiles enables GET /api/profiles.
func (s *Server) WithProfiles(profiles ProfileSource) *Server {
	s.profiles = profiles
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleAlive).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket feed
	s.router.HandleFunc("/dashboard", s.handleWebSocket).Methods("GET")

	// Shortcut routes for the default metrics
	s.router.HandleFunc("/sign-up", s.shortcut(counter.Customers, true, "Customer Added")).Methods("POST")
	s.router.HandleFunc("/sign-off", s.shortcut(counter.Customers, false, "Customer Removed")).Methods("DELETE")
	s.router.HandleFunc("/order", s.shortcut(counter.Orders, true, "Order Added")).Methods("POST")
	s.router.HandleFunc("/order", s.shortcut(counter.Orders, false, "Order Canceled")).Methods("DELETE")
	s.router.HandleFunc("/product", s.shortcut(counter.Products, true, "Product Added")).Methods("POST")
	s.router.HandleFunc("/product", s.shortcut(counter.Products, false, "Product Removed")).Methods("DELETE")

	// Server-rendered cards
	s.router.HandleFunc("/view", s.handleView).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", s.handleGetDashboard).Methods("GET")
	api.HandleFunc("/metrics", s.handleListMetrics).Methods("GET")
	api.HandleFunc("/metrics/{name}", s.handleAddMetric).Methods("POST")
	api.HandleFunc("/metrics/{name}", s.handleRemoveMetric).Methods("DELETE")
	api.HandleFunc("/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/schema", s.handleSchema).Methods("GET")
	api.HandleFunc("/profiles", s.handleListProfiles).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, counter.ErrUnknownMetric):
		return http.StatusNotFound
	case errors.Is(err, counter.ErrNothingToRemove):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleAlive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<h4>Welcome to Dashboard app</h4>"))
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"clients": clients,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "dashboard feed is not available")
		return
	}

	s.hub.ServeWS(w, r, s.currentPayload)
}

// currentPayload is the first frame of a new view. It runs on the hub loop,
// so it must not publish.
func (s *Server) currentPayload() []byte {
	snapshot, err := s.service.Snapshot(context.Background())
	if err != nil {
		s.log.Error("failed to read snapshot for new view", "err", err)
		return nil
	}
	payload, err := snapshot.Payload()
	if err != nil {
		s.log.Error("failed to encode snapshot for new view", "err", err)
		return nil
	}
	return payload
}

// Counter Handlers

func (s *Server) shortcut(metric string, add bool, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, ok := s.apply(w, r, metric, add)
		if !ok {
			return
		}
		result.Message = message
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleAddMetric(w http.ResponseWriter, r *http.Request) {
	if result, ok := s.apply(w, r, mux.Vars(r)["name"], true); ok {
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleRemoveMetric(w http.ResponseWriter, r *http.Request) {
	if result, ok := s.apply(w, r, mux.Vars(r)["name"], false); ok {
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request, metric string, add bool) (*service.UpdateResult, bool) {
	var (
		result *service.UpdateResult
		err    error
	)
	if add {
		result, err = s.service.Add(r.Context(), metric)
	} else {
		result, err = s.service.Remove(r.Context(), metric)
	}
	if err != nil {
		s.log.Debug("counter change rejected", "metric", metric, "add", add, "err", err)
		respondError(w, statusFor(err), err.Error())
		return nil, false
	}
	return result, true
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.Reset(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.Snapshot(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := s.service.Metrics(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(metrics),
		"metrics": metrics,
	})
}

// handleSchema describes the payload pushed on /dashboard
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, PayloadSchema(s.service.Metrics(r.Context())))
}

// PayloadSchema returns the JSON schema of the dashboard payload for the
// given metrics.
func PayloadSchema(metrics []string) *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	for _, m := range metrics {
		props.Set(m, &jsonschema.Schema{
			Type:        "integer",
			Minimum:     json.Number("0"),
			Description: fmt.Sprintf("current %s count", m),
		})
	}
	return &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                "Dashboard",
		Type:                 "object",
		Properties:           props,
		Required:             metrics,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// handleView renders the current snapshot as HTML cards
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.Snapshot(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload, err := snapshot.Payload()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var (
		cards  []view.Card
		errMsg string
	)
	pairs, err := telemetry.ParseMessage(payload)
	if err != nil {
		errMsg = err.Error()
	} else {
		cards = view.CardsFor(pairs)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.WriteHTML(w, s.title, cards, errMsg); err != nil {
		s.log.Error("failed to render view", "err", err)
	}
}

// Profile Handlers

// handleListProfiles lists the valid profiles. ?refresh=true rereads them
// from disk first.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		respondError(w, http.StatusServiceUnavailable, "profiles are not available")
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		s.profiles.RefreshCache()
	}

	infos, err := s.profiles.ListConfigs()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if infos == nil {
		infos = []*config.Info{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": infos,
		"count":    len(infos),
	})
}
