package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/chat"
	"github.com/cladtek/dbchat-engine/pkg/config"
	"github.com/cladtek/dbchat-engine/pkg/schema"
	"github.com/cladtek/dbchat-engine/pkg/session"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
	Database    string `json:"database"`
	TablesKnown int    `json:"tables_known"`
	Sessions    int    `json:"sessions"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg     *config.Config
	svc     *chat.Service
	schemas *schema.Cache
	store   *session.Store
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with the given configuration.
func NewHealthHandler(cfg *config.Config, svc *chat.Service, schemas *schema.Cache, store *session.Store, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, svc: svc, schemas: schemas, store: store, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests. A degraded (AI-only) engine is
// still healthy: it answers, just without the database.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and database state.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	dbState := "connected"
	if h.svc.AIOnly() {
		dbState = "unavailable (AI-only mode)"
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "dbchat-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Database:    dbState,
		TablesKnown: h.schemas.Len(),
		Sessions:    h.store.Len(),
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
