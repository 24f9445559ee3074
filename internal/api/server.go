package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AaronLay10/QuestForge/internal/events"
	"github.com/AaronLay10/QuestForge/internal/quest"
	"github.com/AaronLay10/QuestForge/internal/storage/files"
	"github.com/AaronLay10/QuestForge/internal/storage/sqlite"
	"github.com/AaronLay10/QuestForge/internal/validation"
)

// maxRequestBodySize limits request body to 10MB to prevent memory
// exhaustion attacks.
const maxRequestBodySize = 10 * 1024 * 1024

// Notifier is told when quests change so downstream pipelines can react.
type Notifier interface {
	QuestSaved(questID string)
	QuestDeleted(questID string)
}

// Server serves the quest editor API.
type Server struct {
	quests    *files.QuestRepository
	refData   *files.ReferenceRepository
	metadata  *sqlite.MetadataStore
	validator validation.Validator
	notifier  Notifier
	settle    time.Duration
	devMode   bool
}

// NewServer creates an API server. notifier may be nil.
func NewServer(
	quests *files.QuestRepository,
	refData *files.ReferenceRepository,
	metadata *sqlite.MetadataStore,
	validator validation.Validator,
	notifier Notifier,
	settle time.Duration,
	devMode bool,
) *Server {
	return &Server{
		quests:    quests,
		refData:   refData,
		metadata:  metadata,
		validator: validator,
		notifier:  notifier,
		settle:    settle,
		devMode:   devMode,
	}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "quest-editor",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events.Snapshot())
}

func auditHandler(w http.ResponseWriter, r *http.Request) {
	client := events.GetPostgresClient()
	if client == nil {
		http.Error(w, "audit trail not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	questID := r.URL.Query().Get("quest")
	if questID != "" {
		if err := quest.ValidateQuestID(questID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	rows, err := client.Query(limit, questID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", uiHandler)
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("/ws/events", wsEventsHandler)
	mux.HandleFunc("/ws/session", s.wsSessionHandler)

	mux.HandleFunc("/api/quests", RequireAnyRole(s.handleQuests))
	mux.HandleFunc("/api/quests/", RequireAnyRole(s.handleQuest))

	mux.HandleFunc("/api/items", RequireAnyRole(s.handleItems))
	mux.HandleFunc("/api/factions", RequireAnyRole(s.handleFactions))
	mux.HandleFunc("/api/resources", RequireAnyRole(s.handleResources))
	mux.HandleFunc("/api/npcs", RequireAnyRole(s.handleNPCs))
	mux.HandleFunc("/api/objects", RequireAnyRole(s.handleObjects))

	mux.HandleFunc("/api/metadata/", RequireAnyRole(s.handleMetadata))
	mux.HandleFunc("/api/validate", RequireAnyRole(s.handleValidate))
	mux.HandleFunc("/api/audit", RequireAdmin(auditHandler))

	var handler http.Handler = mux
	if s.devMode {
		handler = corsMiddleware(handler)
	}
	return handler
}

// ListenAndServe starts the API server on the given port. It blocks until
// the context is cancelled or the server fails, and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if IsTLSEnabled() {
			cfg := LoadTLSConfig()
			if cfg == nil {
				errCh <- fmt.Errorf("tls configured but certificate could not be loaded")
				return
			}
			srv.TLSConfig = cfg
			slog.Info("api listening with TLS", "addr", addr)
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		slog.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// allowedDevOrigins are the frontend dev servers CORS headers are sent for.
var allowedDevOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:3000",
}

// corsMiddleware adds CORS headers for development mode (localhost only).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := false
		for _, o := range allowedDevOrigins {
			if origin == o {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// requireJSONContentType validates the request content type. Returns false
// if an error response was already sent.
func requireJSONContentType(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return false
	}
	return true
}
