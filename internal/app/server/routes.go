package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"cloudranges/internal/awsranges"
	"cloudranges/internal/stats"
)

// Server bundles the dependencies the handlers need. Everything is
// injected at construction so tests can build independent instances.
type Server struct {
	cache      *awsranges.Cache
	fetcher    awsranges.Fetcher
	stats      *stats.Recorder
	instanceID string
	adminToken string
}

func New(cache *awsranges.Cache, fetcher awsranges.Fetcher, recorder *stats.Recorder, instanceID, adminToken string) *Server {
	return &Server{
		cache:      cache,
		fetcher:    fetcher,
		stats:      recorder,
		instanceID: instanceID,
		adminToken: adminToken,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// enableCORS attaches the permissive headers every response carries,
// errors included, and answers preflight requests.
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Routes builds the handler tree.
func (s *Server) Routes() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc("GET /{$}", s.lookup)
	router.HandleFunc("GET /version", s.getVersion)
	router.HandleFunc("GET /healthz", s.healthz)
	router.HandleFunc("GET /stats", s.getStats)
	router.HandleFunc("POST /refresh", s.refreshRanges)
	return enableCORS(router)
}

// Open starts the API server on the given port.
func (s *Server) Open(port int) error {
	server := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Routes(),
	}

	log.Infof("Starting cloudranges API on port :%d", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
