package server

import (
	"net/http"

	"github.com/charmbracelet/log"
)

// refreshRanges empties the dataset slot so the next lookup refetches
// the feed. Guarded by a shared admin token; with no token configured
// the endpoint stays disabled.
func (s *Server) refreshRanges(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("x-admin-token")
	if s.adminToken == "" || token != s.adminToken {
		writeError(w, "forbidden", http.StatusForbidden)
		return
	}

	s.cache.Invalidate()
	log.Info("Range cache invalidated by admin request")
	w.WriteHeader(http.StatusNoContent)
}
