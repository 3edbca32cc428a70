package server

import "net/http"

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	total, today := s.stats.Totals(r.Context())
	writeJSON(w, http.StatusOK, map[string]int64{
		"total":     total,
		"today":     today,
		"instances": int64(s.stats.ActiveInstances(r.Context())),
	})
}
