package server

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/charmbracelet/log"

	"cloudranges/internal/awsranges"
)

// localCacheStatus replaces the upstream freshness tag once the dataset
// is served from this process's cache.
const localCacheStatus = "LOCAL"

type lookupResponse struct {
	RequestedIP string            `json:"requested_ip"`
	CacheStatus string            `json:"cache_status"`
	Matches     []awsranges.Match `json:"matches"`
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("ip") {
		writeError(w, `"ip" parameter is missing`, http.StatusBadRequest)
		return
	}

	rawIP := query.Get("ip")
	if rawIP == "" {
		writeError(w, `"ip" parameter is empty`, http.StatusBadRequest)
		return
	}

	addr, err := netip.ParseAddr(rawIP)
	if err != nil {
		log.Debug("Rejected lookup for unparseable address", "ip", rawIP)
		writeError(w, `"ip" parameter is not a valid IP address`, http.StatusBadRequest)
		return
	}

	dataset, origin, err := s.cache.GetOrPopulate(r.Context(), func(ctx context.Context) (*awsranges.Dataset, error) {
		return awsranges.Load(ctx, s.fetcher)
	})
	if err != nil {
		log.Error("Unable to load published ranges", "error", err)
		writeError(w, "unable to load published ranges", http.StatusInternalServerError)
		return
	}

	cacheStatus := dataset.CacheStatus
	if origin == awsranges.OriginHit {
		cacheStatus = localCacheStatus
	}

	s.stats.Record(r.Context())

	writeJSON(w, http.StatusOK, lookupResponse{
		RequestedIP: rawIP,
		CacheStatus: cacheStatus,
		Matches:     dataset.Match(addr),
	})
}
