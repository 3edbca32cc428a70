package server

import (
	"net/http"
	"runtime"

	"cloudranges/internal/app/version"
)

type versionResponse struct {
	InstanceID     string `json:"instance_id"`
	LocalVersion   string `json:"local_version"`
	RuntimeVersion string `json:"runtime_version"`
	BuiltAt        string `json:"built_at,omitempty"`
}

func (s *Server) getVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{
		InstanceID:     s.instanceID,
		LocalVersion:   version.BuildVersion(),
		RuntimeVersion: runtime.Version(),
		BuiltAt:        version.BuiltAt(),
	})
}
