package api

import (
	"net/http"
)

// TestConnection checks that Graph is reachable and the credentials work.
func (s *Server) TestConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.Graph.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":       false,
			"identity": s.Session.Identity,
			"error":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"identity": s.Session.Identity,
	})
}
