package adapthttp

import "net/http"

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Get(r.Context())
	if err != nil {
		s.internalError(w, r, "statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
