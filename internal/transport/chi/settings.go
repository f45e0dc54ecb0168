package chi

import (
	"encoding/json"
	"net/http"

	domset "github.com/kailas-cloud/knowwho/internal/domain/settings"
)

// GetSettings handles GET /api/v1/settings.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Load(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PutSettings handles PUT /api/v1/settings. The body replaces the stored
// settings as a whole.
func (s *Server) PutSettings(w http.ResponseWriter, r *http.Request) {
	var st domset.Settings
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	saved, err := s.settings.Save(r.Context(), st)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
