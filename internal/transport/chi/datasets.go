package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/knowwho/internal/domain"
	"github.com/kailas-cloud/knowwho/internal/domain/network"
	"github.com/kailas-cloud/knowwho/internal/usecase/path"
	"github.com/kailas-cloud/knowwho/internal/usecase/ranking"
	"github.com/kailas-cloud/knowwho/internal/usecase/view"
)

// maxDatasetBytes caps PUT bodies.
const maxDatasetBytes = 8 << 20

// ListDatasets handles GET /api/v1/datasets.
func (s *Server) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := s.datasets.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DatasetSummary, len(list))
	for i, ds := range list {
		items[i] = summaryOf(ds)
	}
	writeJSON(w, http.StatusOK, DatasetListResponse{Items: items})
}

// GetDataset handles GET /api/v1/datasets/{queryId}.
func (s *Server) GetDataset(w http.ResponseWriter, r *http.Request) {
	queryID, ok := s.pathParam(w, r, "queryId")
	if !ok {
		return
	}

	ds, err := s.datasets.Get(r.Context(), queryID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// PutDataset handles PUT /api/v1/datasets/{queryId}.
func (s *Server) PutDataset(w http.ResponseWriter, r *http.Request) {
	queryID, ok := s.pathParam(w, r, "queryId")
	if !ok {
		return
	}

	var ds network.Dataset
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDatasetBytes)).Decode(&ds); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if ds.Query.QueryID == "" {
		ds.Query.QueryID = queryID
	}
	if ds.Query.QueryID != queryID {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("query.queryId %q does not match path %q", ds.Query.QueryID, queryID))
		return
	}

	created, err := s.datasets.Put(r.Context(), &ds)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, PutDatasetResponse{QueryID: queryID, Created: created})
}

// DeleteDataset handles DELETE /api/v1/datasets/{queryId}.
func (s *Server) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	queryID, ok := s.pathParam(w, r, "queryId")
	if !ok {
		return
	}

	if err := s.datasets.Delete(r.Context(), queryID); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLayout handles GET /api/v1/datasets/{queryId}/layout.
func (s *Server) GetLayout(w http.ResponseWriter, r *http.Request) {
	queryID, ok := s.pathParam(w, r, "queryId")
	if !ok {
		return
	}

	var width, height *float64
	if err := runtime.BindQueryParameter("form", true, false, "width", r.URL.Query(), &width); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter width")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "height", r.URL.Query(), &height); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter height")
		return
	}

	w0, h0, err := s.canvas(r, width, height)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	l, err := s.datasets.Layout(r.Context(), queryID, w0, h0)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// GetPath handles GET /api/v1/datasets/{queryId}/path.
func (s *Server) GetPath(w http.ResponseWriter, r *http.Request) {
	queryID, ok := s.pathParam(w, r, "queryId")
	if !ok {
		return
	}

	var target string
	if err := runtime.BindQueryParameter("form", true, true, "target", r.URL.Query(), &target); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Query argument target is required")
		return
	}
	var modeParam *string
	if err := runtime.BindQueryParameter("form", true, false, "mode", r.URL.Query(), &modeParam); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter mode")
		return
	}

	m := path.ModeAuto
	if modeParam != nil && *modeParam != "" {
		m = path.Mode(*modeParam)
	}
	if !m.IsValid() {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "mode must be auto, org or all")
		return
	}

	res, err := s.datasets.Path(r.Context(), queryID, target, m)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if res.Nodes == nil {
		res.Nodes = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}

// GetRanking handles GET /api/v1/datasets/{queryId}/ranking.
func (s *Server) GetRanking(w http.ResponseWriter, r *http.Request) {
	queryID, ok := s.pathParam(w, r, "queryId")
	if !ok {
		return
	}

	ranked, err := s.datasets.Ranking(r.Context(), queryID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if ranked == nil {
		ranked = []ranking.RankedNode{}
	}
	writeJSON(w, http.StatusOK, ranked)
}

// PostView handles POST /api/v1/datasets/{queryId}/view.
func (s *Server) PostView(w http.ResponseWriter, r *http.Request) {
	queryID, ok := s.pathParam(w, r, "queryId")
	if !ok {
		return
	}

	// An empty body is the initial state.
	var st view.State
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	prefs, err := s.settings.Load(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	v, err := s.datasets.View(r.Context(), queryID, st, prefs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// pathParam binds a required simple-style path parameter, writing a 400 on failure.
func (s *Server) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, gochi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || v == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter "+name)
		return "", false
	}
	return v, true
}

// canvas resolves the drawing surface: explicit positive values win, the
// rest come from saved settings.
func (s *Server) canvas(r *http.Request, width, height *float64) (float64, float64, error) {
	if width != nil && *width <= 0 || height != nil && *height <= 0 {
		return 0, 0, fmt.Errorf("canvas must be positive: %w", domain.ErrInvalidRequest)
	}
	if width != nil && height != nil {
		return *width, *height, nil
	}

	prefs, err := s.settings.Load(r.Context())
	if err != nil {
		return 0, 0, fmt.Errorf("load settings: %w", err)
	}
	w0, h0 := prefs.Canvas.Width, prefs.Canvas.Height
	if width != nil {
		w0 = *width
	}
	if height != nil {
		h0 = *height
	}
	return w0, h0, nil
}
