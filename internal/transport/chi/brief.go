package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/kailas-cloud/knowwho/internal/domain"
	briefuc "github.com/kailas-cloud/knowwho/internal/usecase/brief"
)

const llmTokensHeader = "X-LLM-Tokens"

// StreamBrief handles POST /api/v1/datasets/{queryId}/nodes/{nodeId}/brief.
//
// Errors found before the first text delta are plain JSON responses. Once
// the stream is open, failures arrive as an "error" event. Token usage is
// sent in the final "done" event and in the X-LLM-Tokens trailer.
func (s *Server) StreamBrief(w http.ResponseWriter, r *http.Request) {
	queryID, ok := s.pathParam(w, r, "queryId")
	if !ok {
		return
	}
	nodeID, ok := s.pathParam(w, r, "nodeId")
	if !ok {
		return
	}

	var body BriefRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	prefs, err := s.settings.Load(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	req := briefuc.Request{
		QueryID:  queryID,
		NodeID:   nodeID,
		Language: prefs.Language,
		Model:    prefs.Model,
	}
	if body.Language != nil && *body.Language != "" {
		req.Language = *body.Language
	}
	if body.Model != nil && *body.Model != "" {
		req.Model = *body.Model
	}

	if _, ok := w.(http.Flusher); !ok {
		writeError(w, http.StatusInternalServerError, ErrorCodeStreamingFailed, "streaming unsupported")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())

	var flusher http.Flusher
	open := func() {
		if flusher == nil {
			w.Header().Set("Trailer", llmTokensHeader)
			flusher, _ = startStream(w)
		}
	}
	emit := func(text string) error {
		open()
		return writeEvent(w, flusher, Event{Name: "delta", Data: BriefDelta{Text: text}})
	}

	brief, err := s.briefs.Stream(ctx, req, emit)
	if err != nil {
		if flusher == nil {
			s.handleDomainError(w, err)
			return
		}
		_ = writeEvent(w, flusher, Event{Name: "error", Data: s.errorBody(err)})
		return
	}

	open()
	if usage.Used {
		w.Header().Set(llmTokensHeader, strconv.Itoa(usage.TotalTokens()))
	}
	_ = writeEvent(w, flusher, Event{Name: "done", Data: brief})
}
