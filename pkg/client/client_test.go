package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/knowwho/internal/version"
)

func fastRetry() Option {
	return WithRetry(3, time.Millisecond, 5*time.Millisecond)
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, append([]Option{fastRetry()}, opts...)...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	require.Error(t, err)

	_, err = New("http://localhost:8080/")
	require.NoError(t, err)
}

func TestClient_SendsHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, Settings{})
	}, WithAPIKey("secret"))

	_, err := c.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.Equal(t, version.UserAgent(), got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Empty(t, got.Get("Content-Type"), "GET carries no body")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, datasetList{Items: []DatasetSummary{{QueryID: "q1", NodeCount: 3}}})
	})

	items, err := c.ListDatasets(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "q1", items[0].QueryID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusTooManyRequests, APIError{Code: "rate_limited", Message: "rate limited"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteDataset(context.Background(), "q1"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.Ranking(context.Background(), "q1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "http_error", apiErr.Code)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   APIError
		want   error
	}{
		{"not found", http.StatusNotFound, APIError{Code: "dataset_not_found", Message: "not found"}, ErrNotFound},
		{"node not found", http.StatusNotFound, APIError{Code: "node_not_found", Message: "node not found"}, ErrNodeNotFound},
		{"bad request", http.StatusBadRequest, APIError{Code: "bad_request", Message: "invalid request"}, ErrInvalidRequest},
		{"llm disabled", http.StatusNotImplemented, APIError{Code: "llm_disabled", Message: "llm provider not configured"}, ErrLLMDisabled},
		{
			"invalid settings", http.StatusBadRequest,
			APIError{Code: "validation_failed", Message: "invalid settings", Violations: []string{"language"}},
			ErrInvalidSettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				writeJSON(w, tt.status, tt.body)
			})

			_, err := c.GetDataset(context.Background(), "q1")
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load())

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.body.Violations, apiErr.Violations)
		})
	}
}

func TestClient_RetriesAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		writeJSON(w, http.StatusOK, Settings{Language: "en"})
	}, WithTimeout(50*time.Millisecond))

	st, err := c.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "en", st.Language)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_CanceledContextStops(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Settings(ctx)
	require.Error(t, err)
	assert.LessOrEqual(t, calls.Load(), int32(1))
}

func TestClient_HealthAcceptsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		writeJSON(w, http.StatusServiceUnavailable, HealthStatus{
			Status: "error",
			Checks: map[string]string{"database": "error"},
		})
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "error", h.Status)
	assert.Equal(t, "error", h.Checks["database"])
}

func TestClient_PutDataset(t *testing.T) {
	var gotPath, gotType string
	var gotBody Dataset
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotType = r.Header.Get("Content-Type")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusCreated, putResult{QueryID: gotBody.Query.QueryID, Created: true})
	})

	ds := &Dataset{Query: QueryContext{QueryID: "battery/thermal", CenterNodeID: "E001"}}
	created, err := c.PutDataset(context.Background(), ds)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "/api/v1/datasets/battery%2Fthermal", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "E001", gotBody.Query.CenterNodeID)
}

func TestClient_PutDatasetRequiresQueryID(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.PutDataset(context.Background(), &Dataset{})
	require.ErrorIs(t, err, ErrInvalidDataset)
}

func TestClient_QueryParameters(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Path+"?"+r.URL.RawQuery)
		switch {
		case strings.HasSuffix(r.URL.Path, "/layout"):
			writeJSON(w, http.StatusOK, Layout{})
		default:
			writeJSON(w, http.StatusOK, PathResult{})
		}
	})

	ctx := context.Background()
	_, err := c.Layout(ctx, "q1", 600, 0)
	require.NoError(t, err)
	_, err = c.Layout(ctx, "q1", 0, 0)
	require.NoError(t, err)
	_, err = c.Path(ctx, "q1", "E008", PathAll)
	require.NoError(t, err)
	_, err = c.Path(ctx, "q1", "E008", "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/v1/datasets/q1/layout?width=600",
		"/api/v1/datasets/q1/layout?",
		"/api/v1/datasets/q1/path?mode=all&target=E008",
		"/api/v1/datasets/q1/path?target=E008",
	}, got)
}

func TestClient_ViewPostsState(t *testing.T) {
	var gotMethod string
	var gotState map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotState))
		writeJSON(w, http.StatusOK, View{})
	})

	_, err := c.View(context.Background(), "q1", ViewState{SelectedID: "E008"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "E008", gotState["selectedId"])
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, Settings{})
	}, WithPrometheus(reg))

	_, err := c.Settings(context.Background())
	require.NoError(t, err)

	// A second client on the same registry reuses the collectors.
	c2, err := New("http://localhost:1", WithPrometheus(reg))
	require.NoError(t, err)
	require.NotNil(t, c2)

	assert.InDelta(t, 1, testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("settings.get", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.obs.metrics.retries.WithLabelValues("settings.get")), 0)
	assert.Same(t, c.obs.metrics.operations, c2.obs.metrics.operations)
}

func TestClient_Events(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": hello\n\nevent: dataset.updated\ndata: {\"queryId\":\"q1\",\"created\":true}\n\n")
	})

	s, err := c.Events(context.Background())
	require.NoError(t, err)
	defer s.Close()

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "dataset.updated", ev.Name)

	var change struct {
		QueryID string `json:"queryId"`
		Created bool   `json:"created"`
	}
	require.NoError(t, ev.Decode(&change))
	assert.Equal(t, "q1", change.QueryID)
	assert.True(t, change.Created)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClient_BriefStream(t *testing.T) {
	var gotPath string
	var gotOpts BriefOptions
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotOpts))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w,
			"event: delta\ndata: {\"text\":\"Talk to \"}\n\n"+
				"event: delta\ndata: {\"text\":\"Kenji.\"}\n\n"+
				"event: done\ndata: {\"text\":\"Talk to Kenji.\"}\n\n")
	})

	s, err := c.Brief(context.Background(), "q1", "E008", BriefOptions{Language: "ja"})
	require.NoError(t, err)
	defer s.Close()

	var deltas []string
	b, err := CollectBrief(s, func(text string) { deltas = append(deltas, text) })
	require.NoError(t, err)
	assert.Equal(t, "Talk to Kenji.", b.Text)
	assert.Equal(t, []string{"Talk to ", "Kenji."}, deltas)
	assert.Equal(t, "/api/v1/datasets/q1/nodes/E008/brief", gotPath)
	assert.Equal(t, "ja", gotOpts.Language)
}

func TestClient_BriefOpenError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotImplemented, APIError{Code: "llm_disabled", Message: "llm provider not configured"})
	})

	_, err := c.Brief(context.Background(), "q1", "E008", BriefOptions{})
	require.ErrorIs(t, err, ErrLLMDisabled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStream_Next(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Event
	}{
		{
			name:  "default name",
			input: "data: hi\n\n",
			want:  []Event{{Name: "message", Data: []byte("hi")}},
		},
		{
			name:  "crlf and lone cr",
			input: "event: a\r\ndata: 1\r\n\r\nevent: b\rdata: 2\r\r",
			want:  []Event{{Name: "a", Data: []byte("1")}, {Name: "b", Data: []byte("2")}},
		},
		{
			name:  "comments and multi-line data",
			input: ": ping\nevent: delta\ndata: one\n: mid\ndata: two\n\n",
			want:  []Event{{Name: "delta", Data: []byte("one\ntwo")}},
		},
		{
			name:  "frame without data is skipped",
			input: "event: heartbeat\n\ndata: x\n\n",
			want:  []Event{{Name: "message", Data: []byte("x")}},
		},
		{
			name:  "id carries over",
			input: "id: 7\ndata: a\n\ndata: b\n\n",
			want:  []Event{{Name: "message", ID: "7", Data: []byte("a")}, {Name: "message", ID: "7", Data: []byte("b")}},
		},
		{
			name:  "value without space",
			input: "event:done\ndata:{}\n\n",
			want:  []Event{{Name: "done", Data: []byte("{}")}},
		},
		{
			name:  "unterminated trailing frame",
			input: "data: a\n\nevent: delta\ndata: partial",
			want:  []Event{{Name: "message", Data: []byte("a")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream(io.NopCloser(strings.NewReader(tt.input)))

			var got []Event
			for {
				ev, err := s.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				got = append(got, ev)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectBrief_Errors(t *testing.T) {
	t.Run("error event", func(t *testing.T) {
		s := NewStream(io.NopCloser(strings.NewReader(
			"event: delta\ndata: {\"text\":\"x\"}\n\n" +
				"event: error\ndata: {\"code\":\"llm_provider_error\",\"message\":\"llm provider error\"}\n\n")))

		_, err := CollectBrief(s, nil)
		require.ErrorIs(t, err, ErrLLMProviderError)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Zero(t, apiErr.StatusCode)
	})

	t.Run("stream ends early", func(t *testing.T) {
		s := NewStream(io.NopCloser(strings.NewReader("event: delta\ndata: {\"text\":\"x\"}\n\n")))

		_, err := CollectBrief(s, nil)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("malformed done", func(t *testing.T) {
		s := NewStream(io.NopCloser(strings.NewReader("event: done\ndata: {\n\n")))

		_, err := CollectBrief(s, nil)
		require.Error(t, err)
	})
}

func TestRetryable(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusBadRequest:          false,
		http.StatusNotFound:            false,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusNotImplemented:      false,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
	} {
		assert.Equal(t, want, retryable(status), "status %d", status)
	}
}
