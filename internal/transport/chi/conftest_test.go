package chi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/knowwho/internal/db/memory"
	"github.com/kailas-cloud/knowwho/internal/domain"
	domset "github.com/kailas-cloud/knowwho/internal/domain/settings"
	datasetrepo "github.com/kailas-cloud/knowwho/internal/repository/dataset"
	settingsrepo "github.com/kailas-cloud/knowwho/internal/repository/settings"
	briefuc "github.com/kailas-cloud/knowwho/internal/usecase/brief"
	datasetuc "github.com/kailas-cloud/knowwho/internal/usecase/dataset"
	healthuc "github.com/kailas-cloud/knowwho/internal/usecase/health"
	settingsuc "github.com/kailas-cloud/knowwho/internal/usecase/settings"
)

const demoID = "demo-battery-thermal"

// fakeCompleter streams fixed chunks and records the last request.
type fakeCompleter struct {
	chunks   []string
	err      error
	errAfter bool // fail after emitting the chunks
	tokens   int
	last     domain.CompletionRequest
}

func (f *fakeCompleter) Complete(
	_ context.Context, req domain.CompletionRequest, emit func(string) error,
) (domain.CompletionResult, error) {
	f.last = req
	if f.err != nil && !f.errAfter {
		return domain.CompletionResult{}, f.err
	}
	for _, c := range f.chunks {
		if err := emit(c); err != nil {
			return domain.CompletionResult{}, err
		}
	}
	if f.err != nil {
		return domain.CompletionResult{}, f.err
	}
	return domain.CompletionResult{
		Text:             strings.Join(f.chunks, ""),
		Model:            "test-model",
		PromptTokens:     f.tokens,
		CompletionTokens: f.tokens,
	}, nil
}

// fakePinger reports a fixed health.
type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	server    *Server
	handler   http.Handler
	store     *memory.Store
	events    *Broadcaster
	completer *fakeCompleter
}

type envOption func(*envConfig)

type envConfig struct {
	completer domain.Completer
	limiter   *RateLimiter
	pingErr   error
}

func withCompleter(c domain.Completer) envOption {
	return func(cfg *envConfig) { cfg.completer = c }
}

func withLimiter(l *RateLimiter) envOption {
	return func(cfg *envConfig) { cfg.limiter = l }
}

func withPingError(err error) envOption {
	return func(cfg *envConfig) { cfg.pingErr = err }
}

// newTestEnv wires real services over the in-memory store with the demo
// dataset seeded.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	fc := &fakeCompleter{chunks: []string{"Talk to ", "Kenji."}, tokens: 5}
	cfg := &envConfig{completer: fc}
	for _, o := range opts {
		o(cfg)
	}

	logger := zap.NewNop()
	store := memory.NewStore()
	t.Cleanup(store.Close)

	events := NewBroadcaster(logger)
	dsSvc := datasetuc.New(datasetrepo.New(store, "kwtest:"), events)
	setSvc := settingsuc.New(settingsrepo.New(store, "kwtest:"), events, domset.Default())
	briefSvc := briefuc.New(dsSvc, cfg.completer)
	healthSvc := healthuc.New(fakePinger{err: cfg.pingErr}, nil)

	demo, err := datasetrepo.Demo()
	if err != nil {
		t.Fatalf("demo dataset: %v", err)
	}
	if _, err := dsSvc.Put(context.Background(), demo); err != nil {
		t.Fatalf("seed demo: %v", err)
	}

	srv := NewServer(dsSvc, setSvc, briefSvc, healthSvc, events, cfg.limiter, logger)
	r := gochi.NewRouter()
	srv.Routes(r)

	env := &testEnv{server: srv, handler: r, store: store, events: events}
	if c, ok := cfg.completer.(*fakeCompleter); ok {
		env.completer = c
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

var errBoom = errors.New("boom")
