package gin_test

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	ginpkg "github.com/gin-gonic/gin"
	infragin "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
)

// entry is one recorded log call.
type entry struct {
	level  string
	msg    string
	fields map[string]string
}

// recordingLogger keeps entries in memory. With shares the parent's sink.
type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]entry
	base    []logger.Field
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]entry{}}
}

func (r *recordingLogger) record(level, msg string, fields []logger.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := entry{level: level, msg: msg, fields: map[string]string{}}
	for _, f := range append(append([]logger.Field(nil), r.base...), fields...) {
		e.fields[f.Key] = f.String
	}
	*r.entries = append(*r.entries, e)
}

func (r *recordingLogger) Debug(msg string, fields ...logger.Field) { r.record("debug", msg, fields) }
func (r *recordingLogger) Info(msg string, fields ...logger.Field)  { r.record("info", msg, fields) }
func (r *recordingLogger) Warn(msg string, fields ...logger.Field)  { r.record("warn", msg, fields) }
func (r *recordingLogger) Error(msg string, fields ...logger.Field) { r.record("error", msg, fields) }
func (r *recordingLogger) Fatal(msg string, fields ...logger.Field) { r.record("fatal", msg, fields) }
func (r *recordingLogger) Sync() error                              { return nil }

func (r *recordingLogger) With(fields ...logger.Field) logger.Logger {
	return &recordingLogger{mu: r.mu, entries: r.entries, base: append(append([]logger.Field(nil), r.base...), fields...)}
}

func (r *recordingLogger) all() []entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entry(nil), *r.entries...)
}

func TestMain(m *testing.M) {
	ginpkg.SetMode(ginpkg.TestMode)
	os.Exit(m.Run())
}

func newRouter(log logger.Logger, routes func(*ginpkg.Engine)) *ginpkg.Engine {
	router := ginpkg.New()
	router.Use(infragin.RequestIDLoggerMiddleware(log), infragin.LoggerMiddleware(log))
	routes(router)
	return router
}

func serve(router http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, http.NoBody)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRequestIDLoggerMiddleware_InboundIDLimit(t *testing.T) {
	t.Parallel()

	router := newRouter(logger.NewNop(), func(r *ginpkg.Engine) {
		r.GET("/api/v1/products/:id/programs", func(c *ginpkg.Context) { c.Status(http.StatusOK) })
	})

	tests := []struct {
		name    string
		inbound string
		kept    bool
	}{
		{name: "absent", inbound: "", kept: false},
		{name: "at limit", inbound: strings.Repeat("a", 128), kept: true},
		{name: "over limit", inbound: strings.Repeat("a", 129), kept: false},
		{name: "upstream trace", inbound: "trace-from-gateway-42", kept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			header := map[string]string{}
			if tt.inbound != "" {
				header[infragin.RequestIDHeader] = tt.inbound
			}
			got := serve(router, http.MethodGet, "/api/v1/products/42/programs", header).Header().Get(infragin.RequestIDHeader)

			if tt.kept {
				if got != tt.inbound {
					t.Errorf("request id = %q, want inbound %q", got, tt.inbound)
				}
				return
			}
			if len(got) != 32 {
				t.Fatalf("generated request id %q has length %d, want 32", got, len(got))
			}
			if _, err := hex.DecodeString(got); err != nil {
				t.Errorf("generated request id %q is not hex: %v", got, err)
			}
		})
	}
}

func TestRequestIDLoggerMiddleware_ScopesContextAndLogger(t *testing.T) {
	t.Parallel()

	rec := newRecordingLogger()
	var ctxID string
	router := newRouter(rec, func(r *ginpkg.Engine) {
		r.POST("/api/v1/products/:id/links", func(c *ginpkg.Context) {
			ctxID = c.GetString(infragin.ContextKeyRequestID)
			logger.FromContext(c.Request.Context()).Info("Generating link", logger.ProductID(42))
			c.Status(http.StatusCreated)
		})
	})

	serve(router, http.MethodPost, "/api/v1/products/42/links", map[string]string{infragin.RequestIDHeader: "req-7"})

	if ctxID != "req-7" {
		t.Errorf("gin context %s = %q, want req-7", infragin.ContextKeyRequestID, ctxID)
	}

	entries := rec.all()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want handler + access log", len(entries))
	}
	for _, e := range entries {
		if e.fields["request_id"] != "req-7" {
			t.Errorf("%q entry request_id = %q, want req-7", e.msg, e.fields["request_id"])
		}
	}
}

func TestLoggerMiddleware_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		wantLevel string
		wantMsg   string
	}{
		{name: "api request", path: "/api/v1/links/9", wantLevel: "info", wantMsg: "HTTP request"},
		{name: "health check", path: "/health", wantLevel: "debug", wantMsg: "HTTP request"},
		{name: "metrics scrape", path: "/metrics", wantLevel: "debug", wantMsg: "HTTP request"},
		{name: "handler error", path: "/api/v1/links/broken", wantLevel: "error", wantMsg: "HTTP request with errors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := newRecordingLogger()
			router := ginpkg.New()
			router.Use(infragin.LoggerMiddleware(rec))
			router.GET("/*any", func(c *ginpkg.Context) {
				if strings.HasSuffix(c.Request.URL.Path, "broken") {
					_ = c.Error(http.ErrAbortHandler)
					c.Status(http.StatusInternalServerError)
					return
				}
				c.Status(http.StatusOK)
			})

			serve(router, http.MethodGet, tt.path+"?platform=amazon", nil)

			entries := rec.all()
			if len(entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(entries))
			}
			e := entries[0]
			if e.level != tt.wantLevel || e.msg != tt.wantMsg {
				t.Errorf("logged %s %q, want %s %q", e.level, e.msg, tt.wantLevel, tt.wantMsg)
			}
			if e.fields["path"] != tt.path {
				t.Errorf("path field = %q, want %q", e.fields["path"], tt.path)
			}
			if e.fields["query"] != "platform=amazon" {
				t.Errorf("query field = %q", e.fields["query"])
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	router := ginpkg.New()
	router.Use(infragin.CORSMiddleware(infragin.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://dashboard.example.com"},
	}))
	router.Any("/api/v1/links/generate-all", func(c *ginpkg.Context) { c.Status(http.StatusOK) })

	allowed := serve(router, http.MethodOptions, "/api/v1/links/generate-all",
		map[string]string{"Origin": "https://dashboard.example.com"})
	if allowed.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", allowed.Code)
	}
	if got := allowed.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Errorf("allow origin = %q", got)
	}
	if got := allowed.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, infragin.RequestIDHeader) {
		t.Errorf("allow headers %q missing %s", got, infragin.RequestIDHeader)
	}

	denied := serve(router, http.MethodPost, "/api/v1/links/generate-all",
		map[string]string{"Origin": "https://elsewhere.example.com"})
	if denied.Code != http.StatusOK || denied.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("foreign origin got status %d and allow origin %q",
			denied.Code, denied.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	rec := newRecordingLogger()
	router := ginpkg.New()
	router.Use(infragin.RecoveryMiddleware(rec))
	router.GET("/api/v1/products/:id/ads/recommend", func(*ginpkg.Context) { panic("template table empty") })

	w := serve(router, http.MethodGet, "/api/v1/products/42/ads/recommend", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body["code"])
	}

	entries := rec.all()
	if len(entries) != 1 || entries[0].level != "error" {
		t.Fatalf("entries = %+v, want one error entry", entries)
	}
}
