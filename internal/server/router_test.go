package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/webpq/internal/shared"
)

type echoHandler struct{}

func (echoHandler) Routes() []string { return []string{"GET /echo/{word}", "POST /echo"} }

func (echoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("echo:" + r.PathValue("word")))
}

func TestBasicRouter(t *testing.T) {
	t.Run("Handle", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("get", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		t.Run("Matching Method", func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

			if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
				t.Errorf("expected 200 pong, got %d %q", rec.Code, rec.Body.String())
			}
		})

		t.Run("Wrong Method", func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected 405, got %d", rec.Code)
			}
		})

		t.Run("Unknown Path", func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

			if rec.Code != http.StatusNotFound {
				t.Errorf("expected 404, got %d", rec.Code)
			}
		})
	})

	t.Run("Handler", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handler(echoHandler{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo/hello", nil))

		if rec.Body.String() != "echo:hello" {
			t.Errorf("expected path value to reach handler, got %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected second route to be registered, got %d", rec.Code)
		}
	})

	t.Run("Routes", func(t *testing.T) {
		inner := NewBasicRouter()
		inner.Handler(echoHandler{})

		outer := NewBasicRouter()
		outer.Handle("get", "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
		outer.Handler(inner)

		want := append([]string{"GET /health"}, echoHandler{}.Routes()...)
		if got := outer.Routes(); !slices.Equal(got, want) {
			t.Errorf("expected routes %v, got %v", want, got)
		}

		rec := httptest.NewRecorder()
		outer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo/mounted", nil))
		if rec.Body.String() != "echo:mounted" {
			t.Errorf("expected mounted router to serve, got %q", rec.Body.String())
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("first"), tag("second"))
		router.Use(tag("third"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if got := strings.Join(order, ","); got != "first,second,third,handler" {
			t.Errorf("expected middleware in registration order, got %s", got)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Logging Captures Status", func(t *testing.T) {
		var buf strings.Builder
		logger := shared.NewLogger(&buf)
		shared.SetLogLevel(logger, log.DebugLevel)

		handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew?cups=2", nil))

		if rec.Code != http.StatusTeapot {
			t.Errorf("expected 418 to pass through, got %d", rec.Code)
		}
		out := buf.String()
		for _, want := range []string{"http request", "/brew", "418", "cups=2"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected log to contain %q, got %s", want, out)
			}
		}
	})

	t.Run("Recovery", func(t *testing.T) {
		handler := RecoveryMiddleware(shared.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "internal server error") {
			t.Errorf("expected JSON error body, got %s", rec.Body.String())
		}
	})
}

func TestServe(t *testing.T) {
	t.Run("Serves Until Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ready := make(chan string, 1)
		errs := make(chan error, 1)

		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		go func() { errs <- Serve(ctx, "127.0.0.1:0", router, shared.NopLogger(), ready) }()

		var addr string
		select {
		case addr = <-ready:
		case err := <-errs:
			t.Fatalf("server failed to start: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("server did not become ready")
		}

		resp, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != "pong" {
			t.Errorf("expected pong, got %q", body)
		}

		cancel()
		select {
		case err := <-errs:
			if err != nil {
				t.Errorf("expected clean shutdown, got %v", err)
			}
		case <-time.After(ShutdownTimeout + time.Second):
			t.Fatal("server did not shut down")
		}
	})

	t.Run("Bad Address", func(t *testing.T) {
		if err := Serve(context.Background(), "256.0.0.1:bad", http.NotFoundHandler(), shared.NopLogger(), nil); err == nil {
			t.Error("expected listen error")
		}
	})
}
