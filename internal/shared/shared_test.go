package shared

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
)

func TestTransportError(t *testing.T) {
	tc := []struct {
		name         string
		err          *TransportError
		wantNotFound bool
		wantText     []string
	}{
		{
			name:     "network failure",
			err:      &TransportError{Op: "get status", Err: errors.New("connection refused")},
			wantText: []string{"job queue request failed", "get status", "connection refused"},
		},
		{
			name:         "unknown job",
			err:          &TransportError{Op: "get status", StatusCode: http.StatusNotFound, Message: "no such job"},
			wantNotFound: true,
			wantText:     []string{"status 404", "no such job"},
		},
		{
			name:     "server error",
			err:      &TransportError{Op: "cleanup", StatusCode: http.StatusInternalServerError},
			wantText: []string{"cleanup", "status 500"},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var err error = fmt.Errorf("wrapped: %w", tt.err)

			if !errors.Is(err, ErrTransport) {
				t.Error("expected error to match ErrTransport")
			}
			if got := IsNotFound(err); got != tt.wantNotFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.wantNotFound)
			}

			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatal("expected errors.As to find *TransportError")
			}

			for _, want := range tt.wantText {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected %q in error text %q", want, err.Error())
				}
			}
		})
	}

	t.Run("cause is reachable", func(t *testing.T) {
		cause := errors.New("boom")
		err := &TransportError{Op: "submit", Err: cause}
		if !errors.Is(err, cause) {
			t.Error("expected errors.Is to reach the cause")
		}
	})
}

func TestLoggers(t *testing.T) {
	t.Run("NewLogger writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		WithLogger(logger, "run", "r1").Info("hello")

		if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "run=r1") {
			t.Errorf("unexpected log output %q", buf.String())
		}
	})

	t.Run("NewFileLogger creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "webpq.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		logger.Info("to file")
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected 36 character UUID, got %d", len(a))
	}
}

func TestMarshalJSON(t *testing.T) {
	v := map[string]int{"waiting": 1}

	compact, err := MarshalJSON(v, false)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if string(compact) != `{"waiting":1}` {
		t.Errorf("unexpected compact output %s", compact)
	}

	pretty, err := MarshalJSON(v, true)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if string(pretty) != "{\n  \"waiting\": 1\n}" {
		t.Errorf("unexpected pretty output %s", pretty)
	}
}
