package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gracestack/church-comms-platform/pkg/logging"
)

func TestRequestLoggerCapturesStatusAndSize(t *testing.T) {
	var buf bytes.Buffer
	logger := &logging.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})
	handler := RequestLogger(logger)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("wrapped writer altered status: %d", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Fatalf("wrapped writer altered body: %q", rec.Body.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line not JSON: %v (%q)", err, buf.String())
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("logged status = %v", entry["status"])
	}
	if entry["bytes"] != float64(len("short and stout")) {
		t.Fatalf("logged bytes = %v", entry["bytes"])
	}
	if entry["path"] != "/teapot" {
		t.Fatalf("logged path = %v", entry["path"])
	}
	if entry["request_id"] == "" {
		t.Fatal("request id missing")
	}
}
