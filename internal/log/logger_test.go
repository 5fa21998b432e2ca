package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentIsLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentCache})
	logger.Info("hello")
	out := buf.String()
	if strings.Count(out, "component=cache") != 1 {
		t.Fatalf("expected one component attribute, got %q", out)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
	l := Discard().WithComponent(ComponentAPI)
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatal("expected logger stored in context")
	}
}

func TestTransportLogsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentAPI})
	client := &http.Client{Transport: Transport(logger, nil)}

	resp, err := client.Get(srv.URL + "/accounts/9")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	out := buf.String()
	if !strings.Contains(out, "status_code=404") || !strings.Contains(out, "path=/accounts/9") {
		t.Fatalf("unexpected log output: %q", out)
	}
}
