package log

import (
	"net/http"
	"time"
)

// Transport wraps an http.RoundTripper and logs every outgoing request.
// Request and response bodies are never logged.
func Transport(logger *Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{logger: logger, next: next}
}

type loggingTransport struct {
	logger *Logger
	next   http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start).Milliseconds()

	args := []any{
		FieldMethod, req.Method,
		FieldPath, req.URL.Path,
		FieldDuration, elapsed,
	}
	if id := req.Header.Get("X-Request-ID"); id != "" {
		args = append(args, FieldRequestID, id)
	}
	if err != nil {
		t.logger.WarnContext(req.Context(), "API request failed", append(args, FieldError, err)...)
		return nil, err
	}
	args = append(args, FieldStatusCode, resp.StatusCode)
	if resp.StatusCode >= 400 {
		t.logger.WarnContext(req.Context(), "API request returned error status", args...)
	} else {
		t.logger.DebugContext(req.Context(), "API request", args...)
	}
	return resp, nil
}
