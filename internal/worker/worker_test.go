package worker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finclient/internal/amqp"
	"finclient/internal/api"
	"finclient/internal/cache"
	"finclient/internal/log"
	"finclient/internal/services"
	"finclient/internal/sheets/memory"
)

type fakeBackend struct {
	mu   sync.Mutex
	hits map[string]int
}

var bodies = map[string]string{
	"/api/accounts":          `{"success":true,"data":[{"id":1,"name":"Main","type":"CHECKING","balance":1000,"currency":"MGA"}]}`,
	"/api/transactions":      `{"success":true,"data":[{"id":1,"amount":400,"type":"INCOME","transactionDate":"2025-03-02","accountId":1},{"id":2,"amount":150,"type":"EXPENSE","transactionDate":"2025-03-05","accountId":1,"categoryId":20}]}`,
	"/api/categories":        `{"success":true,"data":[{"id":20,"name":"Food","type":"EXPENSE"}]}`,
	"/api/dashboard/summary": `{"success":true,"data":{"totalBalance":1000,"transactionCount":2}}`,
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.hits[r.URL.Path]++
	b.mu.Unlock()

	body, ok := bodies[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func newTestWorker(t *testing.T, opts ...Option) (*Worker, *fakeBackend, *memory.Writer) {
	t.Helper()
	be := &fakeBackend{hits: make(map[string]int)}
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	qc := cache.NewQueryClient(cache.WithLogger(log.Discard()))
	t.Cleanup(qc.Close)
	finance := services.NewFinanceService(api.New(srv.URL+"/api", nil, api.WithLogger(log.Discard())), qc,
		services.WithLogger(log.Discard()))

	reports := memory.New()
	w := New(finance, reports, append([]Option{WithLogger(log.Discard())}, opts...)...)
	w.now = func() time.Time { return time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC) }
	return w, be, reports
}

// fakeConsumer delivers its messages, then blocks until ctx ends or
// returns err when set.
type fakeConsumer struct {
	messages []*amqp.InvalidationMessage
	err      error
	handled  chan struct{}
}

func (f *fakeConsumer) ConsumeInvalidations(ctx context.Context, handler func(*amqp.InvalidationMessage) error) error {
	for _, m := range f.messages {
		if err := handler(m); err != nil {
			return err
		}
	}
	close(f.handled)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHandleInvalidation(t *testing.T) {
	w, be, _ := newTestWorker(t)
	ctx := context.Background()

	_, err := w.finance.Accounts(ctx)
	require.NoError(t, err)
	_, err = w.finance.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, be.count("/api/accounts"))

	err = w.HandleInvalidation(amqp.NewInvalidationMessage("other", [][]string{{"accounts"}}))
	require.NoError(t, err)

	_, err = w.finance.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, be.count("/api/accounts"))
}

func TestExport(t *testing.T) {
	w, _, reports := newTestWorker(t)

	require.NoError(t, w.Export(context.Background()))

	report, ok := reports.Last()
	require.True(t, ok)
	assert.Equal(t, "MGA", report.Currency)
	require.Len(t, report.Monthly, 6)
	assert.Equal(t, "400", report.Monthly[5].Income.String())
	require.Len(t, report.Categories, 1)
	assert.Equal(t, "Food", report.Categories[0].Name)
}

func TestRun(t *testing.T) {
	consumer := &fakeConsumer{
		messages: []*amqp.InvalidationMessage{amqp.NewInvalidationMessage("other", [][]string{{"transactions"}})},
		handled:  make(chan struct{}),
	}
	w, be, reports := newTestWorker(t,
		WithConsumer(consumer),
		WithPolling("", 20*time.Millisecond),
		WithExport(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	select {
	case <-consumer.handled:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer was never started")
	}
	assert.Eventually(t, func() bool { return reports.Writes() >= 1 }, 2*time.Second, 10*time.Millisecond,
		"export runs once at startup")
	assert.Eventually(t, func() bool { return be.count("/api/dashboard/summary") >= 3 }, 2*time.Second, 10*time.Millisecond,
		"summary is polled")

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ConsumerFailure(t *testing.T) {
	boom := errors.New("broker gone")
	consumer := &fakeConsumer{err: boom, handled: make(chan struct{})}
	w, _, _ := newTestWorker(t, WithConsumer(consumer))

	err := w.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_NothingEnabled(t *testing.T) {
	w, be, reports := newTestWorker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Deadline exceeded is reported as-is; only cancellation is a clean stop.
	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, be.count("/api/dashboard/summary"))
	assert.Zero(t, reports.Writes())
}
