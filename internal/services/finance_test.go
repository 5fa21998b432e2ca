package services

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

	"finclient/internal/api"
	"finclient/internal/cache"
	"finclient/internal/core"
	"finclient/internal/log"
)

// backend is a fake finance REST service that counts requests per route.
type backend struct {
	mu     sync.Mutex
	hits   map[string]int
	fail   map[string]int
	bodies map[string]string
}

func newBackend() *backend {
	return &backend{
		hits: make(map[string]int),
		fail: make(map[string]int),
		bodies: map[string]string{
			"GET /api/accounts":                      `{"success":true,"data":[{"id":1,"name":"Main","type":"CHECKING","balance":1000,"currency":"MGA"}]}`,
			"GET /api/transactions":                  `{"success":true,"data":{"content":[{"id":1,"amount":400,"type":"INCOME","transactionDate":"2025-03-02","accountId":1,"categoryId":10},{"id":2,"amount":150,"type":"EXPENSE","transactionDate":"2025-03-05","accountId":1,"categoryId":20}]}}`,
			"GET /api/budgets":                       `{"success":true,"data":[{"id":1,"name":"Food","amount":300,"spent":150,"period":"MONTHLY"}]}`,
			"GET /api/categories":                    `{"success":true,"data":[{"id":10,"name":"Salary","type":"INCOME"},{"id":20,"name":"Food","type":"EXPENSE"}]}`,
			"GET /api/goals":                         `{"success":true,"data":[]}`,
			"GET /api/goals/active":                  `{"success":true,"data":[]}`,
			"GET /api/dashboard/summary":             `{"success":true,"data":{"totalBalance":1000}}`,
			"GET /api/dashboard/category-statistics": `{"success":true,"data":[]}`,
			"GET /api/dashboard/monthly-trends":      `{"success":true,"data":[]}`,
			"POST /api/transactions":                 `{"success":true,"data":{"id":3,"amount":10,"type":"EXPENSE"}}`,
			"POST /api/budgets":                      `{"success":true,"data":{"id":2,"name":"Fun","amount":50}}`,
			"POST /api/goals":                        `{"success":true,"data":{"id":5,"name":"Trip"}}`,
			"PATCH /api/goals/5/complete":            `{"success":true,"data":{"id":5,"status":"COMPLETED"}}`,
		},
	}
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	b.mu.Lock()
	b.hits[route]++
	status, failing := b.fail[route]
	body, ok := b.bodies[route]
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case failing:
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"success":false,"message":"Validation failed"}`)
	case ok:
		_, _ = io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"not found"}`)
	}
}

func (b *backend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys [][][]string
	err  error
}

func (p *recordingPublisher) PublishInvalidation(_ context.Context, keys [][]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, keys)
	return p.err
}

func newService(t *testing.T, opts ...Option) (*FinanceService, *backend) {
	t.Helper()
	b := newBackend()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	qc := cache.NewQueryClient(cache.WithLogger(log.Discard()))
	t.Cleanup(qc.Close)

	client := api.New(srv.URL+"/api", nil, api.WithLogger(log.Discard()))
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	return NewFinanceService(client, qc, opts...), b
}

func validTransaction() core.CreateTransactionRequest {
	return core.CreateTransactionRequest{
		Amount:      core.MoneyFromInt(10),
		Type:        core.Expense,
		Description: "Coffee",
		Date:        core.NewDate(2025, 3, 10),
		AccountID:   1,
	}
}

func TestCreateTransactionInvalidatesRelatedReads(t *testing.T) {
	s, b := newService(t)
	ctx := context.Background()

	read := func() {
		_, err := s.Transactions(ctx)
		require.NoError(t, err)
		_, err = s.Accounts(ctx)
		require.NoError(t, err)
		_, err = s.Budgets(ctx)
		require.NoError(t, err)
		_, err = s.DashboardSummary(ctx, "MONTHLY")
		require.NoError(t, err)
		_, err = s.CategoryStatistics(ctx, "MONTHLY", core.Expense)
		require.NoError(t, err)
		_, err = s.MonthlyTrends(ctx, 6)
		require.NoError(t, err)
		_, err = s.Categories(ctx)
		require.NoError(t, err)
	}

	read()
	read()
	for _, route := range []string{"GET /api/transactions", "GET /api/accounts", "GET /api/categories"} {
		assert.Equal(t, 1, b.count(route), route)
	}

	_, err := s.CreateTransaction(ctx, validTransaction())
	require.NoError(t, err)

	for _, k := range []cache.Key{
		KeyTransactions(), KeyAccounts(), KeyBudgets(),
		KeyDashboardSummary("MONTHLY"), KeyCategoryStatistics("MONTHLY", core.Expense), KeyMonthlyTrends(6),
	} {
		state, ok := s.Cache().State(k)
		require.True(t, ok, "%v", k)
		assert.True(t, state.Stale, "%v should be stale", k)
	}
	state, _ := s.Cache().State(KeyCategories())
	assert.False(t, state.Stale)

	read()
	assert.Equal(t, 2, b.count("GET /api/transactions"))
	assert.Equal(t, 2, b.count("GET /api/accounts"))
	assert.Equal(t, 2, b.count("GET /api/budgets"))
	assert.Equal(t, 2, b.count("GET /api/dashboard/summary"))
	assert.Equal(t, 2, b.count("GET /api/dashboard/category-statistics"))
	assert.Equal(t, 2, b.count("GET /api/dashboard/monthly-trends"))
	assert.Equal(t, 1, b.count("GET /api/categories"))
}

func TestFailedMutationInvalidatesNothing(t *testing.T) {
	pub := &recordingPublisher{}
	s, b := newService(t, WithPublisher(pub))
	ctx := context.Background()
	b.fail["POST /api/transactions"] = http.StatusBadRequest

	_, err := s.Transactions(ctx)
	require.NoError(t, err)

	_, err = s.CreateTransaction(ctx, validTransaction())
	require.Error(t, err)
	assert.Equal(t, "Validation failed", err.Error())
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))

	state, _ := s.Cache().State(KeyTransactions())
	assert.False(t, state.Stale)
	assert.Empty(t, pub.keys)
}

func TestValidationRunsBeforeRequest(t *testing.T) {
	s, b := newService(t)
	req := validTransaction()
	req.Amount = core.Zero

	_, err := s.CreateTransaction(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Zero(t, b.count("POST /api/transactions"))
}

func TestMutationPublishesKeys(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s, _ := newService(t, WithPublisher(pub))

	_, err := s.CompleteGoal(context.Background(), 5)
	require.NoError(t, err, "a publish failure must not fail the mutation")

	require.Len(t, pub.keys, 1)
	assert.Equal(t, [][]string{{"goals"}, {"goals", "active"}, {"goals", "completed"}}, pub.keys[0])
}

func TestApplyRemoteInvalidation(t *testing.T) {
	s, b := newService(t)
	ctx := context.Background()

	_, err := s.Goals(ctx)
	require.NoError(t, err)
	_, err = s.ActiveGoals(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, s.ApplyRemoteInvalidation([][]string{{"goals"}}))

	_, err = s.ActiveGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, b.count("GET /api/goals/active"))
}

func TestWatchDashboardSummaryRefreshesAfterBudgetCreate(t *testing.T) {
	s, b := newService(t)

	var (
		mu    sync.Mutex
		calls int
	)
	stop := s.WatchDashboardSummary("", func(sum core.DashboardSummary, err error) {
		assert.NoError(t, err)
		assert.True(t, sum.TotalBalance.Equal(core.MoneyFromInt(1000)))
		mu.Lock()
		calls++
		mu.Unlock()
	})
	defer stop()

	waitFor := func(n int) {
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return calls >= n
		}, time.Second, 5*time.Millisecond)
	}
	waitFor(1)

	_, err := s.CreateBudget(context.Background(), core.CreateBudgetRequest{
		Name:      "Fun",
		Amount:    core.MoneyFromInt(50),
		Period:    core.Monthly,
		StartDate: core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)
	waitFor(2)
	assert.Equal(t, 2, b.count("GET /api/dashboard/summary"))
}

func TestDashboard(t *testing.T) {
	s, _ := newService(t)
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	view, err := s.Dashboard(context.Background(), now)
	require.NoError(t, err)

	assert.True(t, view.Overview.TotalBalance.Equal(core.MoneyFromInt(1000)))
	assert.True(t, view.Overview.MonthIncome.Equal(core.MoneyFromInt(400)))
	assert.True(t, view.Overview.MonthExpenses.Equal(core.MoneyFromInt(150)))
	assert.Equal(t, 1, view.Overview.BudgetCount)
	assert.Len(t, view.TopCategories, 2)
	assert.Len(t, view.Monthly, 6)
	assert.True(t, view.Savings[5].Cumulative.Equal(core.MoneyFromInt(250)))
	require.Len(t, view.Recent, 2)
	assert.Equal(t, int64(2), view.Recent[0].ID)
}

func TestChartsResolveCategoryNames(t *testing.T) {
	s, _ := newService(t, WithCurrency("eur"))
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	report, err := s.Charts(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "EUR", report.Currency)
	require.Len(t, report.Categories, 1)
	assert.Equal(t, "Food", report.Categories[0].Name)
}

func TestPeriodComparisonRejectsInvertedRange(t *testing.T) {
	s, _ := newService(t)
	_, err := s.PeriodComparison(context.Background(),
		core.NewDate(2025, 2, 28), core.NewDate(2025, 2, 1),
		core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	assert.ErrorIs(t, err, core.ErrInvalidDateRange)
}

func TestMutationKeyTable(t *testing.T) {
	tests := []struct {
		name string
		keys []cache.Key
		want []cache.Key
	}{
		{"create account", accountCreatedKeys(), []cache.Key{{"accounts"}, {"dashboard", "summary"}}},
		{"update account", accountUpdatedKeys(4), []cache.Key{{"accounts"}, {"accounts", "4"}, {"dashboard", "summary"}}},
		{"delete account", accountDeletedKeys(), []cache.Key{{"accounts"}, {"transactions"}, {"dashboard", "summary"}}},
		{"update transaction", transactionKeys(9), []cache.Key{
			{"transactions"}, {"transactions", "9"}, {"accounts"}, {"budgets"},
			{"dashboard", "summary"}, {"dashboard", "categoryStats"}, {"dashboard", "monthlyTrends"},
		}},
		{"update category", categoryUpdatedKeys(2), []cache.Key{{"categories"}, {"categories", "2"}}},
		{"update goal progress", goalUpdatedKeys(5), []cache.Key{{"goals"}, {"goals", "5"}, {"goals", "5", "progress"}}},
		{"cancel goal", goalCancelledKeys(), []cache.Key{{"goals"}, {"goals", "active"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.keys)
		})
	}
}
