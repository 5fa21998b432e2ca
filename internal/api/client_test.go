package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finclient/internal/core"
	"finclient/internal/log"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *MemoryTokens) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tokens := &MemoryTokens{}
	return New(srv.URL+"/api", tokens, WithLogger(log.Discard())), tokens
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestListAccountsUnwrapsEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/accounts", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true,"message":"ok","data":[
			{"id":1,"name":"Main","type":"CHECKING","balance":1500.5,"currency":"MGA"}
		],"timestamp":"2025-01-01T00:00:00"}`)
	})

	accounts, err := client.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Main", accounts[0].Name)
	assert.Equal(t, core.Checking, accounts[0].Type)
	assert.True(t, accounts[0].Balance.Equal(core.MustMoney("1500.5")))
}

func TestListReturnsEmptySliceForNullData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":null}`)
	})

	budgets, err := client.ListBudgets(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, budgets)
	assert.Empty(t, budgets)
}

func TestListTransactionsShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"paginated content", `{"success":true,"data":{"content":[{"id":1,"amount":10,"type":"EXPENSE","transactionDate":"2025-01-05"}],"totalElements":1}}`, 1},
		{"bare array", `{"success":true,"data":[{"id":1,"amount":10,"type":"INCOME"},{"id":2,"amount":5,"type":"EXPENSE"}]}`, 2},
		{"unwrapped page", `{"content":[{"id":3,"amount":1,"type":"EXPENSE"}]}`, 1},
		{"object without content", `{"success":true,"data":{"items":[]}}`, 0},
		{"null data", `{"success":true,"data":null}`, 0},
		{"not an object", `[1,2,3]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			})
			txs, err := client.ListTransactions(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, txs)
			assert.Len(t, txs, tt.want)
		})
	}
}

func TestLoginStoresTokenAndSendsBearer(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var req core.LoginRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "alice", req.UsernameOrEmail)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"token":"tok-1","type":"Bearer","id":7,"username":"alice","email":"a@example.com"}}`)
		case "/api/goals":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":[]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	resp, err := client.Login(context.Background(), core.LoginRequest{UsernameOrEmail: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Token)
	assert.Equal(t, "tok-1", tokens.Token())
	assert.Equal(t, int64(7), resp.Identity().ID)

	_, err = client.ListGoals(context.Background())
	require.NoError(t, err)

	require.NoError(t, client.Logout(context.Background()))
	assert.Empty(t, tokens.Token())
}

func TestLoginWithoutTokenFails(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"username":"alice"}}`)
	})

	_, err := client.Login(context.Background(), core.LoginRequest{UsernameOrEmail: "alice", Password: "x"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDecode))
	assert.Empty(t, tokens.Token())
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    ErrorKind
		message string
	}{
		{"server message", http.StatusUnauthorized, `{"success":false,"message":"Invalid credentials"}`, KindServer, "Invalid credentials"},
		{"server without message", http.StatusBadRequest, `{"success":false}`, KindServer, "Request failed"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, KindUnparseable, "Network error"},
		{"empty body", http.StatusInternalServerError, ``, KindUnparseable, "Network error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := client.Login(context.Background(), core.LoginRequest{UsernameOrEmail: "a", Password: "b"})
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Error())
			assert.True(t, IsStatus(err, tt.status))
			assert.Empty(t, tokens.Token())
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := New(url, nil, WithLogger(log.Discard()))
	_, err := client.ListCategories(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.Equal(t, "Network error", err.Error())
}

func TestDecodeErrorOnSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `not json`)
	})

	_, err := client.GetAccount(context.Background(), 3)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDecode))
}

func TestGoalEndpoints(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/goals/4/progress":
			if r.Method == http.MethodGet {
				writeJSON(w, http.StatusOK, `{"success":true,"data":{"goalId":4,"percentage":50,"remainingAmount":500,"status":"ON_TRACK"}}`)
				return
			}
			var req core.UpdateGoalProgressRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.True(t, req.Amount.Equal(core.MoneyFromInt(200)))
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":4,"currentAmount":700}}`)
		default:
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":4,"status":"COMPLETED"}}`)
		}
	})
	ctx := context.Background()

	progress, err := client.GetGoalProgress(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, core.OnTrack, progress.Status)
	assert.Equal(t, 50.0, progress.Percentage)

	goal, err := client.UpdateGoalProgress(ctx, 4, core.UpdateGoalProgressRequest{Amount: core.MoneyFromInt(200)})
	require.NoError(t, err)
	assert.True(t, goal.CurrentAmount.Equal(core.MoneyFromInt(700)))

	_, err = client.CompleteGoal(ctx, 4)
	require.NoError(t, err)
	_, err = client.CancelGoal(ctx, 4)
	require.NoError(t, err)
	require.NoError(t, client.DeleteGoal(ctx, 4))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"GET /api/goals/4/progress",
		"PATCH /api/goals/4/progress",
		"PATCH /api/goals/4/complete",
		"PATCH /api/goals/4/cancel",
		"DELETE /api/goals/4",
	}, seen)
}

func TestResourceMutations(t *testing.T) {
	name := "Renamed"
	tests := []struct {
		name     string
		call     func(ctx context.Context, c *Client) error
		wantReq  string
		wantBody string
	}{
		{
			name: "update account",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.UpdateAccount(ctx, 3, core.AccountPatch{Name: &name})
				return err
			},
			wantReq:  "PUT /api/accounts/3",
			wantBody: `{"name":"Renamed"}`,
		},
		{
			name:    "delete account",
			call:    func(ctx context.Context, c *Client) error { return c.DeleteAccount(ctx, 3) },
			wantReq: "DELETE /api/accounts/3",
		},
		{
			name: "update transaction",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.UpdateTransaction(ctx, 11, core.TransactionPatch{Description: &name})
				return err
			},
			wantReq:  "PUT /api/transactions/11",
			wantBody: `{"description":"Renamed"}`,
		},
		{
			name:    "delete transaction",
			call:    func(ctx context.Context, c *Client) error { return c.DeleteTransaction(ctx, 11) },
			wantReq: "DELETE /api/transactions/11",
		},
		{
			name: "update budget",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.UpdateBudget(ctx, 5, core.BudgetPatch{Name: &name})
				return err
			},
			wantReq:  "PUT /api/budgets/5",
			wantBody: `{"name":"Renamed"}`,
		},
		{
			name:    "delete budget",
			call:    func(ctx context.Context, c *Client) error { return c.DeleteBudget(ctx, 5) },
			wantReq: "DELETE /api/budgets/5",
		},
		{
			name: "update category",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.UpdateCategory(ctx, 8, core.CategoryPatch{Name: &name})
				return err
			},
			wantReq:  "PUT /api/categories/8",
			wantBody: `{"name":"Renamed"}`,
		},
		{
			name:    "delete category",
			call:    func(ctx context.Context, c *Client) error { return c.DeleteCategory(ctx, 8) },
			wantReq: "DELETE /api/categories/8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReq, gotBody string
			client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotReq = r.Method + " " + r.URL.Path
				body, _ := io.ReadAll(r.Body)
				gotBody = string(body)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":1,"name":"Renamed"}}`)
			})
			require.NoError(t, tokens.SetToken(context.Background(), "tok"))

			require.NoError(t, tt.call(context.Background(), client))
			assert.Equal(t, tt.wantReq, gotReq)
			if tt.wantBody == "" {
				assert.Empty(t, gotBody)
			} else {
				assert.JSONEq(t, tt.wantBody, gotBody)
			}
		})
	}
}

func TestListGoalsByPriorityRejectsUnknown(t *testing.T) {
	client := New("http://127.0.0.1:0", nil, WithLogger(log.Discard()))
	_, err := client.ListGoalsByPriority(context.Background(), "URGENT")
	assert.ErrorIs(t, err, core.ErrInvalidPriority)
}

func TestDashboardQueryParameters(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/dashboard/summary":
			assert.Equal(t, "MONTHLY", q.Get("period"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"totalBalance":1000,"savingsRate":12.5}}`)
		case "/api/dashboard/category-statistics":
			assert.Equal(t, "EXPENSE", q.Get("type"))
			assert.False(t, q.Has("period"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"categoryId":1,"categoryName":"Food","amount":10}]}`)
		case "/api/dashboard/monthly-trends":
			assert.Equal(t, "6", q.Get("months"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":[]}`)
		case "/api/dashboard/period-comparison":
			assert.Equal(t, "2025-02-01", q.Get("currentStart"))
			assert.Equal(t, "2025-01-31", q.Get("previousEnd"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"incomeChange":5}}`)
		}
	})
	ctx := context.Background()

	summary, err := client.DashboardSummary(ctx, "MONTHLY")
	require.NoError(t, err)
	assert.Equal(t, 12.5, summary.SavingsRate)

	stats, err := client.CategoryStatistics(ctx, "", core.Expense)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "Food", stats[0].CategoryName)

	trends, err := client.MonthlyTrends(ctx, 6)
	require.NoError(t, err)
	assert.Empty(t, trends)

	cmp, err := client.PeriodComparison(ctx,
		core.NewDate(2025, 2, 1), core.NewDate(2025, 2, 28),
		core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	require.NoError(t, err)
	assert.True(t, cmp.IncomeChange.Equal(core.MoneyFromInt(5)))
}
