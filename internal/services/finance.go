package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finclient/internal/aggregate"
	"finclient/internal/api"
	"finclient/internal/cache"
	"finclient/internal/core"
	"finclient/internal/log"
)

// Publisher forwards invalidated keys to other processes.
type Publisher interface {
	PublishInvalidation(ctx context.Context, keys [][]string) error
}

// FinanceService reads through the query cache and, after every successful
// mutation, invalidates the keys the mutation can affect. Failed mutations
// invalidate nothing.
type FinanceService struct {
	api      *api.Client
	cache    *cache.QueryClient
	bus      Publisher
	currency string
	logger   *log.Logger
}

type Option func(*FinanceService)

func WithLogger(l *log.Logger) Option {
	return func(s *FinanceService) { s.logger = l.WithComponent(log.ComponentFinance) }
}

// WithPublisher enables cross-process invalidation.
func WithPublisher(p Publisher) Option {
	return func(s *FinanceService) { s.bus = p }
}

func WithCurrency(code string) Option {
	return func(s *FinanceService) {
		if code != "" {
			s.currency = strings.ToUpper(code)
		}
	}
}

func NewFinanceService(client *api.Client, qc *cache.QueryClient, opts ...Option) *FinanceService {
	s := &FinanceService{
		api:      client,
		cache:    qc,
		currency: core.DefaultCurrency,
		logger:   log.Default().WithComponent(log.ComponentFinance),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FinanceService) Currency() string { return s.currency }

// Cache exposes the query client, for subscribers and pollers.
func (s *FinanceService) Cache() *cache.QueryClient { return s.cache }

// invalidate marks keys stale locally and announces them on the bus. A bus
// failure is logged only: the mutation already succeeded.
func (s *FinanceService) invalidate(ctx context.Context, op, resource string, keys ...cache.Key) {
	s.cache.Invalidate(keys...)

	s.logger.Debug("Mutation applied",
		log.FieldOperation, op,
		log.FieldResource, resource,
		log.FieldKeys, fmt.Sprint(keys))

	if s.bus == nil {
		return
	}
	raw := make([][]string, len(keys))
	for i, k := range keys {
		raw[i] = []string(k)
	}
	if err := s.bus.PublishInvalidation(ctx, raw); err != nil {
		s.logger.Warn("Failed to publish invalidation",
			log.FieldOperation, op,
			log.FieldResource, resource,
			log.FieldError, err)
	}
}

// ApplyRemoteInvalidation marks keys received from another process stale.
// Nothing is republished.
func (s *FinanceService) ApplyRemoteInvalidation(keys [][]string) int {
	prefixes := make([]cache.Key, len(keys))
	for i, k := range keys {
		prefixes[i] = cache.NewKey(k...)
	}
	return s.cache.Invalidate(prefixes...)
}

// Accounts

func (s *FinanceService) Accounts(ctx context.Context) ([]core.Account, error) {
	return cache.Get(ctx, s.cache, KeyAccounts(), s.api.ListAccounts)
}

func (s *FinanceService) Account(ctx context.Context, id int64) (core.Account, error) {
	return cache.Get(ctx, s.cache, KeyAccount(id), func(ctx context.Context) (core.Account, error) {
		return s.api.GetAccount(ctx, id)
	})
}

func (s *FinanceService) CreateAccount(ctx context.Context, req core.CreateAccountRequest) (core.Account, error) {
	if err := req.Validate(); err != nil {
		return core.Account{}, err
	}
	acc, err := s.api.CreateAccount(ctx, req)
	if err != nil {
		return core.Account{}, err
	}
	s.invalidate(ctx, log.OpCreate, "account", accountCreatedKeys()...)
	return acc, nil
}

func (s *FinanceService) UpdateAccount(ctx context.Context, id int64, patch core.AccountPatch) (core.Account, error) {
	acc, err := s.api.UpdateAccount(ctx, id, patch)
	if err != nil {
		return core.Account{}, err
	}
	s.invalidate(ctx, log.OpUpdate, "account", accountUpdatedKeys(id)...)
	return acc, nil
}

func (s *FinanceService) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.api.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, log.OpDelete, "account", accountDeletedKeys()...)
	return nil
}

// Transactions

func (s *FinanceService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return cache.Get(ctx, s.cache, KeyTransactions(), s.api.ListTransactions)
}

func (s *FinanceService) Transaction(ctx context.Context, id int64) (core.Transaction, error) {
	return cache.Get(ctx, s.cache, KeyTransaction(id), func(ctx context.Context) (core.Transaction, error) {
		return s.api.GetTransaction(ctx, id)
	})
}

func (s *FinanceService) CreateTransaction(ctx context.Context, req core.CreateTransactionRequest) (core.Transaction, error) {
	if err := req.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.api.CreateTransaction(ctx, req)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidate(ctx, log.OpCreate, "transaction", transactionKeys()...)
	return tx, nil
}

func (s *FinanceService) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	tx, err := s.api.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidate(ctx, log.OpUpdate, "transaction", transactionKeys(id)...)
	return tx, nil
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.api.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, log.OpDelete, "transaction", transactionKeys()...)
	return nil
}

// Budgets

func (s *FinanceService) Budgets(ctx context.Context) ([]core.Budget, error) {
	return cache.Get(ctx, s.cache, KeyBudgets(), s.api.ListBudgets)
}

func (s *FinanceService) Budget(ctx context.Context, id int64) (core.Budget, error) {
	return cache.Get(ctx, s.cache, KeyBudget(id), func(ctx context.Context) (core.Budget, error) {
		return s.api.GetBudget(ctx, id)
	})
}

func (s *FinanceService) CreateBudget(ctx context.Context, req core.CreateBudgetRequest) (core.Budget, error) {
	if err := req.Validate(); err != nil {
		return core.Budget{}, err
	}
	b, err := s.api.CreateBudget(ctx, req)
	if err != nil {
		return core.Budget{}, err
	}
	s.invalidate(ctx, log.OpCreate, "budget", budgetKeys()...)
	return b, nil
}

func (s *FinanceService) UpdateBudget(ctx context.Context, id int64, patch core.BudgetPatch) (core.Budget, error) {
	b, err := s.api.UpdateBudget(ctx, id, patch)
	if err != nil {
		return core.Budget{}, err
	}
	s.invalidate(ctx, log.OpUpdate, "budget", budgetUpdatedKeys(id)...)
	return b, nil
}

func (s *FinanceService) DeleteBudget(ctx context.Context, id int64) error {
	if err := s.api.DeleteBudget(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, log.OpDelete, "budget", budgetKeys()...)
	return nil
}

// Categories

func (s *FinanceService) Categories(ctx context.Context) ([]core.Category, error) {
	return cache.Get(ctx, s.cache, KeyCategories(), s.api.ListCategories)
}

func (s *FinanceService) Category(ctx context.Context, id int64) (core.Category, error) {
	return cache.Get(ctx, s.cache, KeyCategory(id), func(ctx context.Context) (core.Category, error) {
		return s.api.GetCategory(ctx, id)
	})
}

func (s *FinanceService) CreateCategory(ctx context.Context, req core.CreateCategoryRequest) (core.Category, error) {
	if err := req.Validate(); err != nil {
		return core.Category{}, err
	}
	c, err := s.api.CreateCategory(ctx, req)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidate(ctx, log.OpCreate, "category", categoryKeys()...)
	return c, nil
}

func (s *FinanceService) UpdateCategory(ctx context.Context, id int64, patch core.CategoryPatch) (core.Category, error) {
	c, err := s.api.UpdateCategory(ctx, id, patch)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidate(ctx, log.OpUpdate, "category", categoryUpdatedKeys(id)...)
	return c, nil
}

func (s *FinanceService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.api.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, log.OpDelete, "category", categoryKeys()...)
	return nil
}

// Goals

func (s *FinanceService) Goals(ctx context.Context) ([]core.Goal, error) {
	return cache.Get(ctx, s.cache, KeyGoals(), s.api.ListGoals)
}

func (s *FinanceService) ActiveGoals(ctx context.Context) ([]core.Goal, error) {
	return cache.Get(ctx, s.cache, KeyActiveGoals(), s.api.ListActiveGoals)
}

func (s *FinanceService) CompletedGoals(ctx context.Context) ([]core.Goal, error) {
	return cache.Get(ctx, s.cache, KeyCompletedGoals(), s.api.ListCompletedGoals)
}

func (s *FinanceService) GoalsByPriority(ctx context.Context, p core.GoalPriority) ([]core.Goal, error) {
	return cache.Get(ctx, s.cache, KeyGoalsByPriority(p), func(ctx context.Context) ([]core.Goal, error) {
		return s.api.ListGoalsByPriority(ctx, p)
	})
}

func (s *FinanceService) Goal(ctx context.Context, id int64) (core.Goal, error) {
	return cache.Get(ctx, s.cache, KeyGoal(id), func(ctx context.Context) (core.Goal, error) {
		return s.api.GetGoal(ctx, id)
	})
}

func (s *FinanceService) GoalProgress(ctx context.Context, id int64) (core.GoalProgress, error) {
	return cache.Get(ctx, s.cache, KeyGoalProgress(id), func(ctx context.Context) (core.GoalProgress, error) {
		return s.api.GetGoalProgress(ctx, id)
	})
}

func (s *FinanceService) CreateGoal(ctx context.Context, req core.CreateGoalRequest) (core.Goal, error) {
	if err := req.Validate(); err != nil {
		return core.Goal{}, err
	}
	g, err := s.api.CreateGoal(ctx, req)
	if err != nil {
		return core.Goal{}, err
	}
	s.invalidate(ctx, log.OpCreate, "goal", goalCreatedKeys()...)
	return g, nil
}

func (s *FinanceService) UpdateGoal(ctx context.Context, id int64, patch core.GoalPatch) (core.Goal, error) {
	g, err := s.api.UpdateGoal(ctx, id, patch)
	if err != nil {
		return core.Goal{}, err
	}
	s.invalidate(ctx, log.OpUpdate, "goal", goalUpdatedKeys(id)...)
	return g, nil
}

func (s *FinanceService) UpdateGoalProgress(ctx context.Context, id int64, req core.UpdateGoalProgressRequest) (core.Goal, error) {
	if err := req.Validate(); err != nil {
		return core.Goal{}, err
	}
	g, err := s.api.UpdateGoalProgress(ctx, id, req)
	if err != nil {
		return core.Goal{}, err
	}
	s.invalidate(ctx, log.OpUpdate, "goal", goalUpdatedKeys(id)...)
	return g, nil
}

func (s *FinanceService) DeleteGoal(ctx context.Context, id int64) error {
	if err := s.api.DeleteGoal(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, log.OpDelete, "goal", goalClosedKeys()...)
	return nil
}

func (s *FinanceService) CompleteGoal(ctx context.Context, id int64) (core.Goal, error) {
	g, err := s.api.CompleteGoal(ctx, id)
	if err != nil {
		return core.Goal{}, err
	}
	s.invalidate(ctx, log.OpUpdate, "goal", goalClosedKeys()...)
	return g, nil
}

func (s *FinanceService) CancelGoal(ctx context.Context, id int64) (core.Goal, error) {
	g, err := s.api.CancelGoal(ctx, id)
	if err != nil {
		return core.Goal{}, err
	}
	s.invalidate(ctx, log.OpUpdate, "goal", goalCancelledKeys()...)
	return g, nil
}

// Dashboard analytics served by the backend

func (s *FinanceService) DashboardSummary(ctx context.Context, period string) (core.DashboardSummary, error) {
	return cache.Get(ctx, s.cache, KeyDashboardSummary(period), s.summaryFetch(period))
}

func (s *FinanceService) summaryFetch(period string) func(context.Context) (core.DashboardSummary, error) {
	return func(ctx context.Context) (core.DashboardSummary, error) {
		return s.api.DashboardSummary(ctx, period)
	}
}

// DashboardSummaryFetcher is the untyped fetcher for pollers and subscribers.
func (s *FinanceService) DashboardSummaryFetcher(period string) cache.Fetcher {
	return cache.Typed(s.summaryFetch(period))
}

func (s *FinanceService) CategoryStatistics(ctx context.Context, period string, typ core.TransactionType) ([]core.CategoryStatistics, error) {
	return cache.Get(ctx, s.cache, KeyCategoryStatistics(period, typ), func(ctx context.Context) ([]core.CategoryStatistics, error) {
		return s.api.CategoryStatistics(ctx, period, typ)
	})
}

func (s *FinanceService) MonthlyTrends(ctx context.Context, months int) ([]core.MonthlyTrend, error) {
	return cache.Get(ctx, s.cache, KeyMonthlyTrends(months), func(ctx context.Context) ([]core.MonthlyTrend, error) {
		return s.api.MonthlyTrends(ctx, months)
	})
}

func (s *FinanceService) PeriodComparison(ctx context.Context, cs, ce, ps, pe core.Date) (core.PeriodComparison, error) {
	if ce.Before(cs.Time) || pe.Before(ps.Time) {
		return core.PeriodComparison{}, core.ErrInvalidDateRange
	}
	return cache.Get(ctx, s.cache, KeyPeriodComparison(cs, ce, ps, pe), func(ctx context.Context) (core.PeriodComparison, error) {
		return s.api.PeriodComparison(ctx, cs, ce, ps, pe)
	})
}

// WatchDashboardSummary calls fn with the summary now and after every
// refetch of it, until the returned func is called.
func (s *FinanceService) WatchDashboardSummary(period string, fn func(core.DashboardSummary, error)) (stop func()) {
	return s.cache.Subscribe(KeyDashboardSummary(period), s.DashboardSummaryFetcher(period), func(r cache.Result) {
		summary, _ := r.Data.(core.DashboardSummary)
		fn(summary, r.Err)
	})
}

// Client-side views

// DashboardView is the dashboard page computed from the raw lists.
type DashboardView struct {
	Overview      aggregate.Overview
	TopCategories []aggregate.CategoryTotal
	Recent        []core.Transaction
	Accounts      []core.Account
	Monthly       []aggregate.MonthBucket
	Savings       []aggregate.SavingsPoint
}

const recentCount = 5

// Dashboard loads accounts, transactions and budgets concurrently and
// aggregates them for now's month.
func (s *FinanceService) Dashboard(ctx context.Context, now time.Time) (DashboardView, error) {
	var (
		accounts []core.Account
		txs      []core.Transaction
		budgets  []core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = s.Accounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.Transactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.Budgets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardView{}, fmt.Errorf("load dashboard: %w", err)
	}

	return DashboardView{
		Overview:      aggregate.BuildOverview(accounts, txs, budgets, now),
		TopCategories: aggregate.TopCategories(txs, aggregate.DashboardTopN),
		Recent:        aggregate.RecentTransactions(txs, recentCount),
		Accounts:      accounts,
		Monthly:       aggregate.MonthlyIncomeExpenses(txs, now),
		Savings:       aggregate.SavingsTrend(txs, now),
	}, nil
}

// Charts builds the chart report. Category names come from the category
// list when the backend did not embed them.
func (s *FinanceService) Charts(ctx context.Context, now time.Time) (aggregate.Report, error) {
	var (
		txs        []core.Transaction
		categories []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.Transactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.Categories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return aggregate.Report{}, fmt.Errorf("load charts: %w", err)
	}
	return aggregate.BuildReport(txs, now, s.currency, aggregate.WithCategories(categories)), nil
}
