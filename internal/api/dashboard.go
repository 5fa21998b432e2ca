package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"finclient/internal/core"
)

// DashboardSummary returns the backend summary, optionally for a named period.
func (c *Client) DashboardSummary(ctx context.Context, period string) (core.DashboardSummary, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	return call[core.DashboardSummary](ctx, c, http.MethodGet, "/dashboard/summary", q, nil)
}

// CategoryStatistics returns per-category totals. Empty filters are omitted.
func (c *Client) CategoryStatistics(ctx context.Context, period string, typ core.TransactionType) ([]core.CategoryStatistics, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	if typ != "" {
		q.Set("type", string(typ))
	}
	return list[core.CategoryStatistics](ctx, c, "/dashboard/category-statistics", q)
}

// MonthlyTrends returns server-side monthly totals; months <= 0 uses the backend default.
func (c *Client) MonthlyTrends(ctx context.Context, months int) ([]core.MonthlyTrend, error) {
	q := url.Values{}
	if months > 0 {
		q.Set("months", strconv.Itoa(months))
	}
	return list[core.MonthlyTrend](ctx, c, "/dashboard/monthly-trends", q)
}

// PeriodComparison compares two date ranges.
func (c *Client) PeriodComparison(ctx context.Context, currentStart, currentEnd, previousStart, previousEnd core.Date) (core.PeriodComparison, error) {
	q := url.Values{}
	q.Set("currentStart", currentStart.String())
	q.Set("currentEnd", currentEnd.String())
	q.Set("previousStart", previousStart.String())
	q.Set("previousEnd", previousEnd.String())
	return call[core.PeriodComparison](ctx, c, http.MethodGet, "/dashboard/period-comparison", q, nil)
}
