package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"finclient/internal/aggregate"
	"finclient/internal/backend"
	"finclient/internal/core"
)

var errUsage = errors.New("invalid usage")

type app struct {
	core         *backend.Result
	out          io.Writer
	now          func() time.Time
	period       string
	readPassword func(prompt string) (string, error)
	// timeout bounds the backend work of one command. Time spent at a
	// prompt does not count.
	timeout time.Duration
}

type command struct {
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"login":              {"Sign in and store the session", (*app).login},
	"register":           {"Create an account and sign in", (*app).register},
	"logout":             {"Forget the stored session", (*app).logout},
	"whoami":             {"Show the signed-in user", (*app).whoami},
	"accounts":           {"List accounts", (*app).accounts},
	"transactions":       {"List transactions", (*app).transactions},
	"add-transaction":    {"Record a transaction", (*app).addTransaction},
	"delete-transaction": {"Delete a transaction by id", (*app).deleteTransaction},
	"budgets":            {"List budgets", (*app).budgets},
	"categories":         {"List categories", (*app).categories},
	"goals":              {"List goals", (*app).goals},
	"goal-progress":      {"Show a goal's progress", (*app).goalProgress},
	"complete-goal":      {"Mark a goal completed", (*app).completeGoal},
	"cancel-goal":        {"Cancel a goal", (*app).cancelGoal},
	"summary":            {"Show the backend dashboard summary", (*app).summary},
	"dashboard":          {"Show the dashboard computed from raw data", (*app).dashboard},
	"charts":             {"Show chart series, optionally exporting them", (*app).charts},
}

// prompting commands may wait on the terminal and start their own deadline.
var prompting = map[string]bool{"login": true, "register": true}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "finclient - personal finance client")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  finclient <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].summary)
	}
	tw.Flush()
	fmt.Fprintln(w, "\nRun 'finclient <command> -h' for more information on a command.")
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	if !prompting[args[0]] {
		var cancel context.CancelFunc
		ctx, cancel = a.withTimeout(ctx)
		defer cancel()
	}
	return cmd.run(a, ctx, args[1:])
}

func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func (a *app) money(m core.Money) string {
	return core.FormatMoney(m, a.core.Finance.Currency())
}

func idArg(fs *flag.FlagSet) (int64, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("%w: %s takes exactly one id", errUsage, fs.Name())
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, fs.Arg(0))
	}
	return id, nil
}

func (a *app) password(given string) (string, error) {
	if given != "" {
		return given, nil
	}
	return a.readPassword("Password: ")
}

// Auth

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	user := fs.String("user", "", "username or email")
	pass := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := a.password(*pass)
	if err != nil {
		return err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	u, err := a.core.Session.Login(ctx, *user, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", u.Username)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlags("register")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email address")
	first := fs.String("first-name", "", "first name")
	last := fs.String("last-name", "", "last name")
	pass := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := a.password(*pass)
	if err != nil {
		return err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	u, err := a.core.Session.Register(ctx, core.RegisterRequest{
		Username:  *username,
		Email:     *email,
		Password:  password,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and signed in as %s\n", u.Username)
	return nil
}

func (a *app) logout(ctx context.Context, _ []string) error {
	if err := a.core.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) whoami(_ context.Context, _ []string) error {
	u, err := a.core.Session.User()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\n", u.Username, u.Email)
	if exp, err := a.core.Session.TokenExpiry(); err == nil {
		fmt.Fprintf(a.out, "Session expires %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

// Lists

func (a *app) accounts(ctx context.Context, _ []string) error {
	accounts, err := a.core.Finance.Accounts(ctx)
	if err != nil {
		return err
	}
	tw := a.table()
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tBALANCE")
	for _, acc := range accounts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", acc.ID, acc.Name, acc.Type, core.FormatMoney(acc.Balance, acc.Currency))
	}
	return tw.Flush()
}

func (a *app) transactions(ctx context.Context, args []string) error {
	fs := newFlags("transactions")
	limit := fs.Int("n", 0, "show only the n most recent (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	txs, err := a.core.Finance.Transactions(ctx)
	if err != nil {
		return err
	}
	n := len(txs)
	if *limit > 0 && *limit < n {
		n = *limit
	}
	tw := a.table()
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tDESCRIPTION")
	for _, t := range aggregate.RecentTransactions(txs, n) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Type, a.money(t.Amount), t.Description)
	}
	return tw.Flush()
}

func (a *app) budgets(ctx context.Context, _ []string) error {
	budgets, err := a.core.Finance.Budgets(ctx)
	if err != nil {
		return err
	}
	tw := a.table()
	fmt.Fprintln(tw, "ID\tNAME\tPERIOD\tSPENT\tAMOUNT\tUSED")
	for _, b := range budgets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.0f%%\n",
			b.ID, b.Name, b.Period, a.money(b.Spent), a.money(b.Amount), b.Spent.Percent(b.Amount))
	}
	return tw.Flush()
}

func (a *app) categories(ctx context.Context, _ []string) error {
	categories, err := a.core.Finance.Categories(ctx)
	if err != nil {
		return err
	}
	tw := a.table()
	fmt.Fprintln(tw, "ID\tNAME\tTYPE")
	for _, c := range categories {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Type)
	}
	return tw.Flush()
}

func (a *app) goals(ctx context.Context, args []string) error {
	fs := newFlags("goals")
	status := fs.String("status", "", "active or completed (all when empty)")
	priority := fs.String("priority", "", "LOW, MEDIUM or HIGH")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		goals []core.Goal
		err   error
	)
	switch {
	case *priority != "":
		goals, err = a.core.Finance.GoalsByPriority(ctx, core.GoalPriority(strings.ToUpper(*priority)))
	case *status == "active":
		goals, err = a.core.Finance.ActiveGoals(ctx)
	case *status == "completed":
		goals, err = a.core.Finance.CompletedGoals(ctx)
	case *status == "":
		goals, err = a.core.Finance.Goals(ctx)
	default:
		return fmt.Errorf("%w: unknown goal status %q", errUsage, *status)
	}
	if err != nil {
		return err
	}

	tw := a.table()
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPRIORITY\tSAVED\tTARGET\tBY")
	for _, g := range goals {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			g.ID, g.Name, g.Status, g.Priority, a.money(g.CurrentAmount), a.money(g.TargetAmount), g.TargetDate)
	}
	return tw.Flush()
}

// Mutations

func (a *app) addTransaction(ctx context.Context, args []string) error {
	fs := newFlags("add-transaction")
	amount := fs.String("amount", "", "positive amount, e.g. 12500 or 12,50")
	typ := fs.String("type", string(core.Expense), "INCOME, EXPENSE or TRANSFER")
	desc := fs.String("desc", "", "description")
	date := fs.String("date", "", "YYYY-MM-DD (today when empty)")
	account := fs.Int64("account", 0, "account id")
	category := fs.Int64("category", 0, "category id (none when 0)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	amt, err := core.ParseMoney(*amount)
	if err != nil {
		return err
	}
	d := core.Date{Time: a.now()}
	if *date != "" {
		if d, err = core.ParseDate(*date); err != nil {
			return err
		}
	}
	req := core.CreateTransactionRequest{
		Amount:      amt,
		Type:        core.TransactionType(strings.ToUpper(*typ)),
		Description: *desc,
		Date:        core.NewDate(d.Year(), int(d.Month()), d.Day()),
		AccountID:   *account,
	}
	if *category > 0 {
		req.CategoryID = core.ID(*category)
	}

	t, err := a.core.Finance.CreateTransaction(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created transaction %d\n", t.ID)
	return nil
}

func (a *app) deleteTransaction(ctx context.Context, args []string) error {
	fs := newFlags("delete-transaction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs)
	if err != nil {
		return err
	}
	if err := a.core.Finance.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted transaction %d\n", id)
	return nil
}

func (a *app) goalProgress(ctx context.Context, args []string) error {
	fs := newFlags("goal-progress")
	add := fs.String("add", "", "record this amount towards the goal first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs)
	if err != nil {
		return err
	}

	if *add != "" {
		amt, err := core.ParseMoney(*add)
		if err != nil {
			return err
		}
		if _, err := a.core.Finance.UpdateGoalProgress(ctx, id, core.UpdateGoalProgressRequest{Amount: amt}); err != nil {
			return err
		}
	}

	p, err := a.core.Finance.GoalProgress(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Goal %d: %.1f%% (%s)\n", id, p.Percentage, p.Status)
	fmt.Fprintf(a.out, "Remaining: %s, %d days left\n", a.money(p.RemainingAmount), p.DaysRemaining)
	fmt.Fprintf(a.out, "Monthly savings needed: %s\n", a.money(p.RequiredMonthlySavings))
	return nil
}

func (a *app) completeGoal(ctx context.Context, args []string) error {
	return a.closeGoal(ctx, "complete-goal", args, a.core.Finance.CompleteGoal)
}

func (a *app) cancelGoal(ctx context.Context, args []string) error {
	return a.closeGoal(ctx, "cancel-goal", args, a.core.Finance.CancelGoal)
}

func (a *app) closeGoal(ctx context.Context, name string, args []string, do func(context.Context, int64) (core.Goal, error)) error {
	fs := newFlags(name)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs)
	if err != nil {
		return err
	}
	g, err := do(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Goal %d is now %s\n", g.ID, g.Status)
	return nil
}

// Dashboard

func (a *app) summary(ctx context.Context, args []string) error {
	fs := newFlags("summary")
	period := fs.String("period", a.period, "period understood by the backend")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := a.core.Finance.DashboardSummary(ctx, *period)
	if err != nil {
		return err
	}
	tw := a.table()
	fmt.Fprintf(tw, "Balance\t%s\n", a.money(s.TotalBalance))
	fmt.Fprintf(tw, "Income\t%s\n", a.money(s.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\n", a.money(s.TotalExpenses))
	fmt.Fprintf(tw, "Net savings\t%s\n", a.money(s.NetSavings))
	fmt.Fprintf(tw, "Savings rate\t%.1f%%\n", s.SavingsRate)
	return tw.Flush()
}

func (a *app) dashboard(ctx context.Context, _ []string) error {
	view, err := a.core.Finance.Dashboard(ctx, a.now())
	if err != nil {
		return err
	}

	ov := view.Overview
	tw := a.table()
	fmt.Fprintf(tw, "Balance\t%s\n", a.money(ov.TotalBalance))
	fmt.Fprintf(tw, "Income this month\t%s\n", a.money(ov.MonthIncome))
	fmt.Fprintf(tw, "Expenses this month\t%s\n", a.money(ov.MonthExpenses))
	fmt.Fprintf(tw, "Net savings\t%s\n", a.money(ov.NetSavings))
	fmt.Fprintf(tw, "Savings rate\t%.1f%%\n", ov.SavingsRate)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\nTop categories")
	tw = a.table()
	for _, c := range view.TopCategories {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\n", categoryName(c), c.Type, a.money(c.Amount), c.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\nRecent transactions")
	tw = a.table()
	for _, t := range view.Recent {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", t.Date, t.Type, a.money(t.Amount), t.Description)
	}
	return tw.Flush()
}

func (a *app) charts(ctx context.Context, args []string) error {
	fs := newFlags("charts")
	export := fs.Bool("export", false, "also write the report to the configured sheet")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := a.core.Finance.Charts(ctx, a.now())
	if err != nil {
		return err
	}

	tw := a.table()
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSES\tSAVINGS\tCUMULATIVE")
	for _, p := range report.Savings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.Label, a.money(p.Income), a.money(p.Expenses), a.money(p.Savings), a.money(p.Cumulative))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out)
	tw = a.table()
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tSHARE")
	for i, share := range aggregate.Share(report.Categories) {
		c := report.Categories[i]
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", categoryName(c), a.money(c.Amount), share)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if *export {
		if err := a.core.Reports.WriteReport(ctx, report); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "\nReport exported")
	}
	return nil
}

func categoryName(c aggregate.CategoryTotal) string {
	if c.Name != "" {
		return c.Name
	}
	return "#" + strconv.FormatInt(c.CategoryID, 10)
}
