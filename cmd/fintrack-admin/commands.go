package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

var errMissingCommand = errors.New("missing command")

type command func(ctx context.Context, args []string, out io.Writer, logger *applog.Logger) error

var commands = map[string]command{
	"register":  cmdRegister,
	"seed":      cmdSeed,
	"dashboard": cmdDashboard,
	"stats":     cmdStats,
	"chart":     cmdChart,
	"statement": cmdStatement,
	"migrate":   cmdMigrate,
}

// openBackend builds the same service graph the server uses so cache
// invalidation and event publishing behave identically.
func openBackend(ctx context.Context, logger *applog.Logger) (*backend.Backend, error) {
	cfg := cli.LoadAndValidateConfig(logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.Build(ctx, bcfg)
}

func userID(ctx context.Context, b *backend.Backend, username string) (int64, error) {
	if username == "" {
		return 0, errors.New("-user is required")
	}
	u, err := b.Store.UserByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("look up user %q: %w", username, err)
	}
	return u.ID, nil
}

func monthFlag(fs *flag.FlagSet) *string {
	return fs.String("month", core.CurrentPeriod(time.Now()).Key(), "month as YYYY-MM")
}

func rangeFlags(fs *flag.FlagSet) (start, end, category *string) {
	start = fs.String("start", "", "first day, YYYY-MM-DD (required)")
	end = fs.String("end", "", "last day, YYYY-MM-DD (required)")
	category = fs.String("category", "", "only this category")
	return
}

func parseRangeFlags(start, end string) (core.Date, core.Date, error) {
	s, err := core.ParseDate(start)
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("-start: %w", err)
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("-end: %w", err)
	}
	return s, e, nil
}

func cmdRegister(ctx context.Context, args []string, out io.Writer, logger *applog.Logger) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("user", "", "username")
	password := fs.String("password", "", "password, at least 8 characters")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b, err := openBackend(ctx, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	u, err := b.Accounts.Register(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s (id %d)\n", u.Username, u.ID)
	return nil
}

func cmdSeed(ctx context.Context, args []string, out io.Writer, logger *applog.Logger) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	username := fs.String("user", "", "existing username")
	month := monthFlag(fs)
	count := fs.Int("count", 20, "number of expense transactions")
	seed := fs.Int64("seed", 0, "random seed, 0 for a random one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	period, err := core.ParsePeriod(*month)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	uid, err := userID(ctx, b, *username)
	if err != nil {
		return err
	}

	txs := demoTransactions(gofakeit.New(*seed), uid, period, *count)
	for _, tx := range txs {
		if _, err := b.Transactions.Record(ctx, tx); err != nil {
			return fmt.Errorf("record %s %s: %w", tx.Type, tx.Category, err)
		}
	}
	logger.InfoContext(ctx, "Seeded demo month",
		applog.FieldUserID, uid,
		applog.FieldPeriod, period.Key(),
		"transactions", len(txs))
	fmt.Fprintf(out, "seeded %d transactions for %s\n", len(txs), period.Label())
	return nil
}

var demoCategories = []string{"Rent", "Groceries", "Transport", "Dining", "Utilities", "Health", "Entertainment", "Shopping"}

// demoTransactions builds one salary, one savings deposit and count expenses
// spread over the days of period.
func demoTransactions(f *gofakeit.Faker, userID int64, period core.Period, count int) []core.Transaction {
	last := period.Last().Day()
	day := func() core.Date {
		return core.NewDate(period.Year, period.Month, f.Number(1, last))
	}

	salary := f.Price(2000, 6000)
	txs := []core.Transaction{
		{UserID: userID, Type: core.Income, Amount: salary, Category: "Salary", Date: period.First()},
		{UserID: userID, Type: core.Savings, Amount: f.Price(100, salary/5), Category: "Emergency fund", Date: day()},
	}
	for i := 0; i < count; i++ {
		txs = append(txs, core.Transaction{
			UserID:   userID,
			Type:     core.Expense,
			Amount:   f.Price(5, 250),
			Category: f.RandomString(demoCategories),
			Date:     day(),
		})
	}
	return txs
}

func cmdDashboard(ctx context.Context, args []string, out io.Writer, logger *applog.Logger) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	username := fs.String("user", "", "username")
	month := monthFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	period, err := core.ParsePeriod(*month)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	uid, err := userID(ctx, b, *username)
	if err != nil {
		return err
	}
	d := b.Dashboards.Dashboard(ctx, uid, period)
	report.WriteSummaryTable(out, d.Summary, d.Currency, d.Advice)
	return nil
}

func cmdStats(ctx context.Context, args []string, out io.Writer, logger *applog.Logger) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	username := fs.String("user", "", "username")
	start, end, category := rangeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, e, err := parseRangeFlags(*start, *end)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	uid, err := userID(ctx, b, *username)
	if err != nil {
		return err
	}
	view, err := b.Reports.Statistics(ctx, uid, s, e, *category)
	if err != nil {
		return err
	}
	report.WriteRangeTable(out, view.Transactions, view.Totals, view.Currency)
	return nil
}

func cmdChart(ctx context.Context, args []string, out io.Writer, logger *applog.Logger) error {
	fs := flag.NewFlagSet("chart", flag.ContinueOnError)
	username := fs.String("user", "", "username")
	month := monthFlag(fs)
	path := fs.String("out", "chart.png", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	period, err := core.ParsePeriod(*month)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	uid, err := userID(ctx, b, *username)
	if err != nil {
		return err
	}
	return writeFile(*path, out, func(w io.Writer) error {
		return b.Reports.Chart(ctx, w, uid, period)
	})
}

func cmdStatement(ctx context.Context, args []string, out io.Writer, logger *applog.Logger) error {
	fs := flag.NewFlagSet("statement", flag.ContinueOnError)
	username := fs.String("user", "", "username")
	start, end, category := rangeFlags(fs)
	path := fs.String("out", "statement.pdf", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, e, err := parseRangeFlags(*start, *end)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	uid, err := userID(ctx, b, *username)
	if err != nil {
		return err
	}
	return writeFile(*path, out, func(w io.Writer) error {
		return b.Reports.WriteStatementPDF(ctx, w, uid, s, e, *category)
	})
}

func cmdMigrate(ctx context.Context, args []string, out io.Writer, logger *applog.Logger) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", os.Getenv("SQLITE_DB_PATH"), "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New("-db or SQLITE_DB_PATH is required")
	}

	if err := storage.RunMigrations(*dbPath); err != nil {
		return err
	}
	version, dirty, err := storage.MigrationVersion(*dbPath)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Migrations applied", "db_path", *dbPath, "version", version)
	fmt.Fprintf(out, "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

// writeFile renders into path, removing the partial file when render fails.
func writeFile(path string, out io.Writer, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}
