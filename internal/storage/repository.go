package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const driverName = "sqlite"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before opening the pool so every pooled connection sees the final schema
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(driverName, dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// dsn enables foreign keys and a busy timeout on every pooled connection.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withConn scopes one operation to a single pooled connection and always releases it.
func (r *SQLiteRepository) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// CreateUser stores a new user with an already hashed password.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	var user core.User
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, createUserSQL, username, passwordHash)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create user %q: %w", username, ErrDuplicate)
			}
			return fmt.Errorf("create user: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read user id: %w", err)
		}
		user, err = scanUser(conn.QueryRowContext(ctx, getUserByIDSQL, id))
		return err
	})
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// UserByUsername returns ErrNotFound when no such user exists.
func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (core.User, error) {
	var user core.User
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		user, err = scanUser(conn.QueryRowContext(ctx, getUserByUsernameSQL, username))
		return err
	})
	return user, err
}

// UserByID returns ErrNotFound when no such user exists.
func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	var user core.User
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		user, err = scanUser(conn.QueryRowContext(ctx, getUserByIDSQL, id))
		return err
	})
	return user, err
}

// AddTransaction inserts tx and returns it with the store-assigned id.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, createTransactionSQL,
			tx.UserID, string(tx.Type), tx.Amount, tx.Category, tx.Date.String())
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		tx.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read transaction id: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"user_id", tx.UserID,
		"type", tx.Type,
		"amount", tx.Amount,
		"category", tx.Category,
		"date", tx.Date.String())

	return tx, nil
}

// GetTransaction retrieves a single transaction by ID
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var tx core.Transaction
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		tx, err = scanTransaction(conn.QueryRowContext(ctx, getTransactionSQL, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("get transaction %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get transaction %d: %w", id, err)
		}
		return nil
	})
	return tx, err
}

// PeriodTotals sums income, expenses and savings of one user for one period.
func (r *SQLiteRepository) PeriodTotals(ctx context.Context, userID int64, period core.Period) (core.Totals, error) {
	var t core.Totals
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, periodTotalsSQL, userID, period.Key()).
			Scan(&t.Income, &t.Expenses, &t.Savings)
		if err != nil {
			return fmt.Errorf("sum period %s: %w", period.Key(), err)
		}
		return nil
	})
	return t, err
}

// LifetimeTotals returns all-time income and all-time expenses plus savings.
func (r *SQLiteRepository) LifetimeTotals(ctx context.Context, userID int64) (income, outflow float64, err error) {
	err = r.withConn(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, lifetimeTotalsSQL, userID).Scan(&income, &outflow); err != nil {
			return fmt.Errorf("sum lifetime totals: %w", err)
		}
		return nil
	})
	return income, outflow, err
}

// CategorySums returns expense sums per category for the period, largest first.
func (r *SQLiteRepository) CategorySums(ctx context.Context, userID int64, period core.Period) ([]core.CategoryAmount, error) {
	var out []core.CategoryAmount
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, categorySumsSQL, userID, period.Key())
		if err != nil {
			return fmt.Errorf("query category sums: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var ca core.CategoryAmount
			if err := rows.Scan(&ca.Name, &ca.Amount); err != nil {
				return fmt.Errorf("scan category sum: %w", err)
			}
			out = append(out, ca)
		}
		return rows.Err()
	})
	return out, err
}

// TransactionsInRange returns the user's transactions dated within [start, end],
// optionally restricted to one category, ordered by date then id.
func (r *SQLiteRepository) TransactionsInRange(ctx context.Context, userID int64, start, end core.Date, category string) ([]core.Transaction, error) {
	query := transactionsInRangeSQL
	args := []any{userID, start.String(), end.String()}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += transactionsInRangeOrderSQL

	var out []core.Transaction
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query transactions in range: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			tx, err := scanTransaction(rows)
			if err != nil {
				return fmt.Errorf("scan transaction: %w", err)
			}
			out = append(out, tx)
		}
		return rows.Err()
	})
	return out, err
}

// DailyTotals returns per-day sums for the period, ordered by date.
func (r *SQLiteRepository) DailyTotals(ctx context.Context, userID int64, period core.Period) ([]core.DailyTotals, error) {
	var out []core.DailyTotals
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, dailyTotalsSQL, userID, period.Key())
		if err != nil {
			return fmt.Errorf("query daily totals: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				raw string
				dt  core.DailyTotals
			)
			if err := rows.Scan(&raw, &dt.Income, &dt.Expenses, &dt.Savings); err != nil {
				return fmt.Errorf("scan daily totals: %w", err)
			}
			if dt.Date, err = core.ParseDate(raw); err != nil {
				return fmt.Errorf("parse stored date %q: %w", raw, err)
			}
			out = append(out, dt)
		}
		return rows.Err()
	})
	return out, err
}

// Currency returns the user's display currency, or ErrNotFound without a profile row.
func (r *SQLiteRepository) Currency(ctx context.Context, userID int64) (string, error) {
	var currency string
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, currencySQL, userID).Scan(&currency)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get currency: %w", err)
		}
		return nil
	})
	return currency, err
}

// GetProfile returns ErrNotFound when the user never saved a profile.
func (r *SQLiteRepository) GetProfile(ctx context.Context, userID int64) (core.Profile, error) {
	var p core.Profile
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, getProfileSQL, userID).
			Scan(&p.UserID, &p.FullName, &p.Email, &p.Phone, &p.Address, &p.Currency)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		return nil
	})
	return p, err
}

// UpsertProfile inserts or replaces the profile in a single statement.
func (r *SQLiteRepository) UpsertProfile(ctx context.Context, p core.Profile) error {
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, upsertProfileSQL,
			p.UserID, p.FullName, p.Email, p.Phone, p.Address, p.CurrencyOrDefault())
		if err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Profile updated", "user_id", p.UserID, "currency", p.CurrencyOrDefault())
	return nil
}

// PendingExport returns ids of transactions not yet exported. Rows with
// fewer failed attempts come first, then oldest first, so rows that keep
// failing cannot starve newer ones.
func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]int64, error) {
	var ids []int64
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, pendingExportSQL, limit)
		if err != nil {
			return fmt.Errorf("query pending export: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan pending id: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// ExportRef returns the recorded export reference, or "" while the
// transaction is still pending.
func (r *SQLiteRepository) ExportRef(ctx context.Context, id int64) (string, error) {
	var ref string
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, exportRefSQL, id).Scan(&ref)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("export ref %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("export ref %d: %w", id, err)
		}
		return nil
	})
	return ref, err
}

// MarkExported records where a transaction was exported to.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64, ref string) error {
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, markExportedSQL, ref, id)
		if err != nil {
			return fmt.Errorf("mark transaction exported: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("mark transaction %d exported: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction marked as exported", "id", id, "ref", ref)
	return nil
}

// RecordExportFailure counts a failed export attempt for id.
func (r *SQLiteRepository) RecordExportFailure(ctx context.Context, id int64) error {
	return r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, exportFailedSQL, id)
		if err != nil {
			return fmt.Errorf("record export failure: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("record export failure for %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		txType  string
		rawDate string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &txType, &tx.Amount, &tx.Category, &rawDate); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(txType)
	date, err := core.ParseDate(rawDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", rawDate, err)
	}
	tx.Date = date
	return tx, nil
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	if t, perr := time.Parse(time.RFC3339, created); perr == nil {
		u.CreatedAt = t
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
