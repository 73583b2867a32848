package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"txdash/internal/core"
	"txdash/internal/query"
)

// Dialect selects the SQL engine behind a SQLRepository.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

func (d Dialect) driverName() string {
	return string(d)
}

const transactionColumns = "product_id, title, price, description, category, date_of_sale, sold"

type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) a sqlite database file and
// applies the schema migrations.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return openRepository(DialectSQLite, dsn)
}

// NewMySQLRepository connects to MySQL and applies the schema migrations.
func NewMySQLRepository(dsn string) (*SQLRepository, error) {
	return openRepository(DialectMySQL, dsn)
}

func openRepository(dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if dialect == DialectMySQL {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{db: db, dialect: dialect}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Find implements Reader
func (r *SQLRepository) Find(ctx context.Context, f query.Filter, page query.Page) ([]core.Transaction, error) {
	where, args, err := whereClause(f)
	if err != nil {
		return nil, err
	}

	q := "SELECT " + transactionColumns + " FROM transactions" + where + " ORDER BY seq LIMIT ? OFFSET ?"
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0, page.Limit())
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Count implements Reader
func (r *SQLRepository) Count(ctx context.Context, f query.Filter) (int64, error) {
	where, args, err := whereClause(f)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// SumPrice implements Reader
func (r *SQLRepository) SumPrice(ctx context.Context, f query.Filter) (float64, error) {
	where, args, err := whereClause(f)
	if err != nil {
		return 0, err
	}

	var total sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, "SELECT SUM(price) FROM transactions"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum transaction prices: %w", err)
	}
	if !total.Valid {
		return 0, nil
	}
	return core.RoundAmount(total.Float64), nil
}

// CountByCategory implements Reader
func (r *SQLRepository) CountByCategory(ctx context.Context, f query.Filter) ([]core.CategoryCount, error) {
	where, args, err := whereClause(f)
	if err != nil {
		return nil, err
	}

	q := "SELECT category, COUNT(*) FROM transactions" + where + " GROUP BY category ORDER BY category"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("group transactions by category: %w", err)
	}
	defer rows.Close()

	out := make([]core.CategoryCount, 0)
	for rows.Next() {
		var cc core.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return out, nil
}

// InsertMany implements Writer
func (r *SQLRepository) InsertMany(ctx context.Context, txs []core.Transaction) (int, error) {
	return r.withTx(ctx, func(tx *sql.Tx) (int, error) {
		return insertAll(ctx, tx, txs)
	})
}

// Replace implements Writer
func (r *SQLRepository) Replace(ctx context.Context, txs []core.Transaction) (int, error) {
	return r.withTx(ctx, func(tx *sql.Tx) (int, error) {
		// DELETE rather than TRUNCATE: TRUNCATE commits implicitly on MySQL.
		res, err := tx.ExecContext(ctx, "DELETE FROM transactions")
		if err != nil {
			return 0, fmt.Errorf("clear transactions: %w", err)
		}
		removed, _ := res.RowsAffected()
		slog.InfoContext(ctx, "Cleared transactions before reseed", "removed", removed, "dialect", r.dialect)
		return insertAll(ctx, tx, txs)
	})
}

func (r *SQLRepository) withTx(ctx context.Context, fn func(*sql.Tx) (int, error)) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	n, err := fn(tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func insertAll(ctx context.Context, tx *sql.Tx, txs []core.Transaction) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (product_id, title, title_lc, price, price_text, description, description_lc, category, date_of_sale, sale_month, sold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txs {
		_, err := stmt.ExecContext(ctx,
			t.ProductID, t.Title, strings.ToLower(t.Title), t.Price, t.PriceText(),
			t.Description, strings.ToLower(t.Description), t.Category,
			t.DateOfSale.UTC().Format(time.RFC3339Nano), int(t.SaleMonth()), t.Sold,
		)
		if err != nil {
			return 0, fmt.Errorf("insert transaction %d (product %q): %w", i, t.ProductID, err)
		}
	}
	return len(txs), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t    core.Transaction
		date string
	)
	if err := row.Scan(&t.ProductID, &t.Title, &t.Price, &t.Description, &t.Category, &date, &t.Sold); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date of sale %q: %w", date, err)
	}
	t.DateOfSale = parsed
	return t, nil
}

// whereClause renders a filter as a WHERE fragment with positional arguments.
// Both supported dialects use "?" placeholders.
func whereClause(f query.Filter) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	for _, c := range f {
		switch c := c.(type) {
		case query.MonthClause:
			conds = append(conds, "sale_month = ?")
			args = append(args, int(c.Month))
		case query.SearchClause:
			if c.IsEmpty() {
				continue
			}
			// The *_lc columns are lowered in Go at insert time; SQL LOWER() is
			// ASCII-only on sqlite.
			pattern := "%" + escapeLike(strings.ToLower(c.Term)) + "%"
			conds = append(conds, "(title_lc LIKE ? ESCAPE '!' OR description_lc LIKE ? ESCAPE '!' OR price_text LIKE ? ESCAPE '!')")
			args = append(args, pattern, pattern, pattern)
		case query.SoldClause:
			conds = append(conds, "sold = ?")
			args = append(args, c.Sold)
		case query.PriceClause:
			conds = append(conds, "price >= ?")
			args = append(args, c.Min)
			if !c.Unbounded() {
				conds = append(conds, "price < ?")
				args = append(args, c.Max)
			}
		default:
			return "", nil, fmt.Errorf("unsupported clause %T", c)
		}
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
