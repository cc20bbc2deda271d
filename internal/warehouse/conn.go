package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/sparkify/dwh/internal/queries"
)

const connectTimeout = 30 * time.Second

// ConnConfig describes how to reach the warehouse database.
type ConnConfig struct {
	Driver   string // "postgres" (lib/pq) or "pgx"
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN renders the connection as a postgres:// URL.
func (c ConnConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Conn is a warehouse connection that runs statements one commit at a time.
type Conn struct {
	db     *sql.DB
	host   string
	logger *slog.Logger
}

// Open connects and pings the warehouse. Failures are *ConnectionError.
func Open(ctx context.Context, cfg ConnConfig, logger *slog.Logger) (*Conn, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sql.Open(driver, cfg.DSN())
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}

	c := NewConn(db, logger)
	c.host = cfg.Host
	c.logger.Info("connected to warehouse", "host", cfg.Host, "database", cfg.Database, "driver", driver)
	return c, nil
}

// NewConn wraps an open database handle.
func NewConn(db *sql.DB, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{db: db, logger: logger}
}

// Close releases the connection.
func (c *Conn) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("closing warehouse connection: %w", err)
	}
	return nil
}

// execEach runs stmts in order, committing after each one. It stops at the
// first failure; statements before it stay committed.
func (c *Conn) execEach(ctx context.Context, phase string, stmts []queries.Statement) error {
	for i, st := range stmts {
		start := time.Now()
		if err := c.execCommitted(ctx, st.SQL); err != nil {
			return &StatementError{Phase: phase, Index: i, Name: st.Name, SQLState: sqlState(err), Err: err}
		}
		c.logger.Info("statement committed", "phase", phase, "statement", st.Name, "elapsed", time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func (c *Conn) execCommitted(ctx context.Context, query string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RowCounts returns the number of rows in each table.
func (c *Conn) RowCounts(ctx context.Context, tables []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		var n int64
		query := "SELECT COUNT(*) FROM " + pq.QuoteIdentifier(strings.ToLower(table))
		if err := c.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting rows in %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
