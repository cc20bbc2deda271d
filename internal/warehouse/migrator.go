package warehouse

import (
	"context"
	"log/slog"

	"github.com/sparkify/dwh/internal/queries"
)

// Migrator drops and creates the warehouse schema.
type Migrator struct {
	conn   *Conn
	logger *slog.Logger
}

// NewMigrator creates a migrator on conn.
func NewMigrator(conn *Conn) *Migrator {
	return &Migrator{conn: conn, logger: conn.logger}
}

// DropAll runs the drop statements in order.
func (m *Migrator) DropAll(ctx context.Context, stmts []queries.Statement) error {
	m.logger.Info("dropping tables", "statements", len(stmts))
	return m.conn.execEach(ctx, "drop", stmts)
}

// CreateAll runs the create statements in order. Statements are expected
// to be CREATE TABLE IF NOT EXISTS so a rerun is harmless.
func (m *Migrator) CreateAll(ctx context.Context, stmts []queries.Statement) error {
	m.logger.Info("creating tables", "statements", len(stmts))
	return m.conn.execEach(ctx, "create", stmts)
}
