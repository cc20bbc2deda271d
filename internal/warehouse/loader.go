package warehouse

import (
	"context"
	"log/slog"

	"github.com/sparkify/dwh/internal/queries"
)

// Loader stages raw data and transforms it into the star schema. It runs
// statements in the order given and does not reorder them.
type Loader struct {
	conn   *Conn
	logger *slog.Logger
}

// NewLoader creates a loader on conn.
func NewLoader(conn *Conn) *Loader {
	return &Loader{conn: conn, logger: conn.logger}
}

// LoadStaging runs the COPY statements.
func (l *Loader) LoadStaging(ctx context.Context, stmts []queries.Statement) error {
	l.logger.Info("loading staging tables", "statements", len(stmts))
	return l.conn.execEach(ctx, "copy", stmts)
}

// Transform runs the insert statements that fill the dimension and fact tables.
func (l *Loader) Transform(ctx context.Context, stmts []queries.Statement) error {
	l.logger.Info("transforming into star schema", "statements", len(stmts))
	return l.conn.execEach(ctx, "transform", stmts)
}
