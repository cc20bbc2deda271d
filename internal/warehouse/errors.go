package warehouse

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// StatementError reports the statement that failed and the database's
// SQLSTATE, if it sent one.
type StatementError struct {
	Phase    string
	Index    int
	Name     string
	SQLState string
	Err      error
}

func (e *StatementError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("%s statement %d (%s) failed [SQLSTATE %s]: %v", e.Phase, e.Index, e.Name, e.SQLState, e.Err)
	}
	return fmt.Sprintf("%s statement %d (%s) failed: %v", e.Phase, e.Index, e.Name, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// ConnectionError reports a warehouse that could not be reached.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to warehouse at %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
