//go:build integration

package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sparkify/dwh/internal/logging"
	"github.com/sparkify/dwh/internal/queries"
	"github.com/sparkify/dwh/internal/warehouse"
)

func pgConfig(t *testing.T) warehouse.ConnConfig {
	t.Helper()
	port, err := strconv.Atoi(envOrDefault("DWH_TEST_PG_PORT", "25432"))
	if err != nil {
		t.Fatalf("DWH_TEST_PG_PORT: %v", err)
	}
	return warehouse.ConnConfig{
		Driver:   envOrDefault("DWH_TEST_PG_DRIVER", "postgres"),
		Host:     envOrDefault("DWH_TEST_PG_HOST", "localhost"),
		Port:     port,
		Database: envOrDefault("DWH_TEST_PG_DATABASE", "dwh_test"),
		User:     envOrDefault("DWH_TEST_PG_USER", "postgres"),
		Password: envOrDefault("DWH_TEST_PG_PASSWORD", "postgres"),
		SSLMode:  "disable",
	}
}

func skipIfNoPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("DWH_TEST_PG_HOST") == "" && os.Getenv("DWH_TEST_PG_PORT") == "" {
		t.Skip("skipping: DWH_TEST_PG_HOST/PORT not set")
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// openWarehouse returns a connection for the code under test and a plain
// handle for assertions.
func openWarehouse(t *testing.T) (*warehouse.Conn, *sql.DB) {
	t.Helper()
	skipIfNoPostgres(t)
	cfg := pgConfig(t)

	conn, err := warehouse.Open(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return conn, db
}

func fixtureQueries(t *testing.T) *queries.QuerySet {
	t.Helper()
	qs, err := queries.LoadFile(filepath.Join("testdata", "postgres_queries.yaml"), queries.CopyParams{})
	if err != nil {
		t.Fatalf("loading fixture queries: %v", err)
	}
	return qs
}

// resetSchema drops and recreates every table.
func resetSchema(t *testing.T, conn *warehouse.Conn, qs *queries.QuerySet) {
	t.Helper()
	ctx := context.Background()
	m := warehouse.NewMigrator(conn)
	if err := m.DropAll(ctx, qs.Drop); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if err := m.CreateAll(ctx, qs.Create); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
}

func countTables(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT count(*) FROM information_schema.tables
WHERE table_schema = current_schema()
  AND table_name IN ('staging_events', 'staging_songs', 'factsongplay', 'dimuser', 'dimsong', 'dimartist', 'dimtime')`).Scan(&n)
	if err != nil {
		t.Fatalf("counting tables: %v", err)
	}
	return n
}

func mustScalar(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}
