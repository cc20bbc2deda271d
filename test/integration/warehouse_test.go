//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/sparkify/dwh/internal/queries"
	"github.com/sparkify/dwh/internal/warehouse"
)

func TestResetSchemaCreatesEmptyTables(t *testing.T) {
	conn, db := openWarehouse(t)
	qs := fixtureQueries(t)
	resetSchema(t, conn, qs)

	if n := countTables(t, db); n != 7 {
		t.Fatalf("tables = %d, want 7", n)
	}

	counts, err := conn.RowCounts(context.Background(), queries.TableNames())
	if err != nil {
		t.Fatalf("RowCounts: %v", err)
	}
	for table, n := range counts {
		if n != 0 {
			t.Errorf("%s has %d rows, want 0", table, n)
		}
	}
}

func TestCreateAllTwice(t *testing.T) {
	conn, db := openWarehouse(t)
	qs := fixtureQueries(t)
	resetSchema(t, conn, qs)

	if err := warehouse.NewMigrator(conn).CreateAll(context.Background(), qs.Create); err != nil {
		t.Fatalf("second CreateAll: %v", err)
	}
	if n := countTables(t, db); n != 7 {
		t.Errorf("tables = %d, want 7", n)
	}
}

func TestTransformFactBeforeDimensionsFails(t *testing.T) {
	conn, _ := openWarehouse(t)
	qs := fixtureQueries(t)
	resetSchema(t, conn, qs)
	ctx := context.Background()

	loader := warehouse.NewLoader(conn)
	if err := loader.LoadStaging(ctx, qs.Copy); err != nil {
		t.Fatalf("LoadStaging: %v", err)
	}

	fact := qs.Transform[len(qs.Transform)-1]
	if fact.Name != "songplay_insert" {
		t.Fatalf("last transform = %s, want songplay_insert", fact.Name)
	}
	reordered := append([]queries.Statement{fact}, qs.Transform[:len(qs.Transform)-1]...)

	err := loader.Transform(ctx, reordered)
	var stmtErr *warehouse.StatementError
	if !errors.As(err, &stmtErr) {
		t.Fatalf("Transform() error = %v, want StatementError", err)
	}
	if stmtErr.Name != "songplay_insert" || stmtErr.Index != 0 {
		t.Errorf("failed at %s (%d), want songplay_insert (0)", stmtErr.Name, stmtErr.Index)
	}
	if stmtErr.SQLState != "23503" {
		t.Errorf("SQLState = %q, want 23503 (foreign key violation)", stmtErr.SQLState)
	}
}

func TestTransformInOrder(t *testing.T) {
	conn, db := openWarehouse(t)
	qs := fixtureQueries(t)
	resetSchema(t, conn, qs)
	ctx := context.Background()

	loader := warehouse.NewLoader(conn)
	if err := loader.LoadStaging(ctx, qs.Copy); err != nil {
		t.Fatalf("LoadStaging: %v", err)
	}
	if err := loader.Transform(ctx, qs.Transform); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if n := mustScalar(t, db, "SELECT count(*) FROM dimUser"); n != 3 {
		t.Errorf("dimUser rows = %d, want 3", n)
	}

	latest := map[int]string{8: "paid", 26: "free", 2: "paid"}
	for id, want := range latest {
		var level string
		if err := db.QueryRow("SELECT level FROM dimUser WHERE user_id = $1", id).Scan(&level); err != nil {
			t.Fatalf("user %d: %v", id, err)
		}
		if level != want {
			t.Errorf("user %d level = %q, want %q (most recent)", id, level, want)
		}
	}

	if n := mustScalar(t, db, "SELECT count(*) FROM factSongplay"); n != 5 {
		t.Errorf("factSongplay rows = %d, want 5 NextSong events", n)
	}
	if n := mustScalar(t, db, "SELECT count(*) FROM factSongplay WHERE song_id IS NOT NULL"); n != 1 {
		t.Errorf("matched songplays = %d, want 1", n)
	}
	if n := mustScalar(t, db, "SELECT count(*) FROM dimTime"); n != 6 {
		t.Errorf("dimTime rows = %d, want 6", n)
	}
}

func TestFailedStatementKeepsEarlierCommits(t *testing.T) {
	conn, db := openWarehouse(t)
	qs := fixtureQueries(t)
	resetSchema(t, conn, qs)
	ctx := context.Background()

	stmts := []queries.Statement{
		qs.Copy[0],
		{Name: "broken", SQL: "INSERT INTO no_such_table VALUES (1)"},
		qs.Copy[1],
	}
	err := warehouse.NewLoader(conn).LoadStaging(ctx, stmts)
	var stmtErr *warehouse.StatementError
	if !errors.As(err, &stmtErr) || stmtErr.Index != 1 {
		t.Fatalf("LoadStaging() error = %v, want StatementError at index 1", err)
	}

	if n := mustScalar(t, db, "SELECT count(*) FROM staging_events"); n != 6 {
		t.Errorf("staging_events rows = %d, want 6 committed before the failure", n)
	}
	if n := mustScalar(t, db, "SELECT count(*) FROM staging_songs"); n != 0 {
		t.Errorf("staging_songs rows = %d, want 0 after the failure", n)
	}
}
