//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/refinery/internal/platform/db"
	"github.com/ehr/refinery/migrations"
)

// globalPool is the shared connection pool, opened once in TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		fmt.Fprintln(os.Stderr, "TEST_DATABASE_URL not set; skipping integration tests")
		os.Exit(0)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: url, MaxConns: 8, ApplicationName: "refinery-integration"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	globalPool = pool

	code := m.Run()
	pool.Close()
	os.Exit(code)
}

// schemas is a migrated staging/refined pair private to one test.
type schemas struct {
	Staging string
	Refined string
}

func newSchemas(t *testing.T) schemas {
	t.Helper()
	ctx := context.Background()
	suffix := strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	s := schemas{Staging: "it_staging_" + suffix, Refined: "it_refined_" + suffix}

	for schema, dir := range map[string]string{s.Staging: migrations.StagingDir, s.Refined: migrations.RefinedDir} {
		if _, err := db.NewMigrator(globalPool, migrations.FS, dir).Up(ctx, schema); err != nil {
			t.Fatalf("migrate %s: %v", schema, err)
		}
	}

	t.Cleanup(func() {
		for _, schema := range []string{s.Staging, s.Refined} {
			if _, err := globalPool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
				t.Logf("warning: failed to drop schema %s: %v", schema, err)
			}
		}
	})
	return s
}

func count(t *testing.T, schema, table, where string) int {
	t.Helper()
	q := "SELECT count(*) FROM " + db.Table(schema, table)
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	if err := globalPool.QueryRow(context.Background(), q).Scan(&n); err != nil {
		t.Fatalf("count %s.%s: %v", schema, table, err)
	}
	return n
}
