//go:build integration

// Package containers starts throwaway infrastructure for integration tests.
// Each helper runs one container, waits for readiness, and registers cleanup
// on the test.
package containers

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"museion/internal/platform/postgres"
)

// NewPostgres starts a PostgreSQL container, applies the ledger schema, and
// returns an open connection pool.
func NewPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("museion"),
		tcpostgres.WithUsername("museion"),
		tcpostgres.WithPassword("museion"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applySchema(t, db)
	return db
}

// applySchema runs the migration statements one at a time; the pgx driver's
// extended protocol does not accept multi-statement scripts.
func applySchema(t *testing.T, db *sql.DB) {
	t.Helper()

	script, err := os.ReadFile(filepath.Join(moduleRoot(t), "migrations", "0001_init.sql"))
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	for _, stmt := range strings.Split(string(script), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to apply schema statement: %v\n%s", err, stmt)
		}
	}
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to locate module root")
	}
	// pkg/testutil/containers/postgres.go -> module root.
	return filepath.Dir(filepath.Dir(filepath.Dir(filepath.Dir(file))))
}
