// Package postgrestest starts a throw-away PostgreSQL for repository tests.
package postgrestest

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MarcGrol/marketplace/lib/mypostgres"
)

const integrationEnv = "MARKETPLACE_INTEGRATION"

// Start runs a migrated database in a container. The test is skipped unless MARKETPLACE_INTEGRATION=1.
func Start(t *testing.T) *sql.DB {
	t.Helper()

	if os.Getenv(integrationEnv) != "1" {
		t.Skipf("set %s=1 to run tests against postgres", integrationEnv)
	}

	c := context.Background()

	pgContainer, err := postgres.Run(c,
		"postgres:16-alpine",
		postgres.WithDatabase("marketplace"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(c); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(c, "sslmode=disable")
	require.NoError(t, err)

	db, cleanup, err := mypostgres.Open(c, connStr)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	err = mypostgres.Migrate(db)
	require.NoError(t, err)

	return db
}
