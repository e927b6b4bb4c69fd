//go:build testcontainers
// +build testcontainers

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/storage/entity"
)

func stringPtr(s string) *string {
	return &s
}

func newPostgresStore(t *testing.T) entity.Store {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	store, err := entity.NewSQLEntityStore(&config.SQLEntityStrategy{
		Driver:      "postgres",
		DSN:         connStr,
		TablePrefix: stringPtr("itest"),
	})
	if err != nil {
		t.Fatalf("failed to create postgres entity store: %v", err)
	}

	return store
}

func newMySQLStore(t *testing.T) entity.Store {
	t.Helper()

	ctx := context.Background()

	mysqlContainer, err := mysql.Run(ctx,
		"mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("testuser"),
		mysql.WithPassword("testpass"),
	)
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}

	t.Cleanup(func() {
		if err := mysqlContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate mysql container: %v", err)
		}
	})

	connStr, err := mysqlContainer.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	store, err := entity.NewSQLEntityStore(&config.SQLEntityStrategy{
		Driver: "mysql",
		DSN:    connStr,
	})
	if err != nil {
		t.Fatalf("failed to create mysql entity store: %v", err)
	}

	return store
}

func TestPostgres_Entities(t *testing.T) {
	st := newState(t, baseConfig(t), nil, newPostgresStore(t))
	exerciseEntities(t, st)
}

func TestMySQL_Entities(t *testing.T) {
	st := newState(t, baseConfig(t), nil, newMySQLStore(t))
	exerciseEntities(t, st)
}
