//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/iliyamo/school-event-seating/internal/database"
)

// MySQLContainer wraps a testcontainers MySQL instance with the seating
// schema applied.
type MySQLContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewMySQLContainer starts MySQL 8, connects and runs the migrations.  The
// container and the pool are released when the test finishes.
func NewMySQLContainer(t *testing.T) *MySQLContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.4",
		tcmysql.WithDatabase("seating"),
		tcmysql.WithUsername("seating"),
		tcmysql.WithPassword("seating"),
	)
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "parseTime=true", "loc=UTC", "charset=utf8mb4")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get mysql connection string: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open mysql: %v", err)
	}
	db.SetMaxOpenConns(50)

	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return &MySQLContainer{Container: container, DSN: dsn, DB: db}
}
