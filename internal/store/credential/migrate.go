package credential

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/rafaelcs/userhub/backend/migrations"
)

// RunMigrations applies the embedded credential-store migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
