package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/MasterGowen/open-discussions/internal/config"
	"github.com/MasterGowen/open-discussions/internal/database"
)

// SetupDatabase opens the source database. The caller closes the returned
// handle.
func SetupDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, *database.Repository, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	return db, database.NewRepository(db), nil
}
