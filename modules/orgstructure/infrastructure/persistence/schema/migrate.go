package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Status Direction = "status"
)

// Migrate applies the embedded migrations to db. tableName overrides goose's version table.
func Migrate(ctx context.Context, db *sql.DB, direction Direction, tableName string) error {
	goose.SetBaseFS(Migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if tableName != "" {
		goose.SetTableName(tableName)
	}

	switch direction {
	case Up:
		return goose.UpContext(ctx, db, MigrationsDir)
	case Down:
		return goose.DownContext(ctx, db, MigrationsDir)
	case Status:
		return goose.StatusContext(ctx, db, MigrationsDir)
	default:
		return fmt.Errorf("unknown migration direction %q (expected up|down|status)", direction)
	}
}
