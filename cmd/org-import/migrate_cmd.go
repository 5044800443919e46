package main

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/iota-uz/org-import/modules/orgstructure/infrastructure/persistence/schema"
)

func newMigrateCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <up|down|status>",
		Short:     "Apply, revert or inspect the org structure schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(schema.Up), string(schema.Down), string(schema.Status)},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := schema.Direction(strings.ToLower(strings.TrimSpace(args[0])))
			switch direction {
			case schema.Up, schema.Down, schema.Status:
			default:
				return withCode(exitUsage, fmt.Errorf("unknown migrate direction: %s (expected up|down|status)", args[0]))
			}

			ctx := cmd.Context()
			pool, err := connectDB(ctx, env.conf)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer pool.Close()

			db := stdlib.OpenDBFromPool(pool)
			defer db.Close()

			if err := schema.Migrate(ctx, db, direction, env.conf.Import.MigrationsTable); err != nil {
				return withCode(exitDBWrite, fmt.Errorf("migrate %s: %w", direction, err))
			}
			env.logger.WithField("direction", direction).Info("migrations done")
			return nil
		},
	}
}
