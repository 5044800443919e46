package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/position"
	"github.com/iota-uz/org-import/modules/orgstructure/infrastructure/persistence"
	"github.com/iota-uz/org-import/pkg/composables"
	"github.com/iota-uz/org-import/pkg/configuration"
)

func connectDB(ctx context.Context, conf *configuration.Configuration) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	return pool, nil
}

type backend struct {
	departments department.Repository
	positions   position.Repository
	employees   employee.Repository
	// inTx runs fn with every repository read going through one transaction.
	inTx  func(ctx context.Context, fn func(context.Context) error) error
	close func()
}

// openBackend returns Postgres repositories, or an empty in-memory store when offline is set.
func (e *cliEnv) openBackend(ctx context.Context, offline bool) (context.Context, backend, error) {
	if offline {
		store := persistence.NewInMemoryStore()
		return ctx, backend{
			departments: store.Departments(),
			positions:   store.Positions(),
			employees:   store.Employees(),
			inTx: func(ctx context.Context, fn func(context.Context) error) error {
				return fn(ctx)
			},
			close: func() {},
		}, nil
	}

	pool, err := connectDB(ctx, e.conf)
	if err != nil {
		return ctx, backend{}, withCode(exitDB, err)
	}
	return composables.WithPool(ctx, pool), backend{
		departments: persistence.NewDepartmentRepository(),
		positions:   persistence.NewPositionRepository(),
		employees:   persistence.NewEmployeeRepository(),
		inTx:        composables.InTx,
		close:       pool.Close,
	}, nil
}
