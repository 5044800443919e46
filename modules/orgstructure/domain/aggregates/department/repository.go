package department

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("department not found")
	ErrCodeTaken = errors.New("department code already exists")
)

// Transactor scopes a unit of work. BeginTransaction returns the context that
// subsequent repository calls must use to take part in the transaction.
type Transactor interface {
	BeginTransaction(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Repository interface {
	Transactor
	// FindByCode returns ErrNotFound when no department has the code.
	FindByCode(ctx context.Context, code string) (Department, error)
	Save(ctx context.Context, d Department) error
}
