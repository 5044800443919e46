package employee

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("employee not found")
	ErrTabNumberTaken = errors.New("employee tab number already exists")

	// ErrUnknownReference is returned by Save when the department or position is missing from storage.
	ErrUnknownReference = errors.New("employee references a missing department or position")
)

type Repository interface {
	// FindByTabNumber returns ErrNotFound when no employee has the tab number.
	FindByTabNumber(ctx context.Context, tabNumber string) (Employee, error)
	Save(ctx context.Context, e Employee) error
}
