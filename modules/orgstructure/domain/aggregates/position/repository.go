package position

import (
	"context"
	"errors"
)

var ErrCodeTaken = errors.New("position code already exists")

type Repository interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, p Position) error
}
