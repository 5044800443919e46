package persistence

import (
	"context"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/position"
	"github.com/iota-uz/org-import/pkg/composables"
)

const (
	positionExistsByCode = `SELECT EXISTS (SELECT 1 FROM org_positions WHERE code = $1)`

	upsertPosition = `
INSERT INTO org_positions (id, code, name, category, competencies)
VALUES ($1, $2, $3, NULLIF($4, ''), $5)
ON CONFLICT (code) DO UPDATE
SET name = EXCLUDED.name,
    category = EXCLUDED.category,
    competencies = EXCLUDED.competencies,
    updated_at = now()`
)

type PositionRepository struct{}

func NewPositionRepository() position.Repository {
	return &PositionRepository{}
}

func (r *PositionRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, positionExistsByCode, code).Scan(&exists); err != nil {
		return false, gerrors.Wrap(err, "check position")
	}
	return exists, nil
}

func (r *PositionRepository) Save(ctx context.Context, p position.Position) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	competencies := pgtype.FlatArray[string](p.Competencies())
	if _, err := tx.Exec(ctx, upsertPosition, p.ID(), p.Code(), p.Name(), p.Category(), competencies); err != nil {
		return fmt.Errorf("save position %s: %w", p.Code(), mapPgError(err, position.ErrCodeTaken, nil))
	}
	return nil
}
