package persistence

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/pkg/composables"
)

const (
	selectDepartmentByCode = `
SELECT id, code, name, parent_code, created_at, updated_at
FROM org_departments
WHERE code = $1`

	upsertDepartment = `
INSERT INTO org_departments (id, code, name, parent_code)
VALUES ($1, $2, $3, NULLIF($4, ''))
ON CONFLICT (code) DO UPDATE
SET name = EXCLUDED.name,
    parent_code = EXCLUDED.parent_code,
    updated_at = now()`
)

type DepartmentRepository struct{}

func NewDepartmentRepository() department.Repository {
	return &DepartmentRepository{}
}

func (r *DepartmentRepository) FindByCode(ctx context.Context, code string) (department.Department, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return department.Department{}, err
	}

	var (
		row        departmentRow
		parentCode pgtype.Text
	)
	err = tx.QueryRow(ctx, selectDepartmentByCode, code).Scan(
		&row.ID, &row.Code, &row.Name, &parentCode, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return department.Department{}, department.ErrNotFound
		}
		return department.Department{}, gerrors.Wrap(err, "select department")
	}
	row.ParentCode = parentCode.String
	return row.toDomain(), nil
}

func (r *DepartmentRepository) Save(ctx context.Context, d department.Department) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, upsertDepartment, d.ID(), d.Code(), d.Name(), d.ParentCode()); err != nil {
		return fmt.Errorf("save department %s: %w", d.Code(), mapPgError(err, department.ErrCodeTaken, nil))
	}
	return nil
}

func (r *DepartmentRepository) BeginTransaction(ctx context.Context) (context.Context, error) {
	tx, err := composables.BeginTx(ctx)
	if err != nil {
		return ctx, gerrors.Wrap(err, "begin transaction")
	}
	return composables.WithTx(ctx, tx), nil
}

func (r *DepartmentRepository) Commit(ctx context.Context) error {
	tx, err := composables.UseExplicitTx(ctx)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *DepartmentRepository) Rollback(ctx context.Context) error {
	tx, err := composables.UseExplicitTx(ctx)
	if err != nil {
		return err
	}
	return tx.Rollback(ctx)
}
