package persistence

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/pkg/composables"
)

const (
	selectEmployeeByTabNumber = `
SELECT id, tab_number, full_name, email, phone, department_code, position_code, manager_tab_number
FROM org_employees
WHERE tab_number = $1`

	upsertEmployee = `
INSERT INTO org_employees (id, tab_number, full_name, email, phone, department_code, position_code, manager_tab_number)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''))
ON CONFLICT (tab_number) DO UPDATE
SET full_name = EXCLUDED.full_name,
    email = EXCLUDED.email,
    phone = EXCLUDED.phone,
    department_code = EXCLUDED.department_code,
    position_code = EXCLUDED.position_code,
    manager_tab_number = EXCLUDED.manager_tab_number,
    updated_at = now()`
)

type EmployeeRepository struct{}

func NewEmployeeRepository() employee.Repository {
	return &EmployeeRepository{}
}

func (r *EmployeeRepository) FindByTabNumber(ctx context.Context, tabNumber string) (employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return employee.Employee{}, err
	}

	var (
		row                                      employeeRow
		email, phone, positionCode, managerTabNo pgtype.Text
	)
	err = tx.QueryRow(ctx, selectEmployeeByTabNumber, tabNumber).Scan(
		&row.ID, &row.TabNumber, &row.FullName, &email, &phone,
		&row.DepartmentCode, &positionCode, &managerTabNo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrNotFound
		}
		return employee.Employee{}, gerrors.Wrap(err, "select employee")
	}
	row.Email = email.String
	row.Phone = phone.String
	row.PositionCode = positionCode.String
	row.ManagerTabNumber = managerTabNo.String
	return row.toDomain(), nil
}

func (r *EmployeeRepository) Save(ctx context.Context, e employee.Employee) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, upsertEmployee,
		e.ID(), e.TabNumber(), e.FullName(), e.Email(), e.Phone(),
		e.DepartmentCode(), e.PositionCode(), e.ManagerTabNumber(),
	)
	if err != nil {
		err = mapPgError(err, employee.ErrTabNumberTaken, employee.ErrUnknownReference)
		return fmt.Errorf("save employee %s: %w", e.TabNumber(), err)
	}
	return nil
}
