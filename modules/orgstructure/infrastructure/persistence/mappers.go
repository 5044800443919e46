package persistence

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
)

type departmentRow struct {
	ID         uuid.UUID
	Code       string
	Name       string
	ParentCode string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r departmentRow) toDomain() department.Department {
	return department.Hydrate(r.ID, r.Code, r.Name, r.ParentCode, r.CreatedAt, r.UpdatedAt)
}

type employeeRow struct {
	ID               uuid.UUID
	TabNumber        string
	FullName         string
	Email            string
	Phone            string
	DepartmentCode   string
	PositionCode     string
	ManagerTabNumber string
}

func (r employeeRow) toDomain() employee.Employee {
	return employee.Hydrate(r.ID, r.TabNumber, r.FullName,
		employee.WithEmail(r.Email),
		employee.WithPhone(r.Phone),
		employee.WithDepartment(r.DepartmentCode),
		employee.WithPosition(r.PositionCode),
		employee.WithManager(r.ManagerTabNumber),
	)
}
