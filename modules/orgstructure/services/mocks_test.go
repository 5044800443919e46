package services

import (
	"context"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/position"
)

type mockDepartmentRepository struct {
	existing map[string]department.Department
	saved    []department.Department

	saveErr   func(d department.Department) error
	findErr   error
	beginErr  error
	commitErr error

	findCalls     map[string]int
	beginCalls    int
	commitCalls   int
	rollbackCalls int
}

func newMockDepartmentRepository(existing ...department.Department) *mockDepartmentRepository {
	m := &mockDepartmentRepository{
		existing:  make(map[string]department.Department),
		findCalls: make(map[string]int),
	}
	for _, d := range existing {
		m.existing[d.Code()] = d
	}
	return m
}

func (m *mockDepartmentRepository) BeginTransaction(ctx context.Context) (context.Context, error) {
	m.beginCalls++
	if m.beginErr != nil {
		return ctx, m.beginErr
	}
	return ctx, nil
}

func (m *mockDepartmentRepository) Commit(context.Context) error {
	m.commitCalls++
	return m.commitErr
}

func (m *mockDepartmentRepository) Rollback(context.Context) error {
	m.rollbackCalls++
	return nil
}

func (m *mockDepartmentRepository) FindByCode(_ context.Context, code string) (department.Department, error) {
	m.findCalls[code]++
	if m.findErr != nil {
		return department.Department{}, m.findErr
	}
	d, ok := m.existing[code]
	if !ok {
		return department.Department{}, department.ErrNotFound
	}
	return d, nil
}

func (m *mockDepartmentRepository) Save(_ context.Context, d department.Department) error {
	if m.saveErr != nil {
		if err := m.saveErr(d); err != nil {
			return err
		}
	}
	m.saved = append(m.saved, d)
	return nil
}

func (m *mockDepartmentRepository) savedCodes() []string {
	out := make([]string, len(m.saved))
	for i, d := range m.saved {
		out[i] = d.Code()
	}
	return out
}

type mockPositionRepository struct {
	existing map[string]bool
	saved    []position.Position
	saveErr  func(p position.Position) error
}

func newMockPositionRepository(codes ...string) *mockPositionRepository {
	m := &mockPositionRepository{existing: make(map[string]bool)}
	for _, c := range codes {
		m.existing[c] = true
	}
	return m
}

func (m *mockPositionRepository) ExistsByCode(_ context.Context, code string) (bool, error) {
	return m.existing[code], nil
}

func (m *mockPositionRepository) Save(_ context.Context, p position.Position) error {
	if m.saveErr != nil {
		if err := m.saveErr(p); err != nil {
			return err
		}
	}
	m.saved = append(m.saved, p)
	return nil
}

type mockEmployeeRepository struct {
	existing map[string]employee.Employee
	saved    []employee.Employee
	saveErr  func(e employee.Employee) error
}

func newMockEmployeeRepository(existing ...employee.Employee) *mockEmployeeRepository {
	m := &mockEmployeeRepository{existing: make(map[string]employee.Employee)}
	for _, e := range existing {
		m.existing[e.TabNumber()] = e
	}
	return m
}

func (m *mockEmployeeRepository) FindByTabNumber(_ context.Context, tab string) (employee.Employee, error) {
	e, ok := m.existing[tab]
	if !ok {
		return employee.Employee{}, employee.ErrNotFound
	}
	return e, nil
}

func (m *mockEmployeeRepository) Save(_ context.Context, e employee.Employee) error {
	if m.saveErr != nil {
		if err := m.saveErr(e); err != nil {
			return err
		}
	}
	m.saved = append(m.saved, e)
	return nil
}
