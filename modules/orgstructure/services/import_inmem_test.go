package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/org-import/modules/orgstructure/infrastructure/persistence"
	"github.com/iota-uz/org-import/modules/orgstructure/services"
)

const (
	departmentsCSV = "code,name,parent_code\nCOMPANY,Company,\nIT,IT Department,COMPANY\nDEV,Development,IT\n"
	positionsCSV   = "code;name;category;competencies\nCTO;Chief Technology Officer;Management;Leadership\nDEV;Developer;IT;Go,SQL\n"
	employeesCSV   = "Таб. номер,ФИО,E-mail,Подразделение,Должность,Руководитель\n" +
		"0002,Петров Пётр,petrov@example.com,DEV,DEV,0001\n" +
		"0001,Иванов Иван,ivanov@example.com,IT,CTO,\n"
)

func newInmemOrchestrator() (*persistence.InMemoryStore, *services.ImportOrchestrator) {
	store := persistence.NewInMemoryStore()
	return store, services.NewImportOrchestrator(store.Departments(), store.Positions(), store.Employees())
}

func TestFullImport_InMemory(t *testing.T) {
	store, o := newInmemOrchestrator()
	opts := services.DefaultImportOptions()
	opts.UseTransaction = true

	res := o.ImportFullOrgStructure(context.Background(), departmentsCSV, positionsCSV, employeesCSV,
		services.FullImportOptions{ImportOptions: opts})

	require.True(t, res.IsSuccess(), res.Messages())
	require.Equal(t, 7, res.ImportedCount)
	require.Equal(t, 3, res.Details["departments"].ImportedCount)
	require.Equal(t, 2, res.Details["positions"].ImportedCount)
	require.Equal(t, 2, res.Details["employees"].ImportedCount)

	d, p, e := store.Counts()
	require.Equal(t, []int{3, 2, 2}, []int{d, p, e})
	begins, commits, rollbacks := store.TxStats()
	require.Equal(t, []int{3, 3, 0}, []int{begins, commits, rollbacks})

	emp, err := store.Employees().FindByTabNumber(context.Background(), "0002")
	require.NoError(t, err)
	require.Equal(t, "0001", emp.ManagerTabNumber())
	require.Equal(t, "DEV", emp.DepartmentCode())
}

func TestFullImport_InMemory_Reimport(t *testing.T) {
	store, o := newInmemOrchestrator()
	full := services.FullImportOptions{ImportOptions: services.DefaultImportOptions()}

	require.True(t, o.ImportFullOrgStructure(context.Background(), departmentsCSV, positionsCSV, employeesCSV, full).IsSuccess())
	res := o.ImportFullOrgStructure(context.Background(), departmentsCSV, positionsCSV, employeesCSV, full)
	require.True(t, res.IsSuccess(), res.Messages())

	d, p, e := store.Counts()
	require.Equal(t, []int{3, 2, 2}, []int{d, p, e})

	full.Mode = services.ModeCreateOnly
	full.SkipOnError = true
	res = o.ImportFullOrgStructure(context.Background(), departmentsCSV, positionsCSV, employeesCSV, full)
	require.True(t, res.IsFailure())
	require.Equal(t, 0, res.ImportedCount)
	require.Contains(t, res.Messages(), "Department COMPANY already exists")
}

func TestImportEmployees_InMemory_RollbackLeavesNothing(t *testing.T) {
	store, o := newInmemOrchestrator()
	require.True(t, o.ImportDepartments(context.Background(), "code,name\nIT,IT\n", ',', services.DefaultImportOptions()).IsSuccess())

	opts := services.DefaultImportOptions()
	opts.UseTransaction = true
	opts.References = services.ReferencesRecordFatal
	res := o.ImportEmployees(context.Background(),
		"tab_number,full_name,department_id\n001,Ivanov,IT\n002,,IT\n", ',', opts)

	require.True(t, res.IsFailure())
	require.Equal(t, "Employee full name cannot be empty", res.Errors[0].Message)
	_, _, e := store.Counts()
	require.Equal(t, 0, e)
}

func TestImportDepartments_InMemory_StoredParentsExist(t *testing.T) {
	store, o := newInmemOrchestrator()
	opts := services.DefaultImportOptions()
	opts.SkipOnError = true
	opts.References = services.ReferencesRecordFatal

	res := o.ImportDepartments(context.Background(),
		"code,name,parent_code\nA,Dept A,MISSING\nB,Dept B,A\n,\n\nC,Dept C,\nD,Dept D,C\n", ',', opts)

	require.True(t, res.IsPartialSuccess(), res.Messages())
	require.Equal(t, 2, res.ImportedCount)
	require.Equal(t, []services.ImportError{
		{Entity: "departments", Row: 1, Message: "Parent department MISSING not found"},
		{Entity: "departments", Row: 2, Message: "Parent department A not found"},
	}, res.Errors)

	for _, code := range []string{"C", "D"} {
		d, err := store.Departments().FindByCode(context.Background(), code)
		require.NoError(t, err)
		if d.ParentCode() != "" {
			_, err := store.Departments().FindByCode(context.Background(), d.ParentCode())
			require.NoError(t, err, "parent of %s", code)
		}
	}
	_, err := store.Departments().FindByCode(context.Background(), "B")
	require.Error(t, err)
}

func TestImportDepartments_InMemory_RowsCountBlankLines(t *testing.T) {
	_, o := newInmemOrchestrator()
	opts := services.DefaultImportOptions()
	opts.SkipOnError = true

	res := o.ImportDepartments(context.Background(), "code,name\nA,a\n,\n\nB,\n", ',', opts)

	require.True(t, res.IsPartialSuccess(), res.Messages())
	require.Equal(t, []services.ImportError{
		{Entity: "departments", Row: 4, Message: "Department name cannot be empty"},
	}, res.Errors)
}
