package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
)

func storedDepartment(code, parent string) department.Department {
	return department.Hydrate(uuid.New(), code, code, parent, time.Time{}, time.Time{})
}

func storedEmployee(tab, manager string) employee.Employee {
	return employee.Hydrate(uuid.New(), tab, "Employee "+tab,
		employee.WithDepartment("IT"),
		employee.WithManager(manager),
	)
}

func newTestValidator(deps *mockDepartmentRepository, emps *mockEmployeeRepository, positions ...string) *RelationshipValidator {
	if deps == nil {
		deps = newMockDepartmentRepository()
	}
	if emps == nil {
		emps = newMockEmployeeRepository()
	}
	return NewRelationshipValidator(deps, newMockPositionRepository(positions...), emps)
}

var batchPolicy = ValidatorOptions{References: ReferencesBatchFatal, DetectManagerCycles: true}

func TestValidateDepartmentHierarchy_MissingParent(t *testing.T) {
	v := newTestValidator(nil, nil)

	res, err := v.ValidateDepartmentHierarchy(context.Background(), []records.DepartmentRecord{
		{Row: 1, Code: "IT", Name: "IT", ParentCode: "NONEXISTENT"},
	}, batchPolicy)
	require.NoError(t, err)
	require.False(t, res.Valid())
	require.Equal(t, []string{"Parent department NONEXISTENT not found"}, res.Messages())
	require.True(t, res.HasBatchIssues())
	require.Equal(t, IssueParentNotFound, res.Issues[0].Code)
}

func TestValidateDepartmentHierarchy_MissingParentRecordPolicy(t *testing.T) {
	v := newTestValidator(nil, nil)

	res, err := v.ValidateDepartmentHierarchy(context.Background(), []records.DepartmentRecord{
		{Row: 1, Code: "COMPANY", Name: "Company"},
		{Row: 2, Code: "IT", Name: "IT", ParentCode: "NONEXISTENT"},
	}, ValidatorOptions{References: ReferencesRecordFatal})
	require.NoError(t, err)
	require.False(t, res.HasBatchIssues())
	byRow := res.ByRow()
	require.Len(t, byRow, 1)
	require.Equal(t, "Parent department NONEXISTENT not found", byRow[2][0].Message)
}

func TestValidateDepartmentHierarchy_CircularDependency(t *testing.T) {
	v := newTestValidator(nil, nil)

	res, err := v.ValidateDepartmentHierarchy(context.Background(), []records.DepartmentRecord{
		{Row: 1, Code: "A", Name: "Dept A", ParentCode: "B"},
		{Row: 2, Code: "B", Name: "Dept B", ParentCode: "A"},
	}, batchPolicy)
	require.NoError(t, err)
	require.Equal(t, []string{"Circular dependency detected: A -> B -> A"}, res.Messages())
	require.Equal(t, ScopeBatch, res.Issues[0].Scope)
	require.Equal(t, 1, res.Issues[0].Row)
}

func TestValidateDepartmentHierarchy_CycleThroughStorage(t *testing.T) {
	deps := newMockDepartmentRepository(storedDepartment("X", "A"))
	v := newTestValidator(deps, nil)

	res, err := v.ValidateDepartmentHierarchy(context.Background(), []records.DepartmentRecord{
		{Row: 1, Code: "A", Name: "Dept A", ParentCode: "X"},
	}, batchPolicy)
	require.NoError(t, err)
	require.Equal(t, []string{"Circular dependency detected: A -> X -> A"}, res.Messages())
}

func TestValidateDepartmentHierarchy_OwnParent(t *testing.T) {
	v := newTestValidator(nil, nil)

	res, err := v.ValidateDepartmentHierarchy(context.Background(), []records.DepartmentRecord{
		{Row: 1, Code: "A", Name: "Dept A", ParentCode: "A"},
	}, batchPolicy)
	require.NoError(t, err)
	require.Equal(t, []string{"Circular dependency detected: A -> A"}, res.Messages())
}

func TestValidateDepartmentHierarchy_ParentsFromBatchAndStorage(t *testing.T) {
	deps := newMockDepartmentRepository(storedDepartment("COMPANY", ""))
	v := newTestValidator(deps, nil)

	res, err := v.ValidateDepartmentHierarchy(context.Background(), []records.DepartmentRecord{
		{Row: 1, Code: "IT", Name: "IT", ParentCode: "COMPANY"},
		{Row: 2, Code: "HR", Name: "HR", ParentCode: "COMPANY"},
		{Row: 3, Code: "DEV", Name: "Development", ParentCode: "IT"},
	}, batchPolicy)
	require.NoError(t, err)
	require.True(t, res.Valid(), res.Messages())
	require.Equal(t, 1, deps.findCalls["COMPANY"])
}

func TestValidateDepartmentHierarchy_DuplicatesAndFieldProblems(t *testing.T) {
	v := newTestValidator(nil, nil)

	res, err := v.ValidateDepartmentHierarchy(context.Background(), []records.DepartmentRecord{
		{Row: 1, Code: "A", Name: "First"},
		{Row: 2, Code: "A", Name: "Second"},
		{Row: 3, Code: "B", Name: ""},
	}, batchPolicy)
	require.NoError(t, err)
	require.Equal(t, []string{
		"Duplicate department code: A",
		department.ErrEmptyName.Error(),
	}, res.Messages())
	require.Equal(t, ScopeBatch, res.Issues[0].Scope)
	require.Equal(t, ScopeRecord, res.Issues[1].Scope)
	require.Equal(t, 3, res.Issues[1].Row)
}

func TestValidateDepartmentHierarchy_RejectExisting(t *testing.T) {
	deps := newMockDepartmentRepository(storedDepartment("IT", ""))
	v := newTestValidator(deps, nil)

	res, err := v.ValidateDepartmentHierarchy(context.Background(), []records.DepartmentRecord{
		{Row: 1, Code: "IT", Name: "IT"},
	}, ValidatorOptions{RejectExisting: true})
	require.NoError(t, err)
	require.Equal(t, []string{"Department IT already exists"}, res.Messages())
	require.False(t, res.HasBatchIssues())
}

func TestValidateDepartmentHierarchy_StorageError(t *testing.T) {
	deps := newMockDepartmentRepository()
	deps.findErr = errors.New("connection refused")
	v := newTestValidator(deps, nil)

	_, err := v.ValidateDepartmentHierarchy(context.Background(), []records.DepartmentRecord{
		{Row: 1, Code: "IT", Name: "IT", ParentCode: "COMPANY"},
	}, batchPolicy)
	require.ErrorContains(t, err, "find department COMPANY")
	require.ErrorContains(t, err, "connection refused")
}

func TestValidatePositions(t *testing.T) {
	v := newTestValidator(nil, nil, "MGR")

	res, err := v.ValidatePositions(context.Background(), []records.PositionRecord{
		{Row: 1, Code: "DEV", Name: "Developer"},
		{Row: 2, Code: "DEV", Name: "Developer again"},
		{Row: 3, Code: "QA", Name: ""},
		{Row: 4, Code: "MGR", Name: "Manager"},
	}, ValidatorOptions{References: ReferencesRecordFatal, RejectExisting: true})
	require.NoError(t, err)
	require.Equal(t, []string{
		"Duplicate position code: DEV",
		"Position name cannot be empty",
		"Position MGR already exists",
	}, res.Messages())
	require.False(t, res.HasBatchIssues())
	require.Len(t, res.ByRow(), 3)
}

func TestValidateEmployeeRelationships_MissingReferences(t *testing.T) {
	deps := newMockDepartmentRepository(storedDepartment("IT", ""))
	v := newTestValidator(deps, nil, "DEV")

	res, err := v.ValidateEmployeeRelationships(context.Background(), []records.EmployeeRecord{
		{Row: 1, TabNumber: "001", FullName: "Ivanov", DepartmentCode: "NOPE", PositionCode: "DEV"},
		{Row: 2, TabNumber: "002", FullName: "Petrov", DepartmentCode: "IT", PositionCode: "NOPOS"},
		{Row: 3, TabNumber: "003", FullName: "Sidorov", DepartmentCode: "IT", ManagerTabNumber: "999"},
		{Row: 4, TabNumber: "004", FullName: "Smirnov", DepartmentCode: "IT", ManagerTabNumber: "004"},
	}, batchPolicy)
	require.NoError(t, err)
	require.Equal(t, []string{
		"Department NOPE not found",
		"Position NOPOS not found",
		"Manager with tab number 999 not found",
		"004 cannot be their own manager",
	}, res.Messages())
	require.Equal(t, []int{1, 2, 3, 4}, []int{res.Issues[0].Row, res.Issues[1].Row, res.Issues[2].Row, res.Issues[3].Row})
}

func TestValidateEmployeeRelationships_DuplicatesFirst(t *testing.T) {
	v := newTestValidator(nil, nil)

	res, err := v.ValidateEmployeeRelationships(context.Background(), []records.EmployeeRecord{
		{Row: 1, TabNumber: "001", FullName: "Ivanov", DepartmentCode: "NOPE"},
		{Row: 2, TabNumber: "001", FullName: "Ivanov again", DepartmentCode: "NOPE"},
	}, batchPolicy)
	require.NoError(t, err)
	require.Equal(t, "Duplicate tab number: 001", res.Messages()[0])
	require.Equal(t, 2, res.Issues[0].Row)
	require.Equal(t, IssueDuplicateTabNumber, res.Issues[0].Code)
}

func TestValidateEmployeeRelationships_ManagersInBatchAndStorage(t *testing.T) {
	deps := newMockDepartmentRepository(storedDepartment("IT", ""))
	emps := newMockEmployeeRepository(storedEmployee("100", ""))
	v := newTestValidator(deps, emps)

	res, err := v.ValidateEmployeeRelationships(context.Background(), []records.EmployeeRecord{
		{Row: 1, TabNumber: "002", FullName: "Petrov", DepartmentCode: "IT", ManagerTabNumber: "001"},
		{Row: 2, TabNumber: "001", FullName: "Ivanov", DepartmentCode: "IT", ManagerTabNumber: "100"},
	}, batchPolicy)
	require.NoError(t, err)
	require.True(t, res.Valid(), res.Messages())
	require.Equal(t, 1, deps.findCalls["IT"])
}

func TestValidateEmployeeRelationships_ManagerCycle(t *testing.T) {
	deps := newMockDepartmentRepository(storedDepartment("IT", ""))
	recs := []records.EmployeeRecord{
		{Row: 1, TabNumber: "001", FullName: "Ivanov", DepartmentCode: "IT", ManagerTabNumber: "002"},
		{Row: 2, TabNumber: "002", FullName: "Petrov", DepartmentCode: "IT", ManagerTabNumber: "001"},
	}

	res, err := newTestValidator(deps, nil).ValidateEmployeeRelationships(context.Background(), recs, batchPolicy)
	require.NoError(t, err)
	require.Equal(t, []string{"Circular management chain detected: 001 -> 002 -> 001"}, res.Messages())
	require.Equal(t, IssueManagerCycle, res.Issues[0].Code)
	require.True(t, res.HasBatchIssues())

	res, err = newTestValidator(deps, nil).ValidateEmployeeRelationships(context.Background(), recs,
		ValidatorOptions{References: ReferencesBatchFatal})
	require.NoError(t, err)
	require.True(t, res.Valid())
}

func TestValidateEmployeeRelationships_ManagerCycleThroughStorage(t *testing.T) {
	deps := newMockDepartmentRepository(storedDepartment("IT", ""))
	emps := newMockEmployeeRepository(storedEmployee("100", "001"))

	res, err := newTestValidator(deps, emps).ValidateEmployeeRelationships(context.Background(), []records.EmployeeRecord{
		{Row: 1, TabNumber: "001", FullName: "Ivanov", DepartmentCode: "IT", ManagerTabNumber: "100"},
	}, batchPolicy)
	require.NoError(t, err)
	require.Equal(t, []string{"Circular management chain detected: 001 -> 100 -> 001"}, res.Messages())
}

func TestValidateEmployeeRelationships_RejectExistingAndFieldProblems(t *testing.T) {
	deps := newMockDepartmentRepository(storedDepartment("IT", ""))
	emps := newMockEmployeeRepository(storedEmployee("001", ""))

	res, err := newTestValidator(deps, emps).ValidateEmployeeRelationships(context.Background(), []records.EmployeeRecord{
		{Row: 1, TabNumber: "001", FullName: "Ivanov", DepartmentCode: "IT"},
		{Row: 2, TabNumber: "002", FullName: "Petrov", Email: "not-an-email", DepartmentCode: "IT"},
	}, ValidatorOptions{RejectExisting: true})
	require.NoError(t, err)
	require.Equal(t, []string{
		"Employee with tab number 001 already exists",
		"Invalid email: not-an-email",
	}, res.Messages())
	require.False(t, res.HasBatchIssues())
}

func TestFindCycles(t *testing.T) {
	graph := map[string]string{"a": "b", "b": "c", "c": "a", "d": "a", "e": "e", "f": ""}
	next := func(_ context.Context, n string) (string, error) { return graph[n], nil }

	cycles, err := findCycles(context.Background(), []string{"d", "a", "e", "f"}, next)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a", "b", "c"}, {"e"}}, cycles)
}
