package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/position"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
)

// RelationshipValidator checks a batch for structural problems before anything is saved.
// It keeps no state between calls; every method returns a fresh ValidationResult.
// A non-nil error means storage could not be consulted, not that the batch is invalid.
type RelationshipValidator struct {
	departments department.Repository
	positions   position.Repository
	employees   employee.Repository
}

func NewRelationshipValidator(
	departments department.Repository,
	positions position.Repository,
	employees employee.Repository,
) *RelationshipValidator {
	return &RelationshipValidator{
		departments: departments,
		positions:   positions,
		employees:   employees,
	}
}

func (v *RelationshipValidator) ValidateDepartmentHierarchy(
	ctx context.Context,
	recs []records.DepartmentRecord,
	opts ValidatorOptions,
) (ValidationResult, error) {
	var res ValidationResult
	look := newLookups(v)
	refScope := opts.referenceScope()

	batch := make(map[string]records.DepartmentRecord, len(recs))
	for _, r := range recs {
		if r.Code == "" {
			continue
		}
		if _, dup := batch[r.Code]; dup {
			res.add(r.Row, IssueDuplicateCode, refScope, fmt.Sprintf("Duplicate department code: %s", r.Code))
			continue
		}
		batch[r.Code] = r
	}

	for _, r := range recs {
		for _, msg := range r.Problems() {
			res.add(r.Row, IssueInvalidField, ScopeRecord, msg)
		}
		if r.Code == "" {
			continue
		}

		if opts.RejectExisting {
			_, found, err := look.department(ctx, r.Code)
			if err != nil {
				return ValidationResult{}, err
			}
			if found {
				res.add(r.Row, IssueAlreadyExists, ScopeRecord, fmt.Sprintf("Department %s already exists", r.Code))
			}
		}

		if r.ParentCode == "" || r.ParentCode == r.Code {
			continue
		}
		if _, ok := batch[r.ParentCode]; ok {
			continue
		}
		_, found, err := look.department(ctx, r.ParentCode)
		if err != nil {
			return ValidationResult{}, err
		}
		if !found {
			res.add(r.Row, IssueParentNotFound, refScope, fmt.Sprintf("Parent department %s not found", r.ParentCode))
		}
	}

	parentOf := func(ctx context.Context, code string) (string, error) {
		if r, ok := batch[code]; ok {
			return r.ParentCode, nil
		}
		d, found, err := look.department(ctx, code)
		if err != nil || !found {
			return "", err
		}
		return d.ParentCode(), nil
	}

	order := make([]string, 0, len(batch))
	for _, r := range recs {
		if b, ok := batch[r.Code]; ok && b.Row == r.Row {
			order = append(order, r.Code)
		}
	}
	cycles, err := findCycles(ctx, order, parentOf)
	if err != nil {
		return ValidationResult{}, err
	}
	for _, cycle := range cycles {
		res.add(rowOf(batch, cycle), IssueCircularDependency, ScopeBatch,
			fmt.Sprintf("Circular dependency detected: %s", strings.Join(append(cycle, cycle[0]), " -> ")))
	}
	return res, nil
}

func (v *RelationshipValidator) ValidatePositions(
	ctx context.Context,
	recs []records.PositionRecord,
	opts ValidatorOptions,
) (ValidationResult, error) {
	var res ValidationResult
	refScope := opts.referenceScope()
	seen := make(map[string]struct{}, len(recs))

	for _, r := range recs {
		for _, msg := range r.Problems() {
			res.add(r.Row, IssueInvalidField, ScopeRecord, msg)
		}
		if r.Code == "" {
			continue
		}
		if _, dup := seen[r.Code]; dup {
			res.add(r.Row, IssueDuplicateCode, refScope, fmt.Sprintf("Duplicate position code: %s", r.Code))
			continue
		}
		seen[r.Code] = struct{}{}

		if opts.RejectExisting {
			exists, err := v.positions.ExistsByCode(ctx, r.Code)
			if err != nil {
				return ValidationResult{}, err
			}
			if exists {
				res.add(r.Row, IssueAlreadyExists, ScopeRecord, fmt.Sprintf("Position %s already exists", r.Code))
			}
		}
	}
	return res, nil
}

func (v *RelationshipValidator) ValidateEmployeeRelationships(
	ctx context.Context,
	recs []records.EmployeeRecord,
	opts ValidatorOptions,
) (ValidationResult, error) {
	var res ValidationResult
	look := newLookups(v)
	refScope := opts.referenceScope()

	// Duplicates are reported ahead of everything else.
	batch := make(map[string]records.EmployeeRecord, len(recs))
	for _, r := range recs {
		if r.TabNumber == "" {
			continue
		}
		if _, dup := batch[r.TabNumber]; dup {
			res.add(r.Row, IssueDuplicateTabNumber, refScope, fmt.Sprintf("Duplicate tab number: %s", r.TabNumber))
			continue
		}
		batch[r.TabNumber] = r
	}

	for _, r := range recs {
		for _, msg := range r.Problems() {
			res.add(r.Row, IssueInvalidField, ScopeRecord, msg)
		}

		if r.DepartmentCode != "" {
			_, found, err := look.department(ctx, r.DepartmentCode)
			if err != nil {
				return ValidationResult{}, err
			}
			if !found {
				res.add(r.Row, IssueDepartmentNotFound, refScope, fmt.Sprintf("Department %s not found", r.DepartmentCode))
			}
		}

		if r.PositionCode != "" {
			found, err := look.position(ctx, r.PositionCode)
			if err != nil {
				return ValidationResult{}, err
			}
			if !found {
				res.add(r.Row, IssuePositionNotFound, refScope, fmt.Sprintf("Position %s not found", r.PositionCode))
			}
		}

		if r.TabNumber != "" && opts.RejectExisting {
			_, found, err := look.employee(ctx, r.TabNumber)
			if err != nil {
				return ValidationResult{}, err
			}
			if found {
				res.add(r.Row, IssueAlreadyExists, ScopeRecord,
					fmt.Sprintf("Employee with tab number %s already exists", r.TabNumber))
			}
		}

		if r.ManagerTabNumber == "" {
			continue
		}
		if r.ManagerTabNumber == r.TabNumber {
			res.add(r.Row, IssueSelfManager, refScope, fmt.Sprintf("%s cannot be their own manager", r.TabNumber))
			continue
		}
		if _, ok := batch[r.ManagerTabNumber]; ok {
			continue
		}
		_, found, err := look.employee(ctx, r.ManagerTabNumber)
		if err != nil {
			return ValidationResult{}, err
		}
		if !found {
			res.add(r.Row, IssueManagerNotFound, refScope,
				fmt.Sprintf("Manager with tab number %s not found", r.ManagerTabNumber))
		}
	}

	if !opts.DetectManagerCycles {
		return res, nil
	}

	managerOf := func(ctx context.Context, tab string) (string, error) {
		var manager string
		if r, ok := batch[tab]; ok {
			manager = r.ManagerTabNumber
		} else {
			e, found, err := look.employee(ctx, tab)
			if err != nil || !found {
				return "", err
			}
			manager = e.ManagerTabNumber()
		}
		// self-management is reported on its own
		if manager == tab {
			return "", nil
		}
		return manager, nil
	}

	order := make([]string, 0, len(batch))
	for _, r := range recs {
		if b, ok := batch[r.TabNumber]; ok && b.Row == r.Row {
			order = append(order, r.TabNumber)
		}
	}
	cycles, err := findCycles(ctx, order, managerOf)
	if err != nil {
		return ValidationResult{}, err
	}
	for _, cycle := range cycles {
		row := 0
		for _, tab := range cycle {
			if r, ok := batch[tab]; ok && (row == 0 || r.Row < row) {
				row = r.Row
			}
		}
		res.add(row, IssueManagerCycle, ScopeBatch,
			fmt.Sprintf("Circular management chain detected: %s", strings.Join(append(cycle, cycle[0]), " -> ")))
	}
	return res, nil
}

// findCycles walks the single-successor graph given by next, starting from every
// node in order, and returns each distinct cycle once, in discovery order.
// Nodes are coloured 0 (unvisited), 1 (on the current path) or 2 (done).
func findCycles(
	ctx context.Context,
	order []string,
	next func(ctx context.Context, node string) (string, error),
) ([][]string, error) {
	state := make(map[string]int, len(order))
	var cycles [][]string

	for _, start := range order {
		if state[start] != 0 {
			continue
		}
		var path []string
		pos := make(map[string]int)
		node := start
		for node != "" && state[node] == 0 {
			state[node] = 1
			pos[node] = len(path)
			path = append(path, node)

			succ, err := next(ctx, node)
			if err != nil {
				return nil, err
			}
			node = succ
		}
		if node != "" && state[node] == 1 {
			cycle := append([]string(nil), path[pos[node]:]...)
			cycles = append(cycles, cycle)
		}
		for _, n := range path {
			state[n] = 2
		}
	}
	return cycles, nil
}

func rowOf(batch map[string]records.DepartmentRecord, cycle []string) int {
	row := 0
	for _, code := range cycle {
		if r, ok := batch[code]; ok && (row == 0 || r.Row < row) {
			row = r.Row
		}
	}
	return row
}

// lookups memoizes storage reads for the duration of one validation call.
type lookups struct {
	v           *RelationshipValidator
	departments map[string]*department.Department
	positions   map[string]bool
	employees   map[string]*employee.Employee
}

func newLookups(v *RelationshipValidator) *lookups {
	return &lookups{
		v:           v,
		departments: make(map[string]*department.Department),
		positions:   make(map[string]bool),
		employees:   make(map[string]*employee.Employee),
	}
}

func (l *lookups) department(ctx context.Context, code string) (department.Department, bool, error) {
	if d, ok := l.departments[code]; ok {
		if d == nil {
			return department.Department{}, false, nil
		}
		return *d, true, nil
	}
	d, err := l.v.departments.FindByCode(ctx, code)
	if errors.Is(err, department.ErrNotFound) {
		l.departments[code] = nil
		return department.Department{}, false, nil
	}
	if err != nil {
		return department.Department{}, false, fmt.Errorf("find department %s: %w", code, err)
	}
	l.departments[code] = &d
	return d, true, nil
}

func (l *lookups) position(ctx context.Context, code string) (bool, error) {
	if found, ok := l.positions[code]; ok {
		return found, nil
	}
	found, err := l.v.positions.ExistsByCode(ctx, code)
	if err != nil {
		return false, fmt.Errorf("check position %s: %w", code, err)
	}
	l.positions[code] = found
	return found, nil
}

func (l *lookups) employee(ctx context.Context, tab string) (employee.Employee, bool, error) {
	if e, ok := l.employees[tab]; ok {
		if e == nil {
			return employee.Employee{}, false, nil
		}
		return *e, true, nil
	}
	e, err := l.v.employees.FindByTabNumber(ctx, tab)
	if errors.Is(err, employee.ErrNotFound) {
		l.employees[tab] = nil
		return employee.Employee{}, false, nil
	}
	if err != nil {
		return employee.Employee{}, false, fmt.Errorf("find employee %s: %w", tab, err)
	}
	l.employees[tab] = &e
	return e, true, nil
}
