package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
)

// batchLink describes how a row points at another row of the same kind:
// a department at its parent, an employee at their manager.
type batchLink[R any] struct {
	key     func(R) string
	ref     func(R) string
	issue   string
	missing func(ref string) string
	stored  func(ctx context.Context, ref string) (bool, error)
}

func (o *ImportOrchestrator) parentLink() *batchLink[records.DepartmentRecord] {
	return &batchLink[records.DepartmentRecord]{
		key:   func(r records.DepartmentRecord) string { return r.Code },
		ref:   func(r records.DepartmentRecord) string { return r.ParentCode },
		issue: IssueParentNotFound,
		missing: func(ref string) string {
			return fmt.Sprintf("Parent department %s not found", ref)
		},
		stored: func(ctx context.Context, code string) (bool, error) {
			_, err := o.departments.FindByCode(ctx, code)
			if errors.Is(err, department.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, fmt.Errorf("find department %s: %w", code, err)
			}
			return true, nil
		},
	}
}

func (o *ImportOrchestrator) managerLink() *batchLink[records.EmployeeRecord] {
	return &batchLink[records.EmployeeRecord]{
		key:   func(r records.EmployeeRecord) string { return r.TabNumber },
		ref:   func(r records.EmployeeRecord) string { return r.ManagerTabNumber },
		issue: IssueManagerNotFound,
		missing: func(ref string) string {
			return fmt.Sprintf("Manager with tab number %s not found", ref)
		},
		stored: func(ctx context.Context, tab string) (bool, error) {
			_, err := o.employees.FindByTabNumber(ctx, tab)
			if errors.Is(err, employee.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, fmt.Errorf("find employee %s: %w", tab, err)
			}
			return true, nil
		},
	}
}

// rejectedRefs tracks batch keys whose rows will not be saved. A row that points at
// such a key is blocked unless the key is already in storage.
type rejectedRefs[R any] struct {
	link     *batchLink[R]
	rejected map[string]bool
	accepted map[string]int
	stored   map[string]bool
}

// newRejectedRefs seeds the tracker from the rows that already have issues and
// blocks, transitively, every row that depends on one of them. Blocked rows get
// a record-scoped issue in issues. A nil link yields a nil tracker.
func newRejectedRefs[R any](
	ctx context.Context,
	typed []R,
	rowOf func(R) int,
	link *batchLink[R],
	issues map[int][]ValidationIssue,
) (*rejectedRefs[R], error) {
	if link == nil {
		return nil, nil
	}
	t := &rejectedRefs[R]{
		link:     link,
		rejected: make(map[string]bool),
		accepted: make(map[string]int),
		stored:   make(map[string]bool),
	}
	for _, rec := range typed {
		key := link.key(rec)
		if key == "" {
			continue
		}
		if len(issues[rowOf(rec)]) > 0 {
			t.rejected[key] = true
		} else {
			t.accepted[key]++
		}
	}
	if len(t.rejected) == 0 {
		return t, nil
	}

	for changed := true; changed; {
		changed = false
		for _, rec := range typed {
			row := rowOf(rec)
			if len(issues[row]) > 0 {
				continue
			}
			ref, blocked, err := t.blocks(ctx, rec)
			if err != nil {
				return nil, err
			}
			if !blocked {
				continue
			}
			issues[row] = append(issues[row], ValidationIssue{
				Row:     row,
				Code:    link.issue,
				Message: link.missing(ref),
				Scope:   ScopeRecord,
			})
			t.reject(rec)
			changed = true
		}
	}
	return t, nil
}

func (t *rejectedRefs[R]) reject(rec R) {
	if t == nil {
		return
	}
	key := t.link.key(rec)
	if key == "" {
		return
	}
	t.rejected[key] = true
	if t.accepted[key] > 0 {
		t.accepted[key]--
	}
}

func (t *rejectedRefs[R]) blocks(ctx context.Context, rec R) (string, bool, error) {
	ref := t.link.ref(rec)
	if ref == "" || ref == t.link.key(rec) || !t.rejected[ref] || t.accepted[ref] > 0 {
		return "", false, nil
	}
	found, ok := t.stored[ref]
	if !ok {
		var err error
		found, err = t.link.stored(ctx, ref)
		if err != nil {
			return "", false, err
		}
		t.stored[ref] = found
	}
	return ref, !found, nil
}

// check returns a record error when rec points at a row that failed to save earlier in the run.
func (t *rejectedRefs[R]) check(ctx context.Context, rec R) error {
	if t == nil {
		return nil
	}
	ref, blocked, err := t.blocks(ctx, rec)
	if err != nil {
		return err
	}
	if blocked {
		return recordError{errors.New(t.link.missing(ref))}
	}
	return nil
}
