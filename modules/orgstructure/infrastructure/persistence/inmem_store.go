package persistence

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/position"
)

var (
	ErrTxActive = errors.New("a transaction is already active")
	ErrNoTx     = errors.New("no transaction found in context")
)

type SafeMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		m: make(map[K]V),
	}
}

func (s *SafeMap[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *SafeMap[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, found := s.m[key]
	return val, found
}

func (s *SafeMap[K, V]) Has(key K) bool {
	_, found := s.Get(key)
	return found
}

func (s *SafeMap[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *SafeMap[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Values(s.m))
}

// Snapshot returns a shallow copy of the current contents.
func (s *SafeMap[K, V]) Snapshot() map[K]V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.m)
}

// Restore replaces the contents with a previously taken snapshot.
func (s *SafeMap[K, V]) Restore(m map[K]V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == nil {
		m = make(map[K]V)
	}
	s.m = m
}

type inmemTxKey struct{}

type inmemSnapshot struct {
	departments map[string]department.Department
	positions   map[string]position.Position
	employees   map[string]employee.Employee
}

// InMemoryStore keeps the org structure in process memory. It backs dry runs
// and tests. One transaction may be active at a time; rolling it back restores
// the state captured when it began.
type InMemoryStore struct {
	departments *SafeMap[string, department.Department]
	positions   *SafeMap[string, position.Position]
	employees   *SafeMap[string, employee.Employee]

	mu        sync.Mutex
	active    *inmemSnapshot
	begins    int
	commits   int
	rollbacks int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		departments: NewSafeMap[string, department.Department](),
		positions:   NewSafeMap[string, position.Position](),
		employees:   NewSafeMap[string, employee.Employee](),
	}
}

func (s *InMemoryStore) Departments() *InmemDepartmentRepository {
	return &InmemDepartmentRepository{store: s}
}

func (s *InMemoryStore) Positions() *InmemPositionRepository {
	return &InmemPositionRepository{store: s}
}

func (s *InMemoryStore) Employees() *InmemEmployeeRepository {
	return &InmemEmployeeRepository{store: s}
}

func (s *InMemoryStore) BeginTransaction(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return ctx, ErrTxActive
	}
	snap := &inmemSnapshot{
		departments: s.departments.Snapshot(),
		positions:   s.positions.Snapshot(),
		employees:   s.employees.Snapshot(),
	}
	s.active = snap
	s.begins++
	return context.WithValue(ctx, inmemTxKey{}, snap), nil
}

func (s *InMemoryStore) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTx(ctx); err != nil {
		return err
	}
	s.active = nil
	s.commits++
	return nil
}

func (s *InMemoryStore) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTx(ctx); err != nil {
		return err
	}
	s.departments.Restore(s.active.departments)
	s.positions.Restore(s.active.positions)
	s.employees.Restore(s.active.employees)
	s.active = nil
	s.rollbacks++
	return nil
}

func (s *InMemoryStore) checkTx(ctx context.Context) error {
	snap, ok := ctx.Value(inmemTxKey{}).(*inmemSnapshot)
	if !ok || snap == nil || snap != s.active {
		return ErrNoTx
	}
	return nil
}

// TxStats reports how many transactions were begun, committed and rolled back.
func (s *InMemoryStore) TxStats() (begins, commits, rollbacks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begins, s.commits, s.rollbacks
}

// Counts returns the number of stored departments, positions and employees.
func (s *InMemoryStore) Counts() (departments, positions, employees int) {
	return s.departments.Len(), s.positions.Len(), s.employees.Len()
}

type InmemDepartmentRepository struct {
	store *InMemoryStore
}

var _ department.Repository = (*InmemDepartmentRepository)(nil)

func (r *InmemDepartmentRepository) BeginTransaction(ctx context.Context) (context.Context, error) {
	return r.store.BeginTransaction(ctx)
}

func (r *InmemDepartmentRepository) Commit(ctx context.Context) error {
	return r.store.Commit(ctx)
}

func (r *InmemDepartmentRepository) Rollback(ctx context.Context) error {
	return r.store.Rollback(ctx)
}

func (r *InmemDepartmentRepository) FindByCode(_ context.Context, code string) (department.Department, error) {
	d, found := r.store.departments.Get(code)
	if !found {
		return department.Department{}, department.ErrNotFound
	}
	return d, nil
}

func (r *InmemDepartmentRepository) Save(_ context.Context, d department.Department) error {
	if existing, found := r.store.departments.Get(d.Code()); found {
		d = department.Hydrate(existing.ID(), d.Code(), d.Name(), d.ParentCode(), existing.CreatedAt(), d.UpdatedAt())
	}
	r.store.departments.Set(d.Code(), d)
	return nil
}

type InmemPositionRepository struct {
	store *InMemoryStore
}

var _ position.Repository = (*InmemPositionRepository)(nil)

func (r *InmemPositionRepository) ExistsByCode(_ context.Context, code string) (bool, error) {
	return r.store.positions.Has(code), nil
}

func (r *InmemPositionRepository) Save(_ context.Context, p position.Position) error {
	r.store.positions.Set(p.Code(), p)
	return nil
}

// FindByCode is used by tests and dry-run summaries.
func (r *InmemPositionRepository) FindByCode(code string) (position.Position, bool) {
	return r.store.positions.Get(code)
}

type InmemEmployeeRepository struct {
	store *InMemoryStore
}

var _ employee.Repository = (*InmemEmployeeRepository)(nil)

func (r *InmemEmployeeRepository) FindByTabNumber(_ context.Context, tabNumber string) (employee.Employee, error) {
	e, found := r.store.employees.Get(tabNumber)
	if !found {
		return employee.Employee{}, employee.ErrNotFound
	}
	return e, nil
}

// Save mirrors the foreign keys of org_employees: the department, and the
// position when set, must already be stored.
func (r *InmemEmployeeRepository) Save(_ context.Context, e employee.Employee) error {
	if !r.store.departments.Has(e.DepartmentCode()) {
		return employee.ErrUnknownReference
	}
	if e.PositionCode() != "" && !r.store.positions.Has(e.PositionCode()) {
		return employee.ErrUnknownReference
	}
	r.store.employees.Set(e.TabNumber(), e)
	return nil
}
