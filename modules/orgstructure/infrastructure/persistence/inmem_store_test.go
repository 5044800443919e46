package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/position"
)

func mustDepartment(t *testing.T, code, name, parent string) department.Department {
	t.Helper()
	d, err := department.New(code, name, parent)
	require.NoError(t, err)
	return d
}

func TestInMemoryStore_RollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	deps := store.Departments()

	require.NoError(t, deps.Save(ctx, mustDepartment(t, "COMPANY", "Company", "")))

	txCtx, err := deps.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, deps.Save(txCtx, mustDepartment(t, "IT", "IT", "COMPANY")))
	require.NoError(t, deps.Save(txCtx, mustDepartment(t, "COMPANY", "Renamed", "")))

	_, err = deps.FindByCode(txCtx, "IT")
	require.NoError(t, err)

	require.NoError(t, deps.Rollback(txCtx))

	_, err = deps.FindByCode(ctx, "IT")
	require.ErrorIs(t, err, department.ErrNotFound)
	got, err := deps.FindByCode(ctx, "COMPANY")
	require.NoError(t, err)
	require.Equal(t, "Company", got.Name())

	begins, commits, rollbacks := store.TxStats()
	require.Equal(t, 1, begins)
	require.Equal(t, 0, commits)
	require.Equal(t, 1, rollbacks)
}

func TestInMemoryStore_CommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	txCtx, err := store.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Departments().Save(txCtx, mustDepartment(t, "COMPANY", "Company", "")))
	require.NoError(t, store.Commit(txCtx))

	d, _, _ := store.Counts()
	require.Equal(t, 1, d)
	require.ErrorIs(t, store.Commit(txCtx), ErrNoTx)
}

func TestInMemoryStore_SingleActiveTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	txCtx, err := store.BeginTransaction(ctx)
	require.NoError(t, err)
	_, err = store.BeginTransaction(ctx)
	require.ErrorIs(t, err, ErrTxActive)

	require.ErrorIs(t, store.Rollback(ctx), ErrNoTx)
	require.NoError(t, store.Rollback(txCtx))
}

func TestInMemoryStore_SaveKeepsDepartmentID(t *testing.T) {
	ctx := context.Background()
	deps := NewInMemoryStore().Departments()

	first := mustDepartment(t, "IT", "IT", "")
	require.NoError(t, deps.Save(ctx, first))
	require.NoError(t, deps.Save(ctx, mustDepartment(t, "IT", "Information Technology", "")))

	got, err := deps.FindByCode(ctx, "IT")
	require.NoError(t, err)
	require.Equal(t, first.ID(), got.ID())
	require.Equal(t, "Information Technology", got.Name())
}

func TestInMemoryStore_EmployeeReferences(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	emps := store.Employees()

	e, err := employee.New("001", "Ivanov Ivan", employee.WithDepartment("IT"), employee.WithPosition("DEV"))
	require.NoError(t, err)
	require.ErrorIs(t, emps.Save(ctx, e), employee.ErrUnknownReference)

	require.NoError(t, store.Departments().Save(ctx, mustDepartment(t, "IT", "IT", "")))
	require.ErrorIs(t, emps.Save(ctx, e), employee.ErrUnknownReference)

	p, err := position.New("DEV", "Developer", "", []string{"Go"})
	require.NoError(t, err)
	require.NoError(t, store.Positions().Save(ctx, p))
	require.NoError(t, emps.Save(ctx, e))

	got, err := emps.FindByTabNumber(ctx, "001")
	require.NoError(t, err)
	require.Equal(t, "Ivanov Ivan", got.FullName())

	_, err = emps.FindByTabNumber(ctx, "002")
	require.ErrorIs(t, err, employee.ErrNotFound)

	exists, err := store.Positions().ExistsByCode(ctx, "DEV")
	require.NoError(t, err)
	require.True(t, exists)
}
