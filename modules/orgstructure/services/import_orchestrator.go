package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/position"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
	"github.com/iota-uz/org-import/pkg/constants"
	"github.com/iota-uz/org-import/pkg/tabular"
)

var tracer = otel.Tracer("github.com/iota-uz/org-import/modules/orgstructure/services")

// conflictErrors are storage errors that concern a single row rather than the whole run.
var conflictErrors = []error{
	department.ErrCodeTaken,
	position.ErrCodeTaken,
	employee.ErrTabNumberTaken,
	employee.ErrUnknownReference,
}

type OrchestratorOption func(o *ImportOrchestrator)

func WithAliases(a records.Aliases) OrchestratorOption {
	return func(o *ImportOrchestrator) { o.aliases = a }
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *ImportOrchestrator) { o.now = now }
}

// ImportOrchestrator drives parse, validate and persist for each entity kind.
// Transactions are opened through the department repository.
type ImportOrchestrator struct {
	departments department.Repository
	positions   position.Repository
	employees   employee.Repository
	validator   *RelationshipValidator
	aliases     records.Aliases
	now         func() time.Time
}

func NewImportOrchestrator(
	departments department.Repository,
	positions position.Repository,
	employees employee.Repository,
	opts ...OrchestratorOption,
) *ImportOrchestrator {
	o := &ImportOrchestrator{
		departments: departments,
		positions:   positions,
		employees:   employees,
		validator:   NewRelationshipValidator(departments, positions, employees),
		aliases:     records.DefaultAliases(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *ImportOrchestrator) ImportDepartments(ctx context.Context, csv string, delimiter rune, opts ImportOptions) *ImportResult {
	return o.importText(ctx, records.KindDepartments, csv, delimiter, opts, o.ImportDepartmentTable)
}

func (o *ImportOrchestrator) ImportPositions(ctx context.Context, csv string, delimiter rune, opts ImportOptions) *ImportResult {
	return o.importText(ctx, records.KindPositions, csv, delimiter, opts, o.ImportPositionTable)
}

func (o *ImportOrchestrator) ImportEmployees(ctx context.Context, csv string, delimiter rune, opts ImportOptions) *ImportResult {
	return o.importText(ctx, records.KindEmployees, csv, delimiter, opts, o.ImportEmployeeTable)
}

func (o *ImportOrchestrator) ImportDepartmentTable(ctx context.Context, t tabular.Table, opts ImportOptions) *ImportResult {
	return runImport(ctx, o, t, opts, importPlan[records.DepartmentRecord]{
		kind:     records.KindDepartments,
		convert:  records.Departments,
		validate: o.validator.ValidateDepartmentHierarchy,
		row:      func(r records.DepartmentRecord) int { return r.Row },
		link:     o.parentLink(),
		save: func(ctx context.Context, r records.DepartmentRecord) error {
			d, err := department.New(r.Code, r.Name, r.ParentCode)
			if err != nil {
				return recordError{err}
			}
			return o.departments.Save(ctx, d)
		},
	})
}

func (o *ImportOrchestrator) ImportPositionTable(ctx context.Context, t tabular.Table, opts ImportOptions) *ImportResult {
	return runImport(ctx, o, t, opts, importPlan[records.PositionRecord]{
		kind:     records.KindPositions,
		convert:  records.Positions,
		validate: o.validator.ValidatePositions,
		row:      func(r records.PositionRecord) int { return r.Row },
		save: func(ctx context.Context, r records.PositionRecord) error {
			p, err := position.New(r.Code, r.Name, r.Category, r.Competencies)
			if err != nil {
				return recordError{err}
			}
			return o.positions.Save(ctx, p)
		},
	})
}

func (o *ImportOrchestrator) ImportEmployeeTable(ctx context.Context, t tabular.Table, opts ImportOptions) *ImportResult {
	return runImport(ctx, o, t, opts, importPlan[records.EmployeeRecord]{
		kind:     records.KindEmployees,
		convert:  records.Employees,
		validate: o.validator.ValidateEmployeeRelationships,
		row:      func(r records.EmployeeRecord) int { return r.Row },
		link:     o.managerLink(),
		save: func(ctx context.Context, r records.EmployeeRecord) error {
			e, err := employee.New(r.TabNumber, r.FullName,
				employee.WithEmail(r.Email),
				employee.WithPhone(r.Phone),
				employee.WithDepartment(r.DepartmentCode),
				employee.WithPosition(r.PositionCode),
				employee.WithManager(r.ManagerTabNumber),
			)
			if err != nil {
				return recordError{err}
			}
			return o.employees.Save(ctx, e)
		},
	})
}

// FullImportInput holds already parsed files for ImportFullOrgStructureTables.
type FullImportInput struct {
	Departments tabular.Table
	Positions   tabular.Table
	Employees   tabular.Table
}

// ImportFullOrgStructure imports departments, then positions, then employees.
// A stage that fails outright stops the stages after it.
func (o *ImportOrchestrator) ImportFullOrgStructure(
	ctx context.Context,
	departmentsCSV, positionsCSV, employeesCSV string,
	opts FullImportOptions,
) *ImportResult {
	return o.importFull(ctx, []fullStage{
		{kind: records.KindDepartments, run: func(ctx context.Context) *ImportResult {
			return o.ImportDepartments(ctx, departmentsCSV, opts.DepartmentsDelimiter, opts.ImportOptions)
		}},
		{kind: records.KindPositions, run: func(ctx context.Context) *ImportResult {
			return o.ImportPositions(ctx, positionsCSV, opts.PositionsDelimiter, opts.ImportOptions)
		}},
		{kind: records.KindEmployees, run: func(ctx context.Context) *ImportResult {
			return o.ImportEmployees(ctx, employeesCSV, opts.EmployeesDelimiter, opts.ImportOptions)
		}},
	})
}

func (o *ImportOrchestrator) ImportFullOrgStructureTables(ctx context.Context, in FullImportInput, opts ImportOptions) *ImportResult {
	return o.importFull(ctx, []fullStage{
		{kind: records.KindDepartments, run: func(ctx context.Context) *ImportResult {
			return o.ImportDepartmentTable(ctx, in.Departments, opts)
		}},
		{kind: records.KindPositions, run: func(ctx context.Context) *ImportResult {
			return o.ImportPositionTable(ctx, in.Positions, opts)
		}},
		{kind: records.KindEmployees, run: func(ctx context.Context) *ImportResult {
			return o.ImportEmployeeTable(ctx, in.Employees, opts)
		}},
	})
}

type fullStage struct {
	kind records.Kind
	run  func(ctx context.Context) *ImportResult
}

func (o *ImportOrchestrator) importFull(ctx context.Context, stages []fullStage) *ImportResult {
	runID := runIDFromContext(ctx)
	ctx = context.WithValue(ctx, constants.RunIDKey, runID)

	ctx, span := tracer.Start(ctx, "orgstructure.import_full", trace.WithAttributes(
		attribute.String("import.run_id", runID.String()),
	))
	defer span.End()

	res := &ImportResult{
		RunID:     runID,
		StartedAt: o.now(),
		Details:   make(map[string]*ImportResult, len(stages)),
		Errors:    []ImportError{},
	}
	logWithFields(ctx, logrus.InfoLevel, "orgstructure.import.full.started", logrus.Fields{"run_id": runID})

	failed := false
	for _, stage := range stages {
		stageRes := stage.run(ctx)
		res.Details[string(stage.kind)] = stageRes
		res.ImportedCount += stageRes.ImportedCount
		res.FailedCount += stageRes.FailedCount
		res.Errors = append(res.Errors, stageRes.Errors...)
		if stageRes.IsFailure() {
			failed = true
			res.FailedStage = stageRes.FailedStage
			break
		}
	}

	if failed {
		res.Status = StatusFailure
	} else {
		res.settle(StagePersisting)
	}
	res.FinishedAt = o.now()

	span.SetAttributes(
		attribute.String("import.status", string(res.Status)),
		attribute.Int("import.imported", res.ImportedCount),
		attribute.Int("import.failed", res.FailedCount),
	)
	if failed {
		span.SetStatus(codes.Error, "full import failed")
	}
	recordRun("full", res.Status)
	logWithFields(ctx, levelFor(res.Status), "orgstructure.import.full.finished", logrus.Fields{
		"run_id":   runID,
		"status":   res.Status,
		"imported": res.ImportedCount,
		"failed":   res.FailedCount,
	})
	return res
}

func (o *ImportOrchestrator) importText(
	ctx context.Context,
	kind records.Kind,
	content string,
	delimiter rune,
	opts ImportOptions,
	next func(context.Context, tabular.Table, ImportOptions) *ImportResult,
) *ImportResult {
	table, err := tabular.ParseTable(content, delimiter)
	if err != nil {
		res := o.newResult(ctx, kind)
		res.addError(rowOfParseError(err), err.Error())
		res.fail(StageParsing)
		res.FinishedAt = o.now()
		recordRun(string(kind), res.Status)
		logWithFields(ctx, logrus.WarnLevel, "orgstructure.import.rejected", logrus.Fields{
			"run_id": res.RunID,
			"entity": kind,
			"stage":  StageParsing,
			"error":  err.Error(),
		})
		return res
	}
	return next(ctx, table, opts)
}

func (o *ImportOrchestrator) newResult(ctx context.Context, kind records.Kind) *ImportResult {
	return &ImportResult{
		RunID:     runIDFromContext(ctx),
		Entity:    kind,
		StartedAt: o.now(),
		Errors:    []ImportError{},
	}
}

type importPlan[R any] struct {
	kind     records.Kind
	convert  func(tabular.Table, records.Aliases) ([]R, error)
	validate func(context.Context, []R, ValidatorOptions) (ValidationResult, error)
	row      func(R) int
	save     func(context.Context, R) error
	// link is set for kinds whose rows can point at other rows of the same batch.
	link *batchLink[R]
}

// recordError marks a failure that belongs to one row and is subject to the skip policy.
type recordError struct{ err error }

func (e recordError) Error() string { return e.err.Error() }
func (e recordError) Unwrap() error { return e.err }

func isRecordError(err error) bool {
	var re recordError
	if errors.As(err, &re) {
		return true
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func runImport[R any](ctx context.Context, o *ImportOrchestrator, raw tabular.Table, opts ImportOptions, plan importPlan[R]) *ImportResult {
	res := o.newResult(ctx, plan.kind)
	started := time.Now()

	ctx, span := tracer.Start(ctx, "orgstructure.import_"+string(plan.kind), trace.WithAttributes(
		attribute.String("import.entity", string(plan.kind)),
		attribute.String("import.run_id", res.RunID.String()),
		attribute.Int("import.rows", len(raw.Records)),
		attribute.Bool("import.use_transaction", opts.UseTransaction),
		attribute.Bool("import.skip_on_error", opts.SkipOnError),
	))
	defer span.End()

	fields := logrus.Fields{"run_id": res.RunID, "entity": plan.kind}
	logWithFields(ctx, logrus.InfoLevel, "orgstructure.import.started", withFields(fields, logrus.Fields{
		"rows":            len(raw.Records),
		"use_transaction": opts.UseTransaction,
		"skip_on_error":   opts.SkipOnError,
	}))

	defer func() {
		res.FinishedAt = o.now()
		span.SetAttributes(
			attribute.String("import.status", string(res.Status)),
			attribute.Int("import.imported", res.ImportedCount),
			attribute.Int("import.failed", res.FailedCount),
		)
		if res.IsFailure() {
			span.SetStatus(codes.Error, string(res.FailedStage))
		}
		recordRun(string(plan.kind), res.Status)
		observeDuration(string(plan.kind), time.Since(started))
		logWithFields(ctx, levelFor(res.Status), "orgstructure.import.finished", withFields(fields, logrus.Fields{
			"status":   res.Status,
			"imported": res.ImportedCount,
			"failed":   res.FailedCount,
		}))
	}()

	typed, err := plan.convert(raw, o.aliases)
	if err != nil {
		res.addError(0, err.Error())
		res.fail(StageParsing)
		return res
	}

	validation, err := plan.validate(ctx, typed, opts.validatorOptions())
	if err != nil {
		span.RecordError(err)
		res.addError(0, err.Error())
		res.fail(StageValidating)
		return res
	}
	recordValidationIssues(string(plan.kind), validation)
	if validation.HasBatchIssues() {
		for _, issue := range validation.Issues {
			res.addError(issue.Row, issue.Message)
		}
		res.FailedCount = len(typed)
		res.fail(StageValidating)
		logWithFields(ctx, logrus.WarnLevel, "orgstructure.import.rejected", withFields(fields, logrus.Fields{
			"stage":  StageValidating,
			"issues": len(validation.Issues),
		}))
		return res
	}
	rowIssues := validation.ByRow()
	refs, err := newRejectedRefs(ctx, typed, plan.row, plan.link, rowIssues)
	if err != nil {
		span.RecordError(err)
		res.addError(0, err.Error())
		res.fail(StageValidating)
		return res
	}

	saveCtx := ctx
	if opts.UseTransaction {
		txCtx, err := o.departments.BeginTransaction(ctx)
		if err != nil {
			span.RecordError(err)
			res.addError(0, fmt.Sprintf("begin transaction: %s", err))
			res.fail(StagePersisting)
			return res
		}
		saveCtx = txCtx
	}

	rollback := func() {
		if !opts.UseTransaction {
			return
		}
		if err := o.departments.Rollback(saveCtx); err != nil {
			res.addError(0, fmt.Sprintf("rollback: %s", err))
			logWithFields(ctx, logrus.ErrorLevel, "orgstructure.import.rollback_failed", withFields(fields, logrus.Fields{
				"error": err.Error(),
			}))
			return
		}
		logWithFields(ctx, logrus.WarnLevel, "orgstructure.import.rolled_back", fields)
	}

	imported := 0
	failStage := StageValidating
	for _, rec := range typed {
		row := plan.row(rec)

		if issues := rowIssues[row]; len(issues) > 0 {
			for _, issue := range issues {
				res.addError(row, issue.Message)
			}
			res.FailedCount++
			recordRecord(string(plan.kind), "failed")
			logWithFields(ctx, logrus.InfoLevel, "orgstructure.import.record_failed", withFields(fields, logrus.Fields{
				"row":    row,
				"reason": issues[0].Message,
			}))
			if !opts.SkipOnError {
				return abort(res, imported, opts, rollback, StageValidating)
			}
			continue
		}

		err := refs.check(saveCtx, rec)
		if err == nil {
			err = plan.save(saveCtx, rec)
		}
		if err != nil {
			if isRecordError(err) {
				refs.reject(rec)
				failStage = StagePersisting
				res.addError(row, err.Error())
				res.FailedCount++
				recordRecord(string(plan.kind), "failed")
				logWithFields(ctx, logrus.InfoLevel, "orgstructure.import.record_failed", withFields(fields, logrus.Fields{
					"row":    row,
					"reason": err.Error(),
				}))
				if !opts.SkipOnError {
					return abort(res, imported, opts, rollback, StagePersisting)
				}
				continue
			}

			span.RecordError(err)
			res.addError(row, err.Error())
			res.FailedCount++
			recordRecord(string(plan.kind), "failed")
			logWithFields(ctx, logrus.ErrorLevel, "orgstructure.import.storage_failed", withFields(fields, logrus.Fields{
				"row":   row,
				"error": err.Error(),
			}))
			if opts.UseTransaction {
				rollback()
				res.fail(StagePersisting)
				return res
			}
			res.ImportedCount = imported
			res.settle(StagePersisting)
			return res
		}

		imported++
		recordRecord(string(plan.kind), "imported")
	}

	if opts.UseTransaction {
		if err := o.departments.Commit(saveCtx); err != nil {
			span.RecordError(err)
			res.addError(0, fmt.Sprintf("commit: %s", err))
			res.fail(StagePersisting)
			return res
		}
	}

	res.ImportedCount = imported
	res.settle(failStage)
	return res
}

// abort stops a run on the first failed row when errors are not skipped.
// Inside a transaction nothing that was saved survives.
func abort(res *ImportResult, imported int, opts ImportOptions, rollback func(), stage Stage) *ImportResult {
	if opts.UseTransaction {
		rollback()
		res.fail(stage)
		return res
	}
	res.ImportedCount = imported
	res.settle(stage)
	return res
}

func rowOfParseError(err error) int {
	var rowErr *tabular.InvalidRowError
	if errors.As(err, &rowErr) {
		return rowErr.Row
	}
	return 0
}

func runIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(constants.RunIDKey).(uuid.UUID); ok && id != uuid.Nil {
		return id
	}
	return uuid.New()
}
