package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
	"github.com/iota-uz/org-import/modules/orgstructure/services"
	"github.com/iota-uz/org-import/pkg/configuration"
	"github.com/iota-uz/org-import/pkg/tabular"
)

type importFlags struct {
	file        string
	departments string
	positions   string
	employees   string

	delimiter string
	sheet     string
	aliases   string
	dryRun    bool

	skipOnError         bool
	useTransaction      bool
	mode                string
	references          string
	detectManagerCycles bool
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "auto", "Field delimiter for text input: ,|;|tab|auto")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Worksheet to read from XLSX input (default: first sheet)")
	cmd.Flags().StringVar(&f.aliases, "aliases", "", "YAML file with extra header aliases (default: IMPORT_HEADER_ALIASES)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Run against an empty in-memory store instead of the database")
	// Unset flags fall back to IMPORT_* configuration.
	cmd.Flags().BoolVar(&f.skipOnError, "skip-on-error", false, "Skip failing rows instead of stopping (default: IMPORT_SKIP_ON_ERROR, false)")
	cmd.Flags().BoolVar(&f.useTransaction, "use-transaction", false, "Save all rows in one transaction (default: IMPORT_USE_TRANSACTION, true)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Existing rows: upsert|create (default: IMPORT_MODE, upsert)")
	cmd.Flags().StringVar(&f.references, "references", "", "Dangling references reject: batch|record (default: IMPORT_REFERENCE_POLICY, batch)")
	cmd.Flags().BoolVar(&f.detectManagerCycles, "detect-manager-cycles", false, "Reject circular management chains (default: IMPORT_DETECT_MANAGER_CYCLES, true)")
}

// options starts from the configured defaults and applies the flags that were set explicitly.
func (f *importFlags) options(cmd *cobra.Command, conf configuration.ImportOptions) (services.ImportOptions, error) {
	flags := cmd.Flags()
	opts := services.ImportOptions{
		SkipOnError:         conf.SkipOnError,
		UseTransaction:      conf.UseTransaction,
		DetectManagerCycles: conf.DetectManagerCycles,
	}
	if flags.Changed("skip-on-error") {
		opts.SkipOnError = f.skipOnError
	}
	if flags.Changed("use-transaction") {
		opts.UseTransaction = f.useTransaction
	}
	if flags.Changed("detect-manager-cycles") {
		opts.DetectManagerCycles = f.detectManagerCycles
	}

	policy := conf.ReferencePolicy
	if flags.Changed("references") {
		policy = f.references
	}
	references, err := services.ParseReferencePolicy(policy)
	if err != nil {
		return opts, withCode(exitUsage, err)
	}
	opts.References = references

	mode := conf.Mode
	if flags.Changed("mode") {
		mode = f.mode
	}
	importMode, err := services.ParseImportMode(mode)
	if err != nil {
		return opts, withCode(exitUsage, err)
	}
	opts.Mode = importMode
	return opts, nil
}

func (f *importFlags) aliasesPath(conf configuration.ImportOptions) string {
	if f.aliases != "" {
		return f.aliases
	}
	return conf.HeaderAliasesPath
}

func newImportCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import org structure entities",
	}
	for _, kind := range []records.Kind{records.KindDepartments, records.KindPositions, records.KindEmployees} {
		cmd.AddCommand(newImportKindCmd(env, kind))
	}
	cmd.AddCommand(newImportFullCmd(env))
	return cmd
}

func newImportKindCmd(env *cliEnv, kind records.Kind) *cobra.Command {
	var f importFlags

	cmd := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("Import %s from a CSV or XLSX file", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd, env.conf.Import)
			if err != nil {
				return err
			}
			return runImportKind(cmd.Context(), env, kind, f, opts)
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "Input file (required)")
	f.register(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newImportFullCmd(env *cliEnv) *cobra.Command {
	var f importFlags

	cmd := &cobra.Command{
		Use:   "full",
		Short: "Import departments, positions and employees in that order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd, env.conf.Import)
			if err != nil {
				return err
			}
			return runImportFull(cmd.Context(), env, f, opts)
		},
	}
	cmd.Flags().StringVar(&f.departments, "departments", "", "Departments file (required)")
	cmd.Flags().StringVar(&f.positions, "positions", "", "Positions file (required)")
	cmd.Flags().StringVar(&f.employees, "employees", "", "Employees file (required)")
	f.register(cmd)
	_ = cmd.MarkFlagRequired("departments")
	_ = cmd.MarkFlagRequired("positions")
	_ = cmd.MarkFlagRequired("employees")
	return cmd
}

func (e *cliEnv) orchestrator(ctx context.Context, f importFlags) (context.Context, *services.ImportOrchestrator, backend, error) {
	aliases, err := loadAliases(f.aliasesPath(e.conf.Import))
	if err != nil {
		return ctx, nil, backend{}, err
	}
	ctx, b, err := e.openBackend(ctx, f.dryRun)
	if err != nil {
		return ctx, nil, backend{}, err
	}
	o := services.NewImportOrchestrator(b.departments, b.positions, b.employees, services.WithAliases(aliases))
	return ctx, o, b, nil
}

func runImportKind(ctx context.Context, env *cliEnv, kind records.Kind, f importFlags, opts services.ImportOptions) error {
	delimiter, err := parseDelimiter(f.delimiter)
	if err != nil {
		return withCode(exitUsage, err)
	}
	table, err := loadTable(f.file, delimiter, f.sheet)
	if err != nil {
		return err
	}

	ctx, o, b, err := env.orchestrator(ctx, f)
	if err != nil {
		return err
	}
	defer b.close()

	var res *services.ImportResult
	switch kind {
	case records.KindDepartments:
		res = o.ImportDepartmentTable(ctx, table, opts)
	case records.KindPositions:
		res = o.ImportPositionTable(ctx, table, opts)
	default:
		res = o.ImportEmployeeTable(ctx, table, opts)
	}
	return env.report(res)
}

func runImportFull(ctx context.Context, env *cliEnv, f importFlags, opts services.ImportOptions) error {
	delimiter, err := parseDelimiter(f.delimiter)
	if err != nil {
		return withCode(exitUsage, err)
	}

	var in services.FullImportInput
	for _, src := range []struct {
		path string
		dst  *tabular.Table
	}{
		{f.departments, &in.Departments},
		{f.positions, &in.Positions},
		{f.employees, &in.Employees},
	} {
		table, err := loadTable(src.path, delimiter, f.sheet)
		if err != nil {
			return err
		}
		*src.dst = table
	}

	ctx, o, b, err := env.orchestrator(ctx, f)
	if err != nil {
		return err
	}
	defer b.close()

	return env.report(o.ImportFullOrgStructureTables(ctx, in, opts))
}

func (e *cliEnv) report(res *services.ImportResult) error {
	e.writeMetrics()
	if err := writeJSONLine(e.stdout, res); err != nil {
		return err
	}
	return resultError(res)
}

func resultError(res *services.ImportResult) error {
	switch {
	case res.IsSuccess():
		return nil
	case res.IsPartialSuccess():
		return withCode(exitValidation, fmt.Errorf("import partially succeeded: %d imported, %d failed",
			res.ImportedCount, res.FailedCount))
	case res.FailedStage == services.StagePersisting:
		return withCode(exitDBWrite, fmt.Errorf("import failed while persisting: %s", firstMessage(res)))
	default:
		return withCode(exitValidation, fmt.Errorf("import failed while %s: %s", res.FailedStage, firstMessage(res)))
	}
}

func firstMessage(res *services.ImportResult) string {
	if len(res.Errors) == 0 {
		return "no details"
	}
	return res.Errors[0].Message
}
