package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
	"github.com/iota-uz/org-import/modules/orgstructure/services"
)

type validationReport struct {
	Entity records.Kind               `json:"entity"`
	Rows   int                        `json:"rows"`
	Valid  bool                       `json:"valid"`
	Issues []services.ValidationIssue `json:"issues"`
}

func newValidateCmd(env *cliEnv) *cobra.Command {
	var f importFlags

	cmd := &cobra.Command{
		Use:       "validate <departments|positions|employees>",
		Short:     "Check a file for structural problems without saving it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(records.KindDepartments), string(records.KindPositions), string(records.KindEmployees)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return withCode(exitUsage, err)
			}
			opts, err := f.options(cmd, env.conf.Import)
			if err != nil {
				return err
			}
			delimiter, err := parseDelimiter(f.delimiter)
			if err != nil {
				return withCode(exitUsage, err)
			}
			table, err := loadTable(f.file, delimiter, f.sheet)
			if err != nil {
				return err
			}

			ctx, o, b, err := env.orchestrator(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer b.close()

			// lookups see one snapshot of the database
			var res services.ValidationResult
			err = b.inTx(ctx, func(txCtx context.Context) error {
				var checkErr error
				res, checkErr = o.Check(txCtx, kind, table, opts)
				return checkErr
			})
			if err != nil {
				if is(err, records.ErrMissingColumns) {
					return withCode(exitValidation, err)
				}
				return withCode(exitDB, err)
			}

			report := validationReport{Entity: kind, Rows: len(table.Records), Valid: res.Valid(), Issues: res.Issues}
			if report.Issues == nil {
				report.Issues = []services.ValidationIssue{}
			}
			if err := writeJSONLine(env.stdout, report); err != nil {
				return err
			}
			if !res.Valid() {
				return withCode(exitValidation, fmt.Errorf("%s: %d validation issue(s)", kind, len(res.Issues)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "Input file (required)")
	f.register(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
