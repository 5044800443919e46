package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
	"github.com/iota-uz/org-import/pkg/tabular"
)

// templateRows are sample rows that import cleanly in departments, positions, employees order.
var templateRows = map[records.Kind][][]string{
	records.KindDepartments: {
		{"COMPANY", "ООО Компания", ""},
		{"DEV", "Отдел разработки", "COMPANY"},
		{"QA", "Отдел тестирования", "COMPANY"},
	},
	records.KindPositions: {
		{"SENIOR_DEV", "Старший разработчик", "IT", "Go,PostgreSQL,Mentoring"},
		{"DEV", "Разработчик", "IT", "Go,PostgreSQL"},
		{"QA", "Тестировщик", "IT", "Test design"},
	},
	records.KindEmployees: {
		{"EMP001", "Иванов Иван Иванович", "ivanov@company.ru", "+7-123-456-7890", "DEV", "SENIOR_DEV", ""},
		{"EMP002", "Петров Петр Петрович", "petrov@company.ru", "+7-123-456-7891", "DEV", "DEV", "EMP001"},
		{"EMP003", "Сидорова Мария Ивановна", "sidorova@company.ru", "+7-123-456-7892", "QA", "QA", ""},
	},
}

func newTemplateCmd(env *cliEnv) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:       "template <departments|positions|employees>",
		Short:     "Write a sample import file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(records.KindDepartments), string(records.KindPositions), string(records.KindEmployees)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return withCode(exitUsage, err)
			}
			if format != "csv" && format != "xlsx" {
				return withCode(exitUsage, fmt.Errorf("invalid --format: %s (expected csv|xlsx)", format))
			}

			w := env.stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return withCode(exitUsage, errors.Wrapf(err, "create %s", output))
				}
				defer f.Close()
				w = f
			}
			return writeTemplate(w, kind, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv|xlsx")
	cmd.Flags().StringVar(&output, "output", "", "Output file (default: stdout)")
	return cmd
}

func writeTemplate(w io.Writer, kind records.Kind, format string) error {
	header := records.Columns(kind)
	rows := templateRows[kind]

	if format == "xlsx" {
		if err := tabular.WriteWorkbook(w, string(kind), header, rows); err != nil {
			return withCode(exitUsage, errors.Wrap(err, "write workbook"))
		}
		return nil
	}

	// BOM so that Excel opens the file as UTF-8
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return withCode(exitUsage, errors.Wrap(err, "write template"))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return withCode(exitUsage, errors.Wrap(err, "write template"))
	}
	if err := cw.WriteAll(rows); err != nil {
		return withCode(exitUsage, errors.Wrap(err, "write template"))
	}
	return nil
}
