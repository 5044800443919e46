package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
	"github.com/iota-uz/org-import/pkg/tabular"
)

func parseDelimiter(v string) (rune, error) {
	if v == "\t" {
		return '\t', nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "auto":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "tab", `\t`:
		return '\t', nil
	default:
		return 0, fmt.Errorf("invalid --delimiter: %q (expected ,|;|tab|auto)", v)
	}
}

func parseKind(v string) (records.Kind, error) {
	switch records.Kind(strings.ToLower(strings.TrimSpace(v))) {
	case records.KindDepartments:
		return records.KindDepartments, nil
	case records.KindPositions:
		return records.KindPositions, nil
	case records.KindEmployees:
		return records.KindEmployees, nil
	default:
		return "", fmt.Errorf("unknown entity %q (expected departments|positions|employees)", v)
	}
}

// loadTable reads a CSV/TSV or XLSX file.
func loadTable(path string, delimiter rune, sheet string) (tabular.Table, error) {
	if strings.TrimSpace(path) == "" {
		return tabular.Table{}, withCode(exitUsage, errors.New("input file is required"))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return tabular.Table{}, withCode(exitUsage, errors.Wrapf(err, "read %s", path))
	}
	table, err := tabular.Load(b, delimiter, sheet)
	if err != nil {
		return tabular.Table{}, withCode(exitValidation, errors.Wrapf(err, "parse %s", path))
	}
	return table, nil
}

// loadAliases merges the aliases file, when given, over the built-in Russian headers.
func loadAliases(path string) (records.Aliases, error) {
	aliases := records.DefaultAliases()
	if strings.TrimSpace(path) == "" {
		return aliases, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, withCode(exitUsage, errors.Wrapf(err, "open %s", path))
	}
	defer f.Close()

	extra, err := records.LoadAliases(f)
	if err != nil {
		return nil, withCode(exitUsage, errors.Wrapf(err, "load %s", path))
	}
	return aliases.Merge(extra), nil
}
