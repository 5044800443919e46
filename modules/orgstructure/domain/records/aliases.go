package records

import (
	"fmt"
	"io"
	"maps"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Aliases maps alternative header names to canonical column names.
// Lookups ignore case and surrounding whitespace.
type Aliases map[string]string

// DefaultAliases covers the headers of spreadsheets exported from Russian-locale HR systems.
func DefaultAliases() Aliases {
	return Aliases{
		"код":                        ColumnCode,
		"код подразделения":          ColumnCode,
		"код должности":              ColumnCode,
		"название":                   ColumnName,
		"наименование":               ColumnName,
		"код родителя":               ColumnParentCode,
		"родительское подразделение": ColumnParentCode,
		"категория":                  ColumnCategory,
		"компетенции":                ColumnCompetencies,
		"табельный номер":            ColumnTabNumber,
		"таб.номер":                  ColumnTabNumber,
		"таб. номер":                 ColumnTabNumber,
		"фио":                        ColumnFullName,
		"e-mail":                     ColumnEmail,
		"эл. почта":                  ColumnEmail,
		"телефон":                    ColumnPhone,
		"подразделение":              ColumnDepartmentID,
		"должность":                  ColumnPositionID,
		"руководитель":               ColumnManagerID,
		"таб. номер руководителя":    ColumnManagerID,
	}
}

// LoadAliases reads a flat YAML mapping of alias to canonical column, e.g.
//
//	"Штатная единица": position_id
func LoadAliases(r io.Reader) (Aliases, error) {
	var raw map[string]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return Aliases{}, nil
		}
		return nil, fmt.Errorf("decode header aliases: %w", err)
	}
	out := make(Aliases, len(raw))
	for alias, canonical := range raw {
		canonical = strings.TrimSpace(canonical)
		if !knownColumn(canonical) {
			return nil, fmt.Errorf("header alias %q maps to unknown column %q", alias, canonical)
		}
		out[normalizeHeader(alias)] = canonical
	}
	return out, nil
}

// Merge returns a copy of a overlaid with other.
func (a Aliases) Merge(other Aliases) Aliases {
	out := make(Aliases, len(a)+len(other))
	maps.Copy(out, a)
	for k, v := range other {
		out[normalizeHeader(k)] = v
	}
	return out
}

func (a Aliases) Canonical(header string) string {
	key := normalizeHeader(header)
	if knownColumn(key) {
		return key
	}
	if c, ok := a[key]; ok {
		return c
	}
	return strings.TrimSpace(header)
}

// canonicalize re-keys values by canonical column. When several headers map to the
// same column, an exact canonical header wins, then the lexically first alias.
func (a Aliases) canonicalize(values map[string]string) map[string]string {
	headers := make([]string, 0, len(values))
	for h := range values {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	out := make(map[string]string, len(values))
	exact := make(map[string]bool, len(values))
	for _, h := range headers {
		c := a.Canonical(h)
		isExact := normalizeHeader(h) == c
		if _, taken := out[c]; taken && (exact[c] || !isExact) {
			continue
		}
		out[c] = values[h]
		exact[c] = isExact
	}
	return out
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
