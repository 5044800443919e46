package records

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/department"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/employee"
	"github.com/iota-uz/org-import/modules/orgstructure/domain/aggregates/position"
	"github.com/iota-uz/org-import/pkg/constants"
	"github.com/iota-uz/org-import/pkg/tabular"
)

type Kind string

const (
	KindDepartments Kind = "departments"
	KindPositions   Kind = "positions"
	KindEmployees   Kind = "employees"
)

const (
	ColumnCode         = "code"
	ColumnName         = "name"
	ColumnParentCode   = "parent_code"
	ColumnCategory     = "category"
	ColumnCompetencies = "competencies"
	ColumnTabNumber    = "tab_number"
	ColumnFullName     = "full_name"
	ColumnEmail        = "email"
	ColumnPhone        = "phone"
	ColumnDepartmentID = "department_id"
	ColumnPositionID   = "position_id"
	ColumnManagerID    = "manager_id"
)

var requiredColumns = map[Kind][]string{
	KindDepartments: {ColumnCode, ColumnName},
	KindPositions:   {ColumnCode, ColumnName},
	KindEmployees:   {ColumnTabNumber, ColumnFullName, ColumnDepartmentID},
}

var allColumns = map[Kind][]string{
	KindDepartments: {ColumnCode, ColumnName, ColumnParentCode},
	KindPositions:   {ColumnCode, ColumnName, ColumnCategory, ColumnCompetencies},
	KindEmployees: {
		ColumnTabNumber, ColumnFullName, ColumnEmail, ColumnPhone,
		ColumnDepartmentID, ColumnPositionID, ColumnManagerID,
	},
}

func RequiredColumns(kind Kind) []string { return append([]string(nil), requiredColumns[kind]...) }
func Columns(kind Kind) []string         { return append([]string(nil), allColumns[kind]...) }

func knownColumn(c string) bool {
	for _, cols := range allColumns {
		for _, known := range cols {
			if known == c {
				return true
			}
		}
	}
	return false
}

var ErrMissingColumns = errors.New("missing required header column")

type MissingColumnsError struct {
	Kind    Kind
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

type DepartmentRecord struct {
	Row        int
	Code       string `validate:"required,max=64"`
	Name       string `validate:"required,max=255"`
	ParentCode string `validate:"omitempty,max=64"`
}

type PositionRecord struct {
	Row          int
	Code         string `validate:"required,max=64"`
	Name         string `validate:"required,max=255"`
	Category     string `validate:"omitempty,max=128"`
	Competencies []string
}

type EmployeeRecord struct {
	Row              int
	TabNumber        string `validate:"required,max=32"`
	FullName         string `validate:"required,max=255"`
	Email            string `validate:"omitempty,email"`
	Phone            string `validate:"omitempty,max=32"`
	DepartmentCode   string `validate:"required,max=64"`
	PositionCode     string `validate:"omitempty,max=64"`
	ManagerTabNumber string `validate:"omitempty,max=32"`
}

func Departments(t tabular.Table, aliases Aliases) ([]DepartmentRecord, error) {
	values, err := canonicalRows(t, aliases, KindDepartments)
	if err != nil {
		return nil, err
	}
	out := make([]DepartmentRecord, len(values))
	for i, v := range values {
		out[i] = DepartmentRecord{
			Row:        t.Records[i].Row,
			Code:       strings.TrimSpace(v[ColumnCode]),
			Name:       strings.TrimSpace(v[ColumnName]),
			ParentCode: strings.TrimSpace(v[ColumnParentCode]),
		}
	}
	return out, nil
}

func Positions(t tabular.Table, aliases Aliases) ([]PositionRecord, error) {
	values, err := canonicalRows(t, aliases, KindPositions)
	if err != nil {
		return nil, err
	}
	out := make([]PositionRecord, len(values))
	for i, v := range values {
		out[i] = PositionRecord{
			Row:          t.Records[i].Row,
			Code:         strings.TrimSpace(v[ColumnCode]),
			Name:         strings.TrimSpace(v[ColumnName]),
			Category:     strings.TrimSpace(v[ColumnCategory]),
			Competencies: SplitCompetencies(v[ColumnCompetencies]),
		}
	}
	return out, nil
}

func Employees(t tabular.Table, aliases Aliases) ([]EmployeeRecord, error) {
	values, err := canonicalRows(t, aliases, KindEmployees)
	if err != nil {
		return nil, err
	}
	out := make([]EmployeeRecord, len(values))
	for i, v := range values {
		out[i] = EmployeeRecord{
			Row:              t.Records[i].Row,
			TabNumber:        strings.TrimSpace(v[ColumnTabNumber]),
			FullName:         strings.TrimSpace(v[ColumnFullName]),
			Email:            strings.TrimSpace(v[ColumnEmail]),
			Phone:            strings.TrimSpace(v[ColumnPhone]),
			DepartmentCode:   strings.TrimSpace(v[ColumnDepartmentID]),
			PositionCode:     strings.TrimSpace(v[ColumnPositionID]),
			ManagerTabNumber: strings.TrimSpace(v[ColumnManagerID]),
		}
	}
	return out, nil
}

// SplitCompetencies splits a comma separated list, dropping blanks.
func SplitCompetencies(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// canonicalRows checks the header for required columns, even when there are no
// data rows, and re-keys every record by canonical column.
func canonicalRows(t tabular.Table, aliases Aliases, kind Kind) ([]map[string]string, error) {
	header := make([]string, len(t.Header))
	for i, h := range t.Header {
		header[i] = aliases.Canonical(h)
	}
	if missing := tabular.MissingColumns(header, requiredColumns[kind]); missing != nil {
		return nil, &MissingColumnsError{Kind: kind, Columns: missing}
	}

	out := make([]map[string]string, len(t.Records))
	for i, rec := range t.Records {
		out[i] = aliases.canonicalize(rec.Values)
	}
	return out, nil
}

// Problems lists the field-level defects of the record, in field order.
func (r DepartmentRecord) Problems() []string {
	return problems(r, func(fe validator.FieldError) string {
		switch fe.Field() + "." + fe.Tag() {
		case "Code.required":
			return department.ErrEmptyCode.Error()
		case "Name.required":
			return department.ErrEmptyName.Error()
		}
		return ""
	})
}

func (r PositionRecord) Problems() []string {
	return problems(r, func(fe validator.FieldError) string {
		switch fe.Field() + "." + fe.Tag() {
		case "Code.required":
			return position.ErrEmptyCode.Error()
		case "Name.required":
			return position.ErrEmptyName.Error()
		}
		return ""
	})
}

func (r EmployeeRecord) Problems() []string {
	return problems(r, func(fe validator.FieldError) string {
		switch fe.Field() + "." + fe.Tag() {
		case "TabNumber.required":
			return employee.ErrEmptyTabNumber.Error()
		case "FullName.required":
			return employee.ErrEmptyFullName.Error()
		case "Email.email":
			return fmt.Sprintf("Invalid email: %s", r.Email)
		case "DepartmentCode.required":
			return fmt.Sprintf("Employee %s has no department", r.TabNumber)
		}
		return ""
	})
}

func problems(v any, message func(validator.FieldError) string) []string {
	err := constants.Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := message(fe)
		if msg == "" {
			msg = defaultMessage(fe)
		}
		out = append(out, msg)
	}
	return out
}

func defaultMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", fe.Field(), fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}
