package services

import (
	"context"
	"fmt"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
	"github.com/iota-uz/org-import/pkg/tabular"
)

// Check converts and validates rows of the given kind without saving anything.
// A header problem is returned as an error; structural problems come back as issues.
func (o *ImportOrchestrator) Check(ctx context.Context, kind records.Kind, t tabular.Table, opts ImportOptions) (ValidationResult, error) {
	vopts := opts.validatorOptions()
	switch kind {
	case records.KindDepartments:
		typed, err := records.Departments(t, o.aliases)
		if err != nil {
			return ValidationResult{}, err
		}
		return o.validator.ValidateDepartmentHierarchy(ctx, typed, vopts)
	case records.KindPositions:
		typed, err := records.Positions(t, o.aliases)
		if err != nil {
			return ValidationResult{}, err
		}
		return o.validator.ValidatePositions(ctx, typed, vopts)
	case records.KindEmployees:
		typed, err := records.Employees(t, o.aliases)
		if err != nil {
			return ValidationResult{}, err
		}
		return o.validator.ValidateEmployeeRelationships(ctx, typed, vopts)
	default:
		return ValidationResult{}, fmt.Errorf("unknown entity kind %q", kind)
	}
}
