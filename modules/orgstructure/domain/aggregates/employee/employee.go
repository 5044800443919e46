package employee

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/org-import/pkg/constants"
)

var (
	ErrEmptyTabNumber = errors.New("Tab number cannot be empty")
	ErrEmptyFullName  = errors.New("Employee full name cannot be empty")
	ErrInvalidEmail   = errors.New("invalid email")
	ErrSelfManager    = errors.New("employee cannot be their own manager")
)

type Option func(e *Employee)

func WithEmail(email string) Option {
	return func(e *Employee) { e.email = strings.TrimSpace(email) }
}

func WithPhone(phone string) Option {
	return func(e *Employee) { e.phone = strings.TrimSpace(phone) }
}

func WithDepartment(code string) Option {
	return func(e *Employee) { e.departmentCode = strings.TrimSpace(code) }
}

func WithPosition(code string) Option {
	return func(e *Employee) { e.positionCode = strings.TrimSpace(code) }
}

func WithManager(tabNumber string) Option {
	return func(e *Employee) { e.managerTabNumber = strings.TrimSpace(tabNumber) }
}

func WithID(id uuid.UUID) Option {
	return func(e *Employee) { e.id = id }
}

type Employee struct {
	id               uuid.UUID
	tabNumber        string
	fullName         string
	email            string
	phone            string
	departmentCode   string
	positionCode     string
	managerTabNumber string
}

func New(tabNumber, fullName string, opts ...Option) (Employee, error) {
	e := Hydrate(uuid.New(), tabNumber, fullName, opts...)
	if e.tabNumber == "" {
		return Employee{}, ErrEmptyTabNumber
	}
	if e.fullName == "" {
		return Employee{}, ErrEmptyFullName
	}
	if e.email != "" {
		if err := constants.Validate.Var(e.email, "email"); err != nil {
			return Employee{}, fmt.Errorf("%w: %s", ErrInvalidEmail, e.email)
		}
	}
	if e.managerTabNumber == e.tabNumber {
		return Employee{}, fmt.Errorf("%w: %s", ErrSelfManager, e.tabNumber)
	}
	return e, nil
}

func Hydrate(id uuid.UUID, tabNumber, fullName string, opts ...Option) Employee {
	e := Employee{
		id:        id,
		tabNumber: strings.TrimSpace(tabNumber),
		fullName:  strings.TrimSpace(fullName),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e Employee) ID() uuid.UUID            { return e.id }
func (e Employee) TabNumber() string        { return e.tabNumber }
func (e Employee) FullName() string         { return e.fullName }
func (e Employee) Email() string            { return e.email }
func (e Employee) Phone() string            { return e.phone }
func (e Employee) DepartmentCode() string   { return e.departmentCode }
func (e Employee) PositionCode() string     { return e.positionCode }
func (e Employee) ManagerTabNumber() string { return e.managerTabNumber }
func (e Employee) HasManager() bool         { return e.managerTabNumber != "" }
