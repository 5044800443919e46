package department

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyCode  = errors.New("Department code cannot be empty")
	ErrEmptyName  = errors.New("Department name cannot be empty")
	ErrSelfParent = errors.New("Department cannot be its own parent")
)

type Department struct {
	id         uuid.UUID
	code       string
	name       string
	parentCode string
	createdAt  time.Time
	updatedAt  time.Time
}

// New validates the fields and assigns a fresh ID. An empty parentCode marks a root department.
func New(code, name, parentCode string) (Department, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	parentCode = strings.TrimSpace(parentCode)

	if code == "" {
		return Department{}, ErrEmptyCode
	}
	if name == "" {
		return Department{}, ErrEmptyName
	}
	if parentCode == code {
		return Department{}, ErrSelfParent
	}
	return Department{
		id:         uuid.New(),
		code:       code,
		name:       name,
		parentCode: parentCode,
	}, nil
}

func Hydrate(
	id uuid.UUID,
	code string,
	name string,
	parentCode string,
	createdAt time.Time,
	updatedAt time.Time,
) Department {
	return Department{
		id:         id,
		code:       strings.TrimSpace(code),
		name:       strings.TrimSpace(name),
		parentCode: strings.TrimSpace(parentCode),
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (d Department) ID() uuid.UUID        { return d.id }
func (d Department) Code() string         { return d.code }
func (d Department) Name() string         { return d.name }
func (d Department) ParentCode() string   { return d.parentCode }
func (d Department) IsRoot() bool         { return d.parentCode == "" }
func (d Department) CreatedAt() time.Time { return d.createdAt }
func (d Department) UpdatedAt() time.Time { return d.updatedAt }
func (d Department) IsZero() bool         { return d.id == uuid.Nil && d.code == "" }
