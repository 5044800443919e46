package position

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyCode = errors.New("Position code cannot be empty")
	ErrEmptyName = errors.New("Position name cannot be empty")
)

type Position struct {
	id           uuid.UUID
	code         string
	name         string
	category     string
	competencies []string
}

func New(code, name, category string, competencies []string) (Position, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return Position{}, ErrEmptyCode
	}
	if name == "" {
		return Position{}, ErrEmptyName
	}
	return Position{
		id:           uuid.New(),
		code:         code,
		name:         name,
		category:     strings.TrimSpace(category),
		competencies: normalizeCompetencies(competencies),
	}, nil
}

func Hydrate(id uuid.UUID, code, name, category string, competencies []string) Position {
	return Position{
		id:           id,
		code:         strings.TrimSpace(code),
		name:         strings.TrimSpace(name),
		category:     strings.TrimSpace(category),
		competencies: normalizeCompetencies(competencies),
	}
}

func (p Position) ID() uuid.UUID    { return p.id }
func (p Position) Code() string     { return p.code }
func (p Position) Name() string     { return p.name }
func (p Position) Category() string { return p.category }

func (p Position) Competencies() []string {
	out := make([]string, len(p.competencies))
	copy(out, p.competencies)
	return out
}

func normalizeCompetencies(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
