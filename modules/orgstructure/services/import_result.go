package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/org-import/modules/orgstructure/domain/records"
)

type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusFailure        Status = "failure"
)

// Stage is the step an import call was in; a failed result records where it stopped.
type Stage string

const (
	StageParsing    Stage = "parsing"
	StageValidating Stage = "validating"
	StagePersisting Stage = "persisting"
)

type ImportError struct {
	Entity  records.Kind `json:"entity,omitempty"`
	Row     int          `json:"row"`
	Message string       `json:"message"`
}

type ImportResult struct {
	RunID         uuid.UUID                `json:"run_id"`
	Entity        records.Kind             `json:"entity,omitempty"`
	Status        Status                   `json:"status"`
	FailedStage   Stage                    `json:"failed_stage,omitempty"`
	ImportedCount int                      `json:"imported_count"`
	FailedCount   int                      `json:"failed_count"`
	Errors        []ImportError            `json:"errors"`
	Details       map[string]*ImportResult `json:"details,omitempty"`
	StartedAt     time.Time                `json:"started_at"`
	FinishedAt    time.Time                `json:"finished_at"`
}

func (r *ImportResult) IsSuccess() bool        { return r.Status == StatusSuccess }
func (r *ImportResult) IsPartialSuccess() bool { return r.Status == StatusPartialSuccess }
func (r *ImportResult) IsFailure() bool        { return r.Status == StatusFailure }

func (r *ImportResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

func (r *ImportResult) addError(row int, message string) {
	r.Errors = append(r.Errors, ImportError{Entity: r.Entity, Row: row, Message: message})
}

// fail marks the result as failed at stage with nothing imported.
func (r *ImportResult) fail(stage Stage) {
	r.Status = StatusFailure
	r.FailedStage = stage
	r.ImportedCount = 0
}

// settle derives the status from the counters. stage is recorded when nothing was imported.
func (r *ImportResult) settle(stage Stage) {
	switch {
	case r.FailedCount == 0 && len(r.Errors) == 0:
		r.Status = StatusSuccess
	case r.ImportedCount == 0:
		r.Status = StatusFailure
		if r.FailedStage == "" {
			r.FailedStage = stage
		}
	default:
		r.Status = StatusPartialSuccess
	}
}
