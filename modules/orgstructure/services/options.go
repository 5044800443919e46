package services

import (
	"fmt"
	"strings"
)

// ReferencePolicy decides whether dangling references, duplicates and
// self-management reject the whole batch or only the offending row.
// Cycles always reject the batch.
type ReferencePolicy string

const (
	ReferencesBatchFatal  ReferencePolicy = "batch"
	ReferencesRecordFatal ReferencePolicy = "record"
)

type ImportMode string

const (
	// ModeUpsert overwrites entities that already exist in storage.
	ModeUpsert ImportMode = "upsert"
	// ModeCreateOnly reports rows whose code already exists in storage.
	ModeCreateOnly ImportMode = "create"
)

func ParseReferencePolicy(v string) (ReferencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", string(ReferencesBatchFatal):
		return ReferencesBatchFatal, nil
	case string(ReferencesRecordFatal):
		return ReferencesRecordFatal, nil
	default:
		return "", fmt.Errorf("invalid reference policy %q (expected batch|record)", v)
	}
}

func ParseImportMode(v string) (ImportMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", string(ModeUpsert):
		return ModeUpsert, nil
	case string(ModeCreateOnly):
		return ModeCreateOnly, nil
	default:
		return "", fmt.Errorf("invalid import mode %q (expected upsert|create)", v)
	}
}

type ValidatorOptions struct {
	References          ReferencePolicy
	DetectManagerCycles bool
	// RejectExisting reports rows whose code is already in storage.
	RejectExisting bool
}

func (o ValidatorOptions) referenceScope() Scope {
	if o.References == ReferencesRecordFatal {
		return ScopeRecord
	}
	return ScopeBatch
}

type ImportOptions struct {
	SkipOnError         bool
	UseTransaction      bool
	References          ReferencePolicy
	Mode                ImportMode
	DetectManagerCycles bool
}

func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		References:          ReferencesBatchFatal,
		Mode:                ModeUpsert,
		DetectManagerCycles: true,
	}
}

func (o ImportOptions) validatorOptions() ValidatorOptions {
	return ValidatorOptions{
		References:          o.References,
		DetectManagerCycles: o.DetectManagerCycles,
		RejectExisting:      o.Mode == ModeCreateOnly,
	}
}

// FullImportOptions carries one delimiter per file; zero means auto-detect.
type FullImportOptions struct {
	ImportOptions
	DepartmentsDelimiter rune
	PositionsDelimiter   rune
	EmployeesDelimiter   rune
}
