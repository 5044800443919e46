package services

// Scope tells the orchestrator how far a validation issue reaches.
type Scope string

const (
	// ScopeBatch rejects the whole import.
	ScopeBatch Scope = "batch"
	// ScopeRecord blocks only the row it was reported for.
	ScopeRecord Scope = "record"
)

const (
	IssueDuplicateCode      = "duplicate_code"
	IssueDuplicateTabNumber = "duplicate_tab_number"
	IssueInvalidField       = "invalid_field"
	IssueParentNotFound     = "parent_not_found"
	IssueCircularDependency = "circular_dependency"
	IssueDepartmentNotFound = "department_not_found"
	IssuePositionNotFound   = "position_not_found"
	IssueSelfManager        = "self_manager"
	IssueManagerNotFound    = "manager_not_found"
	IssueManagerCycle       = "manager_cycle"
	IssueAlreadyExists      = "already_exists"
)

type ValidationIssue struct {
	// Row is the 1-based data row the issue was found on.
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Scope   Scope  `json:"scope"`
}

type ValidationResult struct {
	Issues []ValidationIssue
}

func (r ValidationResult) Valid() bool {
	return len(r.Issues) == 0
}

// Messages returns the issue messages in the order they were found.
func (r ValidationResult) Messages() []string {
	out := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = issue.Message
	}
	return out
}

func (r ValidationResult) HasBatchIssues() bool {
	for _, issue := range r.Issues {
		if issue.Scope == ScopeBatch {
			return true
		}
	}
	return false
}

// ByRow groups record-scoped issues by row.
func (r ValidationResult) ByRow() map[int][]ValidationIssue {
	out := make(map[int][]ValidationIssue)
	for _, issue := range r.Issues {
		if issue.Scope == ScopeRecord {
			out[issue.Row] = append(out[issue.Row], issue)
		}
	}
	return out
}

func (r *ValidationResult) add(row int, code string, scope Scope, message string) {
	r.Issues = append(r.Issues, ValidationIssue{Row: row, Code: code, Message: message, Scope: scope})
}
