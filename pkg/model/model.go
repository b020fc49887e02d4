package model

import "fmt"

// EventKind classifies a parsed log line.
type EventKind int

const (
	EventGeneric EventKind = iota
	EventInstallAttempt
	EventInstallSuccess
	EventInstallFailure
	EventConflict
)

var eventKindNames = map[EventKind]string{
	EventGeneric:        "generic",
	EventInstallAttempt: "install-attempt",
	EventInstallSuccess: "install-success",
	EventInstallFailure: "install-failure",
	EventConflict:       "constraint-conflict",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	for kind, name := range eventKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", text)
}

// Outcome is the final state of a dependency row.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "success":
		*o = OutcomeSuccess
	case "failure":
		*o = OutcomeFailure
	case "unknown", "":
		*o = OutcomeUnknown
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// UnknownParent is the parent recorded for rows whose requirer could not be resolved.
const UnknownParent = "<unknown>"

// NoRow marks a parent reference that does not point at any row.
const NoRow = -1

// LogEvent is a single recognized occurrence in a build log.
type LogEvent struct {
	Kind       EventKind `json:"kind" yaml:"kind"`
	Package    string    `json:"package,omitempty" yaml:"package,omitempty"`
	Version    string    `json:"version,omitempty" yaml:"version,omitempty"`
	Constraint string    `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Parent     string    `json:"parent,omitempty" yaml:"parent,omitempty"`
	TopLevel   bool      `json:"top_level,omitempty" yaml:"top_level,omitempty"`
	Line       int       `json:"line" yaml:"line"`
	Offset     int       `json:"offset" yaml:"offset"`
	Raw        string    `json:"raw" yaml:"raw"`
}

// DependencyRow is one (package, parent) pair reconstructed from the log.
type DependencyRow struct {
	Index       int      `json:"index" yaml:"index"`
	Package     string   `json:"package" yaml:"package"`
	Version     string   `json:"version,omitempty" yaml:"version,omitempty"`
	Parent      string   `json:"parent" yaml:"parent"`
	ParentIndex int      `json:"parent_index" yaml:"parent_index"`
	Outcome     Outcome  `json:"outcome" yaml:"outcome"`
	Conflict    bool     `json:"conflict,omitempty" yaml:"conflict,omitempty"`
	Constraints []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Attempts    int      `json:"attempts" yaml:"attempts"`
	ErrorLines  int      `json:"error_lines,omitempty" yaml:"error_lines,omitempty"`
	Context     []string `json:"context,omitempty" yaml:"context,omitempty"`
	FirstLine   int      `json:"first_line" yaml:"first_line"`
	LastLine    int      `json:"last_line" yaml:"last_line"`

	// FailedLine is the line of the most recent failure outcome, 0 when none was seen.
	FailedLine int `json:"failed_line,omitempty" yaml:"failed_line,omitempty"`
}

// IsRoot reports whether the row was installed as a top-level requirement.
func (r DependencyRow) IsRoot() bool {
	return r.Parent == ""
}

// FailedBranch is the causal chain of rows ending in the first failure.
type FailedBranch struct {
	Rows []DependencyRow `json:"rows" yaml:"rows"`
	// FailureIndex is the position of the triggering row in Rows, -1 when empty.
	FailureIndex int `json:"failure_index" yaml:"failure_index"`
}

// Empty reports whether the branch has no rows.
func (b FailedBranch) Empty() bool {
	return len(b.Rows) == 0
}

// Failure returns the triggering failure row.
func (b FailedBranch) Failure() (DependencyRow, bool) {
	if b.FailureIndex < 0 || b.FailureIndex >= len(b.Rows) {
		return DependencyRow{}, false
	}
	return b.Rows[b.FailureIndex], true
}

// ScoreFactors break a candidate score down into its contributions.
type ScoreFactors struct {
	Appearance   float64 `json:"appearance" yaml:"appearance"`
	Conflict     float64 `json:"conflict" yaml:"conflict"`
	Violation    float64 `json:"violation" yaml:"violation"`
	Proximity    float64 `json:"proximity" yaml:"proximity"`
	Failure      float64 `json:"failure" yaml:"failure"`
	ErrorContext float64 `json:"error_context" yaml:"error_context"`
}

// Total sums every factor.
func (f ScoreFactors) Total() float64 {
	return f.Appearance + f.Conflict + f.Violation + f.Proximity + f.Failure + f.ErrorContext
}

// Candidate is a package suspected of breaking the build.
type Candidate struct {
	Package  string          `json:"package" yaml:"package"`
	Score    float64         `json:"score" yaml:"score"`
	Factors  ScoreFactors    `json:"factors" yaml:"factors"`
	Evidence []DependencyRow `json:"evidence" yaml:"evidence"`
}

// Anomalies counts log inconsistencies absorbed by the table builder.
type Anomalies struct {
	UnresolvedOutcomes int `json:"unresolved_outcomes" yaml:"unresolved_outcomes"`
	CyclesBroken       int `json:"cycles_broken" yaml:"cycles_broken"`
}

// Total returns the number of absorbed inconsistencies.
func (a Anomalies) Total() int {
	return a.UnresolvedOutcomes + a.CyclesBroken
}

// Summary holds the report counters.
type Summary struct {
	Handler     string    `json:"handler" yaml:"handler"`
	TotalEvents int       `json:"total_events" yaml:"total_events"`
	TotalRows   int       `json:"total_rows" yaml:"total_rows"`
	Installed   int       `json:"installed" yaml:"installed"`
	Failed      int       `json:"failed" yaml:"failed"`
	Unknown     int       `json:"unknown" yaml:"unknown"`
	Anomalies   Anomalies `json:"anomalies" yaml:"anomalies"`
}

// Warning is a non-fatal condition attached to a report.
type Warning string

// WarningEmptyResult is set when the log is valid but records no failure.
const WarningEmptyResult Warning = "empty-result"

// Report is the aggregate result of one analysis run.
type Report struct {
	Branch     FailedBranch `json:"failed_branch" yaml:"failed_branch"`
	Candidates []Candidate  `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Summary    Summary      `json:"summary" yaml:"summary"`
	Warnings   []Warning    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// HasWarning reports whether w was raised for this report.
func (r Report) HasWarning(w Warning) bool {
	for _, got := range r.Warnings {
		if got == w {
			return true
		}
	}
	return false
}
