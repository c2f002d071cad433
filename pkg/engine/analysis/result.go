package analysis

import (
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/permissions"
	"github.com/DrSkyle/leastpriv/pkg/engine/policy"
)

// SourceFailure is a source that could not be fetched or listed.
type SourceFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Stats counts what a run looked at.
type Stats struct {
	Sources        int `json:"sources"`
	RecordsScanned int `json:"records_scanned"`
	Denials        int `json:"denials"`
	Suppressed     int `json:"suppressed"`
}

// Result is the output of one analysis run.
//
// FailedSources and CleanSources are disjoint: a failed source could not be
// read, a clean source was read and held no denials.
type Result struct {
	GeneratedAt   time.Time                       `json:"generated_at"`
	Permissions   []aggregate.SuggestedPermission `json:"suggestions"`
	Policy        permissions.PolicyDocument      `json:"policy"`
	Warnings      []policy.Warning                `json:"warnings,omitempty"`
	FailedSources []SourceFailure                 `json:"failed_sources,omitempty"`
	CleanSources  []string                        `json:"clean_sources,omitempty"`
	Stats         Stats                           `json:"stats"`
}

// CountBySeverity tallies suggestions per severity.
func (r *Result) CountBySeverity() map[aggregate.Severity]int {
	out := make(map[aggregate.Severity]int, len(aggregate.Severities))
	for _, p := range r.Permissions {
		out[p.Severity]++
	}
	return out
}

// Partial reports whether any source failed.
func (r *Result) Partial() bool {
	return len(r.FailedSources) > 0
}
