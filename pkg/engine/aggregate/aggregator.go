// Package aggregate deduplicates parsed denials into severity-scored
// permission candidates.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/DrSkyle/leastpriv/pkg/engine/conditions"
	"github.com/DrSkyle/leastpriv/pkg/engine/denial"
)

// Observation is one denial together with the context it was found in.
type Observation struct {
	Denial               *denial.Denial
	SourceID             string
	AssociatedResourceID string // optional logical id from the inventory
	SiblingCount         int    // denials found in the same source
}

// Candidate is the aggregation row for one (action, resource) pair.
type Candidate struct {
	Action      string
	Resource    string
	Frequency   int
	Reasoning   []string
	Severity    Severity
	ResourceIDs map[string]struct{}
}

// SuggestedPermission is the exported view of a candidate.
type SuggestedPermission struct {
	Action              string               `json:"action"`
	Resource            string               `json:"resource"`
	Effect              string               `json:"effect"`
	Condition           conditions.Condition `json:"condition,omitempty"`
	Reasoning           string               `json:"reasoning"`
	Frequency           int                  `json:"frequency"`
	Severity            Severity             `json:"severity"`
	AssociatedResources []string             `json:"associated_resources,omitempty"`
}

type key struct {
	action   string
	resource string
}

// Aggregator merges observations. It is safe for concurrent use.
type Aggregator struct {
	mu         sync.Mutex
	candidates map[key]*Candidate
	order      []key
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{candidates: make(map[key]*Candidate)}
}

// Merge folds one observation into its candidate. Severity is fixed by the
// first observation of a key; later merges only grow frequency and reasoning.
func (a *Aggregator) Merge(obs Observation) {
	if obs.Denial == nil {
		return
	}
	k := key{
		action:   NormalizeAction(obs.Denial.Action),
		resource: NormalizeResource(obs.Denial.Resource),
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	c, ok := a.candidates[k]
	if !ok {
		c = &Candidate{
			Action:      k.action,
			Resource:    k.resource,
			Severity:    Classify(k.action, obs.Denial.ErrorCode, obs.SiblingCount),
			ResourceIDs: make(map[string]struct{}),
		}
		a.candidates[k] = c
		a.order = append(a.order, k)
	}

	c.Frequency++
	c.Reasoning = append(c.Reasoning, reason(obs))
	if obs.AssociatedResourceID != "" {
		c.ResourceIDs[obs.AssociatedResourceID] = struct{}{}
	}
}

// Len is the number of distinct candidates.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

// Candidates returns copies of the candidates in first-seen order.
func (a *Aggregator) Candidates() []Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Candidate, 0, len(a.order))
	for _, k := range a.order {
		c := a.candidates[k]
		cp := *c
		cp.Reasoning = append([]string(nil), c.Reasoning...)
		cp.ResourceIDs = make(map[string]struct{}, len(c.ResourceIDs))
		for id := range c.ResourceIDs {
			cp.ResourceIDs[id] = struct{}{}
		}
		out = append(out, cp)
	}
	return out
}

// Permissions exports the candidates sorted by severity then frequency.
// gen may be nil, in which case no conditions are attached.
func (a *Aggregator) Permissions(gen *conditions.Generator) []SuggestedPermission {
	candidates := a.Candidates()

	perms := make([]SuggestedPermission, 0, len(candidates))
	for _, c := range candidates {
		p := SuggestedPermission{
			Action:              c.Action,
			Resource:            c.Resource,
			Effect:              "Allow",
			Reasoning:           strings.Join(c.Reasoning, "; "),
			Frequency:           c.Frequency,
			Severity:            c.Severity,
			AssociatedResources: sortedKeys(c.ResourceIDs),
		}
		if gen != nil {
			p.Condition = gen.Generate(c.Action, c.Resource)
		}
		perms = append(perms, p)
	}

	SortPermissions(perms)
	return perms
}

// SortPermissions orders by severity rank descending, then frequency descending.
// Ties keep their existing order.
func SortPermissions(perms []SuggestedPermission) {
	sort.SliceStable(perms, func(i, j int) bool {
		if perms[i].Severity != perms[j].Severity {
			return perms[i].Severity.Rank() > perms[j].Severity.Rank()
		}
		return perms[i].Frequency > perms[j].Frequency
	})
}

// Aggregate is the batch form of Merge + Permissions.
func Aggregate(observations []Observation, gen *conditions.Generator) []SuggestedPermission {
	agg := New()
	for _, obs := range observations {
		agg.Merge(obs)
	}
	return agg.Permissions(gen)
}

func reason(obs Observation) string {
	d := obs.Denial
	source := obs.SourceID
	if source == "" {
		source = d.Source
	}
	return fmt.Sprintf("%s for %s in %s at %s", d.ErrorCode, d.Principal, source, d.Timestamp)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
