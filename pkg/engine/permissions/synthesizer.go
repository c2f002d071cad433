package permissions

import (
	"sort"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/conditions"
)

// Keep reports whether a suggestion carries enough evidence to be granted.
// Only zero-frequency Low suggestions are dropped.
func Keep(p aggregate.SuggestedPermission) bool {
	return !(p.Frequency == 0 && p.Severity == aggregate.Low)
}

type groupKey struct {
	resource  string
	condition string
}

type group struct {
	actions   map[string]struct{}
	resources map[string]struct{}
	condition conditions.Condition
}

// Synthesize groups suggestions into Allow statements keyed by resource and
// condition. Statements appear in the order their group was first seen.
func Synthesize(perms []aggregate.SuggestedPermission) PolicyDocument {
	groups := make(map[groupKey]*group)
	var order []groupKey

	for _, p := range perms {
		if !Keep(p) {
			continue
		}
		resource := OptimizeARN(p.Resource)
		k := groupKey{resource: resource, condition: p.Condition.Key()}

		g, ok := groups[k]
		if !ok {
			g = &group{
				actions:   make(map[string]struct{}),
				resources: make(map[string]struct{}),
				condition: p.Condition,
			}
			groups[k] = g
			order = append(order, k)
		}
		g.actions[p.Action] = struct{}{}
		g.resources[resource] = struct{}{}
	}

	doc := PolicyDocument{Version: PolicyVersion, Statement: []Statement{}}
	for _, k := range order {
		g := groups[k]
		st := Statement{
			Effect:   "Allow",
			Action:   sortedSet(g.actions),
			Resource: sortedSet(g.resources),
		}
		if len(g.condition) > 0 {
			st.Condition = g.condition
		}
		doc.Statement = append(doc.Statement, st)
	}
	return doc
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
