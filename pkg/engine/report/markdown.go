package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
)

// Meta describes the run a report belongs to.
type Meta struct {
	Stack   string
	Region  string
	Version string
}

// GenerateMarkdown renders a human review document grouped by service.
func GenerateMarkdown(res *analysis.Result, meta Meta) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# Least-Privilege Report\n\n")
	fmt.Fprintf(&b, "- Generated: %s\n", res.GeneratedAt.UTC().Format(time.RFC3339))
	if meta.Stack != "" {
		fmt.Fprintf(&b, "- Stack: %s\n", meta.Stack)
	}
	if meta.Region != "" {
		fmt.Fprintf(&b, "- Region: %s\n", meta.Region)
	}
	if meta.Version != "" {
		fmt.Fprintf(&b, "- Version: %s\n", meta.Version)
	}

	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Severity | Suggestions |\n|---|---|\n")
	counts := res.CountBySeverity()
	for _, sev := range aggregate.Severities {
		fmt.Fprintf(&b, "| %s | %d |\n", sev, counts[sev])
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Sources analyzed: %d\n", res.Stats.Sources)
	fmt.Fprintf(&b, "- Records scanned: %d\n", res.Stats.RecordsScanned)
	fmt.Fprintf(&b, "- Denials found: %d\n", res.Stats.Denials)
	fmt.Fprintf(&b, "- Sources failed to fetch: %d\n", len(res.FailedSources))
	fmt.Fprintf(&b, "- Sources with no denials: %d\n", len(res.CleanSources))
	if res.Stats.Suppressed > 0 {
		fmt.Fprintf(&b, "- Suppressed by rules: %d\n", res.Stats.Suppressed)
	}

	if len(res.Permissions) > 0 {
		b.WriteString("\n## Suggestions by service\n")
		for _, svc := range services(res.Permissions) {
			fmt.Fprintf(&b, "\n### %s\n\n", svc.name)
			b.WriteString("| Severity | Action | Resource | Frequency | Condition |\n|---|---|---|---|---|\n")
			for _, p := range svc.perms {
				cond := "-"
				if len(p.Condition) > 0 {
					cond = "`" + p.Condition.Key() + "`"
				}
				fmt.Fprintf(&b, "| %s | `%s` | `%s` | %d | %s |\n", p.Severity, p.Action, p.Resource, p.Frequency, cond)
			}
			for _, p := range svc.perms {
				fmt.Fprintf(&b, "\n**%s** on `%s`\n", p.Action, p.Resource)
				if len(p.AssociatedResources) > 0 {
					fmt.Fprintf(&b, "- Resources: %s\n", strings.Join(p.AssociatedResources, ", "))
				}
				for _, r := range strings.Split(p.Reasoning, "; ") {
					fmt.Fprintf(&b, "- %s\n", r)
				}
			}
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n## Rule warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if len(res.FailedSources) > 0 {
		b.WriteString("\n## Failed sources\n\n")
		for _, f := range res.FailedSources {
			fmt.Fprintf(&b, "- `%s`: %s\n", f.Source, f.Error)
		}
	}

	policy, err := res.Policy.JSON()
	if err != nil {
		return nil, err
	}
	b.WriteString("\n## Policy\n\n```json\n")
	b.Write(policy)
	b.WriteString("\n```\n")

	return []byte(b.String()), nil
}

type serviceGroup struct {
	name  string
	perms []aggregate.SuggestedPermission
}

// services groups suggestions by namespace, sorted by name. Each group keeps
// the incoming suggestion order.
func services(perms []aggregate.SuggestedPermission) []serviceGroup {
	index := make(map[string]int)
	var groups []serviceGroup
	for _, p := range perms {
		svc := aggregate.Service(p.Action)
		i, ok := index[svc]
		if !ok {
			i = len(groups)
			index[svc] = i
			groups = append(groups, serviceGroup{name: svc})
		}
		groups[i].perms = append(groups[i].perms, p)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].name < groups[j].name })
	return groups
}
