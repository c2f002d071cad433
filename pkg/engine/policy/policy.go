package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk layout of a rules file.
type RuleFile struct {
	Rules []DynamicRule `yaml:"rules"`
}

// LoadRules reads and compiles a YAML rules file.
func LoadRules(path string) (*CELEngine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules compiles rules from YAML bytes.
func ParseRules(data []byte) (*CELEngine, error) {
	var f RuleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	engine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	if err := engine.Compile(f.Rules); err != nil {
		return nil, err
	}
	return engine, nil
}

// Warning records a warn rule firing on a suggestion.
type Warning struct {
	RuleID   string `json:"rule_id"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s on %s", w.RuleID, w.Action, w.Resource)
}

// Filter drops suggestions matched by an exclude rule and collects warnings.
// Order of the kept suggestions is preserved. A nil engine keeps everything.
func Filter(ctx context.Context, e *CELEngine, perms []aggregate.SuggestedPermission) ([]aggregate.SuggestedPermission, []Warning, error) {
	if e == nil || e.Len() == 0 {
		return perms, nil, nil
	}

	kept := make([]aggregate.SuggestedPermission, 0, len(perms))
	var warnings []Warning
	for _, p := range perms {
		matches, err := e.Evaluate(ctx, EvaluationContext{
			Action:    p.Action,
			Service:   aggregate.Service(p.Action),
			Resource:  p.Resource,
			Severity:  p.Severity.String(),
			Frequency: p.Frequency,
		})
		if err != nil {
			return nil, nil, err
		}

		excluded := false
		for _, m := range matches {
			switch m.Action {
			case ActionExclude:
				excluded = true
			case ActionWarn:
				warnings = append(warnings, Warning{RuleID: m.ID, Action: p.Action, Resource: p.Resource})
			}
		}
		if !excluded {
			kept = append(kept, p)
		}
	}
	return kept, warnings, nil
}
