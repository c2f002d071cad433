package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
)

// Rule actions.
const (
	ActionExclude = "exclude"
	ActionWarn    = "warn"
)

// DynamicRule is a user-defined suppression rule (usually from YAML).
type DynamicRule struct {
	ID        string `json:"id" yaml:"id"`
	Condition string `json:"condition" yaml:"condition"` // CEL: "service == 'logs' && severity == 'Low'"
	Action    string `json:"action" yaml:"action"`       // "exclude" or "warn"
}

// EvaluationContext is the variable set a rule sees for one suggestion.
type EvaluationContext struct {
	Action    string
	Service   string
	Resource  string
	Severity  string
	Frequency int
}

func (c EvaluationContext) vars() map[string]interface{} {
	return map[string]interface{}{
		"action":    c.Action,
		"service":   c.Service,
		"resource":  c.Resource,
		"severity":  c.Severity,
		"frequency": int64(c.Frequency),
	}
}

type compiled struct {
	rule DynamicRule
	prg  cel.Program
}

// CELEngine compiles rules once and evaluates them per suggestion.
type CELEngine struct {
	env      *cel.Env
	programs []compiled
}

// NewCELEngine declares the suggestion variables.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("action", cel.StringType),
		cel.Variable("service", cel.StringType),
		cel.Variable("resource", cel.StringType),
		cel.Variable("severity", cel.StringType),
		cel.Variable("frequency", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &CELEngine{env: env}, nil
}

// Compile compiles rules in order. Rules must return bool.
func (e *CELEngine) Compile(rules []DynamicRule) error {
	for _, r := range rules {
		if r.Action != ActionExclude && r.Action != ActionWarn {
			return fmt.Errorf("rule %s: unknown action %q", r.ID, r.Action)
		}
		ast, issues := e.env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("rule %s compilation error: %w", r.ID, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return fmt.Errorf("rule %s: condition must be boolean, got %s", r.ID, ast.OutputType())
		}

		prg, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("rule %s program creation error: %w", r.ID, err)
		}
		e.programs = append(e.programs, compiled{rule: r, prg: prg})
	}
	return nil
}

// Len reports the number of compiled rules.
func (e *CELEngine) Len() int {
	return len(e.programs)
}

// Evaluate returns the rules matching data, in compile order.
// A rule that fails at runtime is logged and skipped.
func (e *CELEngine) Evaluate(ctx context.Context, data EvaluationContext) ([]DynamicRule, error) {
	var matches []DynamicRule
	vars := data.vars()

	for _, c := range e.programs {
		if err := ctx.Err(); err != nil {
			return matches, err
		}
		out, _, err := c.prg.Eval(vars)
		if err != nil {
			slog.Error("Rule evaluation failed", "rule_id", c.rule.ID, "error", err)
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			matches = append(matches, c.rule)
		}
	}
	return matches, nil
}
