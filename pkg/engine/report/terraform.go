package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/DrSkyle/leastpriv/pkg/engine/conditions"
	"github.com/DrSkyle/leastpriv/pkg/engine/permissions"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

var nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// ResourceName turns a stack name into a Terraform resource label.
func ResourceName(stack string) string {
	name := strings.Trim(nonIdentifier.ReplaceAllString(strings.ToLower(stack), "_"), "_")
	if name == "" {
		return "leastpriv"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "p_" + name
	}
	return name
}

// GenerateTerraform renders the policy as an aws_iam_policy resource using
// jsonencode so it can be reviewed as HCL.
func GenerateTerraform(doc permissions.PolicyDocument, meta Meta) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	label := ResourceName(meta.Stack)
	block := root.AppendNewBlock("resource", []string{"aws_iam_policy", label})
	body := block.Body()
	body.SetAttributeValue("name", cty.StringVal(strings.ReplaceAll(label, "_", "-")+"-least-privilege"))
	body.SetAttributeValue("description", cty.StringVal(fmt.Sprintf("Generated by leastpriv from observed denials (%d statements)", len(doc.Statement))))

	value, err := policyValue(doc)
	if err != nil {
		return nil, err
	}
	body.SetAttributeRaw("policy", hclwrite.TokensForFunctionCall("jsonencode", hclwrite.TokensForValue(value)))

	return hclwrite.Format(f.Bytes()), nil
}

func policyValue(doc permissions.PolicyDocument) (cty.Value, error) {
	statements := make([]cty.Value, 0, len(doc.Statement))
	for _, st := range doc.Statement {
		attrs := map[string]cty.Value{
			"Effect":   cty.StringVal(st.Effect),
			"Action":   stringList(st.Action),
			"Resource": stringList(st.Resource),
		}
		if len(st.Condition) > 0 {
			cond, err := conditionValue(st.Condition)
			if err != nil {
				return cty.NilVal, err
			}
			attrs["Condition"] = cond
		}
		statements = append(statements, cty.ObjectVal(attrs))
	}

	stmts := cty.EmptyTupleVal
	if len(statements) > 0 {
		stmts = cty.TupleVal(statements)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"Version":   cty.StringVal(doc.Version),
		"Statement": stmts,
	}), nil
}

func conditionValue(c conditions.Condition) (cty.Value, error) {
	ops := make(map[string]cty.Value, len(c))
	for op, kv := range c {
		keys := make(map[string]cty.Value, len(kv))
		for k, v := range kv {
			switch tv := v.(type) {
			case string:
				keys[k] = cty.StringVal(tv)
			case []string:
				keys[k] = stringList(tv)
			case []interface{}:
				strs := make([]string, 0, len(tv))
				for _, item := range tv {
					strs = append(strs, fmt.Sprint(item))
				}
				keys[k] = stringList(strs)
			default:
				return cty.NilVal, fmt.Errorf("condition %s.%s: unsupported value %T", op, k, v)
			}
		}
		ops[op] = cty.ObjectVal(keys)
	}
	return cty.ObjectVal(ops), nil
}

func stringList(items []string) cty.Value {
	if len(items) == 0 {
		return cty.EmptyTupleVal
	}
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	vals := make([]cty.Value, len(sorted))
	for i, s := range sorted {
		vals[i] = cty.StringVal(s)
	}
	return cty.TupleVal(vals)
}
