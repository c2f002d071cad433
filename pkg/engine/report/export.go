package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
	"github.com/DrSkyle/leastpriv/pkg/engine/permissions"
)

// GenerateJSON renders the full run result.
func GenerateJSON(res *analysis.Result) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}

// GeneratePolicy renders only the IAM policy document.
func GeneratePolicy(doc permissions.PolicyDocument) ([]byte, error) {
	return doc.JSON()
}

var csvHeader = []string{
	"Severity",
	"Action",
	"Resource",
	"Frequency",
	"Condition",
	"AssociatedResources",
	"Reasoning",
}

// GenerateCSV renders one row per suggestion in the given order.
func GenerateCSV(perms []aggregate.SuggestedPermission) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, p := range perms {
		record := []string{
			p.Severity.String(),
			p.Action,
			p.Resource,
			strconv.Itoa(p.Frequency),
			p.Condition.Key(),
			strings.Join(p.AssociatedResources, " "),
			p.Reasoning,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// DecodeSuggestions reads suggestions back from either a GenerateJSON result
// or a bare JSON array of suggestions.
func DecodeSuggestions(data []byte) ([]aggregate.SuggestedPermission, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var perms []aggregate.SuggestedPermission
		if err := json.Unmarshal(trimmed, &perms); err != nil {
			return nil, err
		}
		return perms, nil
	}
	var res analysis.Result
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return nil, err
	}
	return res.Permissions, nil
}
