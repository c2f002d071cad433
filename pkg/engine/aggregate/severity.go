package aggregate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSeverity is returned when parsing a severity name that does not exist.
var ErrUnknownSeverity = errors.New("unknown severity")

// Severity is an ordinal risk rating. Higher values are more severe.
type Severity int

const (
	Low Severity = iota + 1
	Medium
	High
	Critical
)

// Thresholds on the number of denials observed in the same log source.
const (
	HighSiblingThreshold   = 10
	MediumSiblingThreshold = 3
)

var severityNames = map[Severity]string{
	Low:      "Low",
	Medium:   "Medium",
	High:     "High",
	Critical: "Critical",
}

// Severities lists every level from most to least severe.
var Severities = []Severity{Critical, High, Medium, Low}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Rank is the numeric ordering used for sorting (Critical=4 ... Low=1).
func (s Severity) Rank() int { return int(s) }

// ParseSeverity converts a case-insensitive name into a Severity.
func ParseSeverity(name string) (Severity, error) {
	for s, n := range severityNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}

func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// isCriticalAction reports whether denying action blocks a workload's data path.
func isCriticalAction(action string) bool {
	return action == "lambda:invokefunction" ||
		strings.HasPrefix(action, "dynamodb:") ||
		action == "s3:getobject"
}

// Classify rates a denial. action must already be lowercased and siblings is
// the number of denials found in the same source, not the aggregated frequency.
func Classify(action, errorCode string, siblings int) Severity {
	switch {
	case errorCode == "AccessDenied" && isCriticalAction(action):
		return Critical
	case siblings > HighSiblingThreshold || errorCode == "UnauthorizedOperation":
		return High
	case siblings > MediumSiblingThreshold || strings.Contains(action, "read") || strings.Contains(action, "get"):
		return Medium
	default:
		return Low
	}
}
