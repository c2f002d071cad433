// Package denial recognizes authorization failures in raw log lines and extracts
// the principal, action, resource and error classification from them.
package denial

import (
	"time"
)

// Unknown is substituted for any field the parser could not resolve.
const Unknown = "Unknown"

// LogRecord is a single entry read from a log source.
type LogRecord struct {
	TimestampMillis int64
	SourceID        string // log group, file path, "cloudtrail:<region>" ...
	StreamID        string
	RawMessage      string
}

// Denial is an authorization failure extracted from a LogRecord.
type Denial struct {
	Timestamp  string  `json:"timestamp"`
	Source     string  `json:"source"`
	Stream     string  `json:"stream"`
	RawMessage string  `json:"raw_message"`
	Action     string  `json:"action"`
	Resource   string  `json:"resource"`
	Principal  string  `json:"principal"`
	ErrorCode  string  `json:"error_code"`
	SourceIP   *string `json:"source_ip,omitempty"`
	UserAgent  *string `json:"user_agent,omitempty"`
}

// field is a possibly unresolved extraction result.
type field struct {
	value string
	ok    bool
}

func resolved(v string) field {
	if v == "" {
		return field{}
	}
	return field{value: v, ok: true}
}

// or returns f when resolved, otherwise the result of next.
func (f field) or(next func() field) field {
	if f.ok {
		return f
	}
	return next()
}

func (f field) orUnknown() string {
	if !f.ok {
		return Unknown
	}
	return f.value
}

func (f field) ptr() *string {
	if !f.ok {
		return nil
	}
	v := f.value
	return &v
}

// extraction holds every field before sentinel substitution.
type extraction struct {
	action    field
	resource  field
	principal field
	errorCode field
	sourceIP  field
	userAgent field
}

func (e extraction) assemble(rec LogRecord) *Denial {
	return &Denial{
		Timestamp:  formatTimestamp(rec.TimestampMillis).orUnknown(),
		Source:     resolved(rec.SourceID).orUnknown(),
		Stream:     resolved(rec.StreamID).orUnknown(),
		RawMessage: resolved(rec.RawMessage).orUnknown(),
		Action:     e.action.orUnknown(),
		Resource:   e.resource.orUnknown(),
		Principal:  e.principal.orUnknown(),
		ErrorCode:  e.errorCode.orUnknown(),
		SourceIP:   e.sourceIP.ptr(),
		UserAgent:  e.userAgent.ptr(),
	}
}

func formatTimestamp(ms int64) field {
	if ms <= 0 {
		return field{}
	}
	return resolved(time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z"))
}
