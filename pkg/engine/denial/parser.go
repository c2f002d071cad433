package denial

// Parse turns one log record into a Denial. It returns false only when the
// message carries no denial signature; unresolved fields become Unknown.
func Parse(rec LogRecord) (*Denial, bool) {
	if !HasSignature(rec.RawMessage) {
		return nil, false
	}

	var ext extraction
	if doc, ok := decode(rec.RawMessage); ok {
		ext = structuredExtraction(doc, rec.RawMessage)
	} else {
		ext = textExtraction(rec.RawMessage)
	}
	return ext.assemble(rec), true
}

// Trace names the text rule that resolved each field, for debug logging.
type Trace struct {
	Action    string
	Resource  string
	Principal string
	ErrorCode string
}

// Explain reports which text rules match msg. Empty names mean no rule fired.
func Explain(msg string) Trace {
	return Trace{
		Action:    actionRules.match(msg),
		Resource:  resourceRules.match(msg),
		Principal: principalRules.match(msg),
		ErrorCode: errorCodeRules.match(msg),
	}
}
