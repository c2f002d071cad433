package denial

import (
	"encoding/json"
	"fmt"
	"strings"
)

// document is a decoded self-describing log record.
type document map[string]interface{}

func decode(msg string) (document, bool) {
	trimmed := strings.TrimSpace(msg)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var doc document
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// str reads a scalar at a dotted path; "resources.0.ARN" indexes into arrays.
func (d document) str(path string) field {
	var cur interface{} = map[string]interface{}(d)
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			cur = node[part]
		case []interface{}:
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil || idx < 0 || idx >= len(node) {
				return field{}
			}
			cur = node[idx]
		default:
			return field{}
		}
	}
	switch v := cur.(type) {
	case string:
		return resolved(strings.TrimSpace(v))
	case float64, bool:
		return resolved(fmt.Sprint(v))
	}
	return field{}
}

// first returns the first resolved path in order.
func (d document) first(paths ...string) field {
	for _, p := range paths {
		if f := d.str(p); f.ok {
			return f
		}
	}
	return field{}
}

// endpointPrefixes maps CloudTrail eventSource hosts whose endpoint name
// differs from the IAM service prefix.
var endpointPrefixes = map[string]string{
	"monitoring":            "cloudwatch",
	"email":                 "ses",
	"email-smtp":            "ses",
	"streams.dynamodb":      "dynamodb",
	"api.ecr":               "ecr",
	"api.pricing":           "pricing",
	"api.sagemaker":         "sagemaker",
	"runtime.sagemaker":     "sagemaker",
	"data.iot":              "iot",
	"models.lex":            "lex",
	"runtime.lex":           "lex",
	"bedrock-runtime":       "bedrock",
	"bedrock-agent-runtime": "bedrock",
}

// iamPrefix converts a CloudTrail eventSource such as s3.amazonaws.com to
// the IAM service prefix used in policy actions.
func iamPrefix(eventSource string) (string, bool) {
	host := strings.TrimSuffix(eventSource, ".amazonaws.com")
	if host == "" || host == eventSource {
		return "", false
	}
	if prefix, ok := endpointPrefixes[host]; ok {
		return prefix, true
	}
	return host, true
}

// structuredExtraction applies the key precedence chains and falls back to
// the text rules per field.
func structuredExtraction(doc document, msg string) extraction {
	text := func(c chain) func() field {
		return func() field { return c.apply(msg) }
	}

	action := doc.first("eventName", "action", "operation")
	if action.ok && !strings.Contains(action.value, ":") {
		// CloudTrail records carry the service separately.
		if src := doc.str("eventSource"); src.ok {
			if service, ok := iamPrefix(src.value); ok {
				action = resolved(service + ":" + action.value)
			}
		}
	}

	return extraction{
		action:    action.or(text(actionRules)),
		resource:  doc.first("resources.0.ARN", "resourceARN", "resource", "bucketName", "key").or(text(resourceRules)),
		principal: doc.first("userIdentity.arn", "userIdentity.userName", "principal", "user").or(text(principalRules)),
		errorCode: doc.first("errorCode", "errorMessage", "error").or(text(errorCodeRules)),
		sourceIP:  doc.first("sourceIPAddress", "sourceIp"),
		userAgent: doc.first("userAgent"),
	}
}
