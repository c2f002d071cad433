package denial

import (
	"regexp"
	"strings"
)

// rule pairs a pattern with the extractor applied to its submatches.
type rule struct {
	name    string
	pattern *regexp.Regexp
	extract func(m []string) string
}

// chain is an ordered rule list; the first rule producing a value wins.
type chain []rule

func (c chain) apply(msg string) field {
	for _, r := range c {
		if v := r.first(msg); v != "" {
			return resolved(v)
		}
	}
	return field{}
}

// match finds the name of the first rule in c that resolves msg.
func (c chain) match(msg string) string {
	for _, r := range c {
		if r.first(msg) != "" {
			return r.name
		}
	}
	return ""
}

// first returns the value of the leftmost match the extractor accepts.
func (r rule) first(msg string) string {
	for _, m := range r.pattern.FindAllStringSubmatch(msg, -1) {
		if v := r.extract(m); v != "" {
			return v
		}
	}
	return ""
}

func group(i int) func([]string) string {
	return func(m []string) string {
		if i >= len(m) {
			return ""
		}
		return strings.TrimRight(m[i], ".")
	}
}

// logKeys are "key:Value" prefixes from structured log lines that are not
// IAM service prefixes.
var logKeys = map[string]bool{
	"error": true, "err": true, "level": true, "msg": true, "message": true,
	"status": true, "reason": true, "code": true, "type": true, "warning": true,
	"info": true, "debug": true, "fatal": true, "exception": true, "cause": true,
}

func serviceVerb(m []string) string {
	if logKeys[m[1]] {
		return ""
	}
	return m[1] + ":" + m[2]
}

func tablePrefixed(m []string) string {
	name := group(1)(m)
	if name == "" || strings.HasPrefix(name, "table ") {
		return name
	}
	return "table " + name
}

const (
	actionToken = `([A-Za-z0-9-]+:[A-Za-z0-9*]+)`
	value       = `([^\s,;"'\]\)]+)`
	arnValue    = `(arn:[^\s,;"'\]\)]+)`
	iamArn      = `(arn:aws:(?:iam|sts)::\d{12}:[^\s,;"'\]\)]+)`
)

var actionRules = chain{
	{"perform-colon", regexp.MustCompile(`(?i)perform:\s*` + actionToken), group(1)},
	{"perform", regexp.MustCompile(`(?i)perform\s+` + actionToken), group(1)},
	{"action", regexp.MustCompile(`(?i)\baction\s+` + actionToken), group(1)},
	{"action-label", regexp.MustCompile(`(?i)\bAction:\s*` + value), group(1)},
	{"operation-label", regexp.MustCompile(`(?i)\bOperation:\s*` + value), group(1)},
	{"eventname-label", regexp.MustCompile(`(?i)\bEventName:\s*` + value), group(1)},
	{"service-verb", regexp.MustCompile(`\b([a-z][a-z0-9-]*):([A-Z][A-Za-z0-9]*)\b`), serviceVerb},
}

var resourceRules = chain{
	{"on-resource", regexp.MustCompile(`(?i)on resource:\s*` + arnValue), group(1)},
	{"resource-label-arn", regexp.MustCompile(`(?i)resource:\s*` + arnValue), group(1)},
	{"on-arn", regexp.MustCompile(`(?i)\bon\s+` + arnValue), group(1)},
	{"on-table", regexp.MustCompile(`(?i)\bon table\s+` + value), tablePrefixed},
	{"table", regexp.MustCompile(`(?i)\btable\s+` + value), tablePrefixed},
	{"resource-label", regexp.MustCompile(`(?i)\bResource:\s*` + value), group(1)},
	{"bucket-label", regexp.MustCompile(`(?i)\bBucket:\s*` + value), group(1)},
	{"key-label", regexp.MustCompile(`(?i)\bKey:\s*` + value), group(1)},
}

var principalRules = chain{
	{"user-arn", regexp.MustCompile(`(?i)User:\s*` + iamArn), group(1)},
	{"principal-arn", regexp.MustCompile(`(?i)Principal\s+` + iamArn), group(1)},
	{"bare-arn", regexp.MustCompile(iamArn), group(1)},
	{"for-role", regexp.MustCompile(`(?i)for (role/[^\s,;"'\]\)]+)`), group(1)},
	{"user-label", regexp.MustCompile(`(?i)\bUser:\s*` + value), group(1)},
	{"role-label", regexp.MustCompile(`(?i)\bRole:\s*` + value), group(1)},
	{"principal-label", regexp.MustCompile(`(?i)\bPrincipal:\s*` + value), group(1)},
}

// knownErrors is searched in order when no explicit ErrorCode label is present.
var knownErrors = []string{
	"AccessDenied",
	"UnauthorizedOperation",
	"Forbidden",
	"InvalidUserID.NotFound",
	"InvalidAction",
	"NoSuchBucket",
	"NoSuchKey",
	"CredentialsNotFound",
	"InvalidAccessKeyId",
	"SignatureDoesNotMatch",
	"TokenRefreshRequired",
}

var errorCodeRules = func() chain {
	c := chain{
		{"errorcode-label", regexp.MustCompile(`(?i)ErrorCode:\s*([A-Za-z0-9.]+)`), group(1)},
	}
	for _, name := range knownErrors {
		canonical := name
		c = append(c, rule{
			name:    "known-" + canonical,
			pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(canonical)),
			extract: func([]string) string { return canonical },
		})
	}
	return append(c, rule{
		name:    "loose-denied",
		pattern: regexp.MustCompile(`(?i)not authorized|access denied`),
		extract: func([]string) string { return "AccessDenied" },
	})
}()

// textExtraction resolves every field from free text.
func textExtraction(msg string) extraction {
	return extraction{
		action:    actionRules.apply(msg),
		resource:  resourceRules.apply(msg),
		principal: principalRules.apply(msg),
		errorCode: errorCodeRules.apply(msg),
	}
}
