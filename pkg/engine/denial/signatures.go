package denial

import (
	"regexp"
	"strings"
)

// SignatureTerms are the literal phrases that mark a record as a denial.
var SignatureTerms = []string{
	"AccessDenied",
	"Access Denied",
	"UnauthorizedOperation",
	"Forbidden",
	"not authorized",
	"permission denied",
	"InvalidAccessKeyId",
	"SignatureDoesNotMatch",
	"CredentialsNotFound",
	"TokenRefreshRequired",
	// Step Functions / CodeBuild phrasing.
	"Task failed",
	"Execution failed",
	"States.TaskFailed",
}

// signatures is evaluated in order; any match marks the record as a denial.
var signatures = compileSignatures()

func compileSignatures() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(SignatureTerms)+1)
	for _, term := range SignatureTerms {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(term)))
	}
	return append(out, regexp.MustCompile(`(?i)is not authorized to perform:\s*[a-z0-9-]+:[a-z0-9*]+`))
}

// HasSignature reports whether msg contains any denial vocabulary.
func HasSignature(msg string) bool {
	for _, sig := range signatures {
		if sig.MatchString(msg) {
			return true
		}
	}
	return false
}

// FilterPattern renders SignatureTerms as a CloudWatch Logs OR pattern.
// CloudWatch term matching is case-sensitive, so each term is listed as
// written, lowercased, uppercased and title-cased.
func FilterPattern() string {
	seen := make(map[string]bool)
	var terms []string
	for _, term := range SignatureTerms {
		for _, v := range []string{term, strings.ToLower(term), strings.ToUpper(term), titleWords(term)} {
			if !seen[v] {
				seen[v] = true
				terms = append(terms, `?"`+v+`"`)
			}
		}
	}
	return strings.Join(terms, " ")
}

func titleWords(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
