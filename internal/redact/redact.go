// Package redact strips credentials, connection URLs, personal data and
// query fragments from strings before they reach logs or error responses.
// Import files and broker errors routinely echo employee emails and DSNs,
// so every logged error goes through Error.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted fragments.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
)

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// rules run in order; URL credentials go first so that later rules never
// see a user:password pair.
var rules = []rule{
	// postgres, rabbitmq, redis and smtp URLs with userinfo
	{
		regexp.MustCompile(`(?i)\b(postgres(?:ql)?|amqps?|rediss?|smtps?|mysql|db|database|connection)://[^@\s/]+@`),
		RedactedCredentialPlaceholder,
	},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
	// Google API keys as used by the Gemini client
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`), RedactedKeyPlaceholder},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		RedactedKeyPlaceholder,
	},
	{regexp.MustCompile(`(AKIA|AccessKey(Id)?)([^a-zA-Z0-9])?[A-Z0-9]{8,}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), RedactedEmailPlaceholder},
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`), RedactedPathPlaceholder},
	{
		regexp.MustCompile(
			`(?i)\b(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|GRANT)\b[\s\w,*()."]+(?:FROM|INTO|SET|TABLE|DATABASE|SCHEMA|VIEW)\b[^;\n]*`,
		),
		"[REDACTED_SQL]",
	},
	{regexp.MustCompile(`(?i)syntax error|syntax problem|parse error`), "[REDACTED_SYNTAX_ERROR]"},
	{
		regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`),
		RedactedHostPlaceholder,
	},
	{regexp.MustCompile(`(?i)(?:no such file|file not found|can't open|cannot open|file error)`), "[REDACTED_FILE_ERROR]"},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
