package endpoint

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// sanitizeValue prepares a substitution value for embedding inside a
// JSON string literal. Runs of whitespace, newlines included, collapse
// to a single space and double quotes are backslash-escaped.
func sanitizeValue(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.ReplaceAll(s, `"`, `\"`)
}

// SubstituteBody renders the request body template for one invocation,
// replacing the {prompt}, {basePrompt} and {input} tokens with the
// sanitized values. Validity of the result as JSON is the template
// author's responsibility.
func SubstituteBody(template, basePrompt, prompt, input string) string {
	body := strings.ReplaceAll(template, "{prompt}", sanitizeValue(prompt))
	body = strings.ReplaceAll(body, "{basePrompt}", sanitizeValue(basePrompt))
	body = strings.ReplaceAll(body, "{input}", sanitizeValue(input))
	return body
}

// suppressDuplicateInput drops the input value when the template
// already embeds the prompt and the input carries the same text, so
// one request never includes the content twice.
func suppressDuplicateInput(template, prompt, input string) string {
	if strings.Contains(template, "{prompt") && input == prompt {
		return ""
	}
	return input
}
