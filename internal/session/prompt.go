package session

import (
	"strings"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// maxPromptLength bounds how much conversation history a follow-up query may
// carry. History is trimmed oldest-first until the query plus the joined
// history fit.
const maxPromptLength = 3900

// Connective phrasing between mega-prompt blocks. The wording is fixed so
// endpoint request templates can anchor on it.
const (
	fileContextHeader  = "\n\nUse the contents of the following files to inform your response:\n"
	conversationHeader = "\n\nThe conversation so far, oldest first:\n"
	previousHeader     = "\n\nYour previous response was:\n"
	queryHeader        = "\n\nRespond to the following query: "
)

// trimHistory drops the oldest entries until query plus the joined history
// fit the prompt budget. The query itself is never trimmed, so an oversized
// query empties the history and is still sent.
func trimHistory(history []string, query string) []string {
	for len(history) > 0 && len(query)+len(strings.Join(history, "\n")) > maxPromptLength {
		history = history[1:]
	}
	return history
}

// buildPrompt assembles the contextual mega-prompt for one follow-up query:
// the base prompt, the selected-file block when requested, either the running
// conversation or the most recent response, and the placeholder-resolved
// query.
func buildPrompt(basePrompt, fileContext string, history []string, previous, query string, opts types.SubmitOptions) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if opts.UseFiles && fileContext != "" {
		b.WriteString(fileContextHeader)
		b.WriteString(fileContext)
	}

	if opts.UseConversation && len(history) > 0 {
		b.WriteString(conversationHeader)
		b.WriteString(strings.Join(history, "\n"))
	} else if !opts.UseConversation && previous != "" {
		b.WriteString(previousHeader)
		b.WriteString(previous)
	}

	b.WriteString(queryHeader)
	b.WriteString(query)
	return b.String()
}
