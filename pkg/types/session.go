// Package types provides the shared data types for the PromptLab core.
package types

// SessionState describes where a conversation session is in its lifecycle.
type SessionState string

const (
	// SessionIdle means no invocation is in flight.
	SessionIdle SessionState = "idle"
	// SessionAwaitingResponse means exactly one invocation is in flight.
	SessionAwaitingResponse SessionState = "awaitingResponse"
	// SessionClosed means the session was abandoned and accepts no
	// further operations.
	SessionClosed SessionState = "closed"
)

// Session is the wire representation of a conversation session. History is
// the running conversation, oldest first, seeded with the base prompt.
type Session struct {
	ID         string       `json:"id"`
	BasePrompt string       `json:"basePrompt"`
	Profile    string       `json:"profile,omitempty"`
	State      SessionState `json:"state"`
	View       View         `json:"view"`
	History    []string     `json:"history,omitempty"`
	Time       SessionTime  `json:"time"`
}

// SessionTime contains timestamps for a session.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}

// View is the live value a UI layer renders for a session: the response text
// so far, whether an invocation is in flight, and the presentable form of the
// last failure.
type View struct {
	Data      string `json:"data"`
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
}

// SubmitOptions control how a query is folded into the mega-prompt.
type SubmitOptions struct {
	// UseFiles includes the selected-file context block.
	UseFiles bool `json:"useFiles,omitempty"`
	// UseConversation includes the running conversation history instead
	// of only the most recent response.
	UseConversation bool `json:"useConversation,omitempty"`
}
