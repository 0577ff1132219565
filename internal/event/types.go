package event

import "github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"

// SessionCreatedData is the data for session.created events.
type SessionCreatedData struct {
	Info *types.Session `json:"info"`
}

// SessionUpdatedData is the data for session.updated events. Delta carries
// the text appended by a streaming update when it grew the response
// incrementally; it is empty for snapshot-style updates.
type SessionUpdatedData struct {
	Info  *types.Session `json:"info"`
	Delta string         `json:"delta,omitempty"`
}

// SessionCompletedData is the data for session.completed events.
type SessionCompletedData struct {
	SessionID string `json:"sessionID"`
	Data      string `json:"data"`
}

// SessionErrorData is the data for session.error events. Kind carries the
// error taxonomy name ("httpStatus", "parse", ...) when known.
type SessionErrorData struct {
	SessionID string `json:"sessionID,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SessionClosedData is the data for session.closed events, published when a
// session is abandoned without a previous response to fall back to.
type SessionClosedData struct {
	SessionID string `json:"sessionID"`
}

// SessionDeletedData is the data for session.deleted events.
type SessionDeletedData struct {
	SessionID string `json:"sessionID"`
}

// ProfileUpdatedData is the data for profile.updated events.
type ProfileUpdatedData struct {
	Info *types.Profile `json:"info"`
}

// ProfileDeletedData is the data for profile.deleted events.
type ProfileDeletedData struct {
	Name string `json:"name"`
}

// ConfigUpdatedData is the data for config.updated events.
type ConfigUpdatedData struct {
	Path string `json:"path"`
}
