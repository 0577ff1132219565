package headless

import (
	"time"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// OutputFormat defines the output format for headless mode.
type OutputFormat string

const (
	// OutputText is human-readable streaming text output.
	OutputText OutputFormat = "text"
	// OutputJSON is final JSON result summary.
	OutputJSON OutputFormat = "json"
	// OutputJSONL is streaming JSONL events.
	OutputJSONL OutputFormat = "jsonl"
)

// ExitCode defines exit codes for headless mode.
type ExitCode int

const (
	// ExitSuccess indicates successful completion.
	ExitSuccess ExitCode = 0
	// ExitError indicates a general/unknown error.
	ExitError ExitCode = 1
	// ExitTimeout indicates the wait for a response exceeded the timeout.
	ExitTimeout ExitCode = 2
	// ExitInvalidInput indicates a bad prompt or missing required flags.
	ExitInvalidInput ExitCode = 3
	// ExitUnknownProfile indicates the named profile does not exist.
	ExitUnknownProfile ExitCode = 4
)

// Substitution binds one custom placeholder key to a literal value.
// The key is the full placeholder text as written in the prompt,
// for example "{{audience}}".
type Substitution struct {
	Key   string
	Value string
}

// Config holds configuration for headless mode execution.
type Config struct {
	// Prompt is the base prompt to run.
	Prompt string
	// Profile names the endpoint profile to invoke. Empty falls back
	// to the configured default profile.
	Profile string
	// Endpoint overrides the profile when non-nil.
	Endpoint *types.EndpointConfig
	// WorkDir is where project config is discovered and where relative
	// file placeholders resolve.
	WorkDir string
	// OutputFormat specifies the output format (text, json, jsonl).
	OutputFormat OutputFormat
	// Timeout is the maximum time to wait for the response.
	Timeout time.Duration
	// ReadStdin binds standard input as the {{selection}} placeholder.
	ReadStdin bool
	// NoSave disables session persistence (ephemeral mode).
	NoSave bool
	// Files is a list of files to attach as context.
	Files []string
	// Substitutions are extra placeholder bindings, applied after the
	// config's promptVariables so they win on key collisions.
	Substitutions []Substitution
	// Quiet suppresses progress output, only shows the response.
	Quiet bool
	// Verbose shows all events (with jsonl format).
	Verbose bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputFormat: OutputText,
		Timeout:      5 * time.Minute,
	}
}

// Result holds the final result of a headless execution.
type Result struct {
	SessionID  string   `json:"session_id"`
	Status     string   `json:"status"` // "success", "error", "timeout"
	Profile    string   `json:"profile,omitempty"`
	Endpoint   string   `json:"endpoint,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Response   string   `json:"response,omitempty"`
	Error      string   `json:"error,omitempty"`
	ExitCode   ExitCode `json:"exit_code"`
}

// Event represents a JSONL event for streaming output.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"ts"`
	Data      any       `json:"data"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}
