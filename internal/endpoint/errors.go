package endpoint

import (
	"errors"
	"fmt"
)

// ErrEmptyPrompt is returned by Invoke when the base prompt and the
// query prompt are both empty. No request is issued.
var ErrEmptyPrompt = errors.New("prompt and base prompt are both empty")

// CapabilityUnavailableError indicates the endpoint names the built-in
// assistant but no engine is configured to back it. It is terminal for
// the invocation; no network request is issued.
type CapabilityUnavailableError struct {
	Endpoint string
}

func (e *CapabilityUnavailableError) Error() string {
	return fmt.Sprintf("built-in assistant %q is not available: no engine configured", e.Endpoint)
}

// InvalidEndpointError indicates the endpoint identifier is neither a
// built-in assistant alias nor a URL.
type InvalidEndpointError struct {
	Endpoint string
}

func (e *InvalidEndpointError) Error() string {
	return fmt.Sprintf("invalid endpoint %q: not an assistant alias or URL", e.Endpoint)
}

// HTTPStatusError reports a non-success response from the endpoint.
// The message is the literal status text returned by the server.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string { return e.Status }

// ParseError indicates the endpoint response could not be decoded as
// JSON, or the output key path did not address a text value in it.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not parse endpoint response: %v", e.Err)
	}
	return fmt.Sprintf("could not parse endpoint response: no text at key path %q", e.Path)
}

func (e *ParseError) Unwrap() error { return e.Err }
