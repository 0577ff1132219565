// Package endpoint invokes a configured completion target with a
// prepared prompt. The target is either one of the built-in assistant
// aliases, served by the native engines, or a remote URL spoken to
// over HTTP in one-shot or streaming mode. Every invocation yields a
// ResultStream of ordered updates ending in exactly one terminal
// result.
package endpoint

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/keypath"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/native"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// maxResponseBytes caps how much of a sync response body is read.
const maxResponseBytes = 10 * 1024 * 1024

// maxLineBytes caps a single data: frame in an async response.
const maxLineBytes = 1024 * 1024

// Request carries the prompt material for one invocation. Prompt is
// the fully resolved text to answer, BasePrompt the unexpanded command
// template it came from, and Input any selected source material.
type Request struct {
	BasePrompt string
	Prompt     string
	Input      string
}

// Invoker routes requests to the built-in engines or to remote HTTP
// endpoints. The zero Invoker is not usable; construct with NewInvoker.
type Invoker struct {
	client  *http.Client
	engines *native.Registry
}

// NewInvoker creates an Invoker backed by the given engine registry.
// The registry may be nil, in which case the built-in aliases report
// the capability as unavailable. The HTTP client carries no timeout;
// a stalled endpoint is abandoned by closing the stream.
func NewInvoker(engines *native.Registry) *Invoker {
	return &Invoker{
		client:  &http.Client{},
		engines: engines,
	}
}

// Invoke starts one invocation of config's endpoint and returns the
// update stream. Configuration problems that require no network are
// reported synchronously: ErrEmptyPrompt when both prompts are empty,
// CapabilityUnavailableError when an assistant alias has no engine
// behind it, and InvalidEndpointError when the identifier is neither
// an alias nor a URL. Everything later arrives on the stream.
func (inv *Invoker) Invoke(ctx context.Context, req Request, config types.EndpointConfig) (*ResultStream, error) {
	if req.BasePrompt == "" && req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	switch {
	case native.IsAlias(config.Endpoint):
		if inv.engines == nil {
			return nil, &CapabilityUnavailableError{Endpoint: config.Endpoint}
		}
		engine, err := inv.engines.Default()
		if err != nil {
			return nil, &CapabilityUnavailableError{Endpoint: config.Endpoint}
		}
		return inv.invokeNative(ctx, engine, req, config), nil

	case strings.Contains(config.Endpoint, "://"):
		if config.OutputTiming == types.OutputAsync {
			return inv.invokeAsync(ctx, req, config), nil
		}
		return inv.invokeSync(ctx, req, config), nil

	default:
		return nil, &InvalidEndpointError{Endpoint: config.Endpoint}
	}
}

// invokeNative streams a completion from a built-in engine.
func (inv *Invoker) invokeNative(ctx context.Context, engine native.Engine, req Request, config types.EndpointConfig) *ResultStream {
	stream := newResultStream(ctx)
	prompt := config.PromptPrefix + req.Prompt + config.PromptSuffix

	logging.Debug().
		Str("engine", engine.ID()).
		Str("invocation", stream.ID()).
		Msg("invoking built-in engine")

	go func() {
		defer stream.finish()
		stream.send(Result{State: StatePending})

		completion, err := engine.Complete(stream.ctx, native.PromptRequest(prompt, 0, 0))
		if err != nil {
			stream.send(Result{State: StateFailed, Err: err})
			return
		}
		defer completion.Close()

		var text string
		for {
			msg, err := completion.Recv()
			if err == io.EOF {
				stream.send(Result{State: StateComplete, Text: text})
				return
			}
			if err != nil {
				stream.send(Result{State: StateFailed, Text: text, Err: err})
				return
			}
			if msg.Content == "" {
				continue
			}
			text += msg.Content
			if !stream.send(Result{State: StateStreaming, Text: text}) {
				return
			}
		}
	}()

	return stream
}

// invokeSync issues one POST and resolves the whole response at once.
func (inv *Invoker) invokeSync(ctx context.Context, req Request, config types.EndpointConfig) *ResultStream {
	stream := newResultStream(ctx)

	go func() {
		defer stream.finish()
		stream.send(Result{State: StatePending})

		resp, err := inv.post(stream.ctx, stream.ID(), req, config)
		if err != nil {
			stream.send(Result{State: StateFailed, Err: err})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			stream.send(Result{State: StateFailed, Err: &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}})
			return
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			stream.send(Result{State: StateFailed, Err: fmt.Errorf("failed to read response: %w", err)})
			return
		}

		var payload any
		if err := json.Unmarshal(data, &payload); err != nil {
			stream.send(Result{State: StateFailed, Err: &ParseError{Path: config.OutputKeyPath, Err: err}})
			return
		}

		text, ok := keypath.Coerce(keypath.Extract(payload, config.OutputKeyPath, nil))
		if !ok {
			stream.send(Result{State: StateFailed, Err: &ParseError{Path: config.OutputKeyPath}})
			return
		}

		stream.send(Result{State: StateComplete, Text: text})
	}()

	return stream
}

// invokeAsync issues one POST and folds the data: frames of the
// response into the accumulated text, one Streaming update per frame.
func (inv *Invoker) invokeAsync(ctx context.Context, req Request, config types.EndpointConfig) *ResultStream {
	stream := newResultStream(ctx)

	go func() {
		defer stream.finish()
		stream.send(Result{State: StatePending})

		resp, err := inv.post(stream.ctx, stream.ID(), req, config)
		if err != nil {
			stream.send(Result{State: StateFailed, Err: err})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			stream.send(Result{State: StateFailed, Err: &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}})
			return
		}

		var acc accumulator
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			chunk, ok := decodeDataLine(scanner.Text(), config.OutputKeyPath)
			if !ok || chunk == "" {
				continue
			}
			if !stream.send(Result{State: StateStreaming, Text: acc.push(chunk)}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			stream.send(Result{State: StateFailed, Text: acc.text, Err: fmt.Errorf("stream read failed: %w", err)})
			return
		}

		stream.send(Result{State: StateComplete, Text: acc.text})
	}()

	return stream
}

// post builds and issues the invocation request. The API key is
// attached as a header and never logged.
func (inv *Invoker) post(ctx context.Context, invocationID string, req Request, config types.EndpointConfig) (*http.Response, error) {
	input := suppressDuplicateInput(config.RequestBody, req.Prompt, req.Input)
	prompt := config.PromptPrefix + req.Prompt + config.PromptSuffix
	body := SubstituteBody(config.RequestBody, req.BasePrompt, prompt, input)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, config.Endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	attachAuth(httpReq, config)

	logging.Debug().
		Str("endpoint", config.Endpoint).
		Str("timing", string(config.OutputTiming)).
		Str("invocation", invocationID).
		Msg("invoking endpoint")

	return inv.client.Do(httpReq)
}

// attachAuth sets the single authorization header selected by the
// configured scheme. No header is attached for AuthNone.
func attachAuth(req *http.Request, config types.EndpointConfig) {
	switch config.AuthScheme {
	case types.AuthAPIKey:
		req.Header.Set("Authorization", "Api-Key "+config.APIKey)
	case types.AuthBearerToken:
		req.Header.Set("Authorization", "Bearer "+config.APIKey)
	case types.AuthCustomHeader:
		req.Header.Set("X-API-Key", config.APIKey)
	}
}

// decodeDataLine extracts the chunk text from one line of an async
// response. Lines without a data: marker, lines whose payload is not
// JSON and payloads without text at the key path are all skipped.
func decodeDataLine(line, path string) (string, bool) {
	idx := strings.Index(line, "data:")
	if idx < 0 {
		return "", false
	}
	raw := strings.TrimSpace(line[idx+len("data:"):])
	if raw == "" {
		return "", false
	}

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", false
	}
	return keypath.Coerce(keypath.Extract(payload, path, nil))
}
