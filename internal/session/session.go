package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/endpoint"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/event"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/placeholder"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/storage"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// Options configure a new session.
type Options struct {
	// ID overrides the generated session ID. Used when reviving a
	// persisted session.
	ID string

	// BasePrompt is the command prompt that opened the session. It seeds
	// the conversation history and prefixes every mega-prompt.
	BasePrompt string

	// Profile names the endpoint profile Config came from, if any.
	Profile string

	// Config is the invocation target for every request this session
	// sends. It is fixed at creation; nothing is read from ambient state.
	Config types.EndpointConfig

	// FileContext is the formatted selected-file block. It is embedded in
	// the mega-prompt when a submit asks for it and is sent as the request
	// input value.
	FileContext string

	// Substitutions carries the keyed placeholder values bound for this
	// session (selection, clipboard and similar context).
	Substitutions *placeholder.Context

	Invoker  *endpoint.Invoker
	Resolver *placeholder.Resolver

	// Storage persists session snapshots when set.
	Storage *storage.Storage
}

// Session is a single conversation: a base prompt, the running history and at
// most one in-flight endpoint invocation. Submitting while a response is
// pending supersedes the pending invocation; updates from superseded
// invocations are dropped.
type Session struct {
	mu sync.Mutex

	id          string
	basePrompt  string
	profile     string
	config      types.EndpointConfig
	fileContext string
	subs        *placeholder.Context

	invoker  *endpoint.Invoker
	resolver *placeholder.Resolver
	store    *storage.Storage

	state    types.SessionState
	history  []string
	previous string
	data     string
	errText  string

	// baseRequest is the initial base-prompt request as sent; lastRequest
	// is the most recent request of any kind. Regenerate replays one of
	// them verbatim.
	baseRequest *endpoint.Request
	lastRequest *endpoint.Request

	stream       *endpoint.ResultStream
	invocationID string

	created int64
	updated int64
}

// New creates an idle session seeded with the base prompt as the first
// history entry. No invocation is started; call Start or Submit.
func New(opts Options) *Session {
	now := time.Now().UnixMilli()
	id := opts.ID
	if id == "" {
		id = generateID()
	}
	inv := opts.Invoker
	if inv == nil {
		inv = endpoint.NewInvoker(nil)
	}
	return &Session{
		id:          id,
		basePrompt:  opts.BasePrompt,
		profile:     opts.Profile,
		config:      opts.Config,
		fileContext: opts.FileContext,
		subs:        opts.Substitutions,
		invoker:     inv,
		resolver:    opts.Resolver,
		store:       opts.Storage,
		state:       types.SessionIdle,
		history:     []string{opts.BasePrompt},
		created:     now,
		updated:     now,
	}
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// Profile returns the endpoint profile name the session was created with.
func (s *Session) Profile() string { return s.profile }

// BasePrompt returns the prompt the session was opened with.
func (s *Session) BasePrompt() string { return s.basePrompt }

// State returns the current lifecycle state.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the render snapshot: response text so far, whether an
// invocation is in flight and the presentable form of the last failure.
func (s *Session) View() types.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// History returns a copy of the conversation history, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot returns the wire representation of the session.
func (s *Session) Snapshot() *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Start fires the initial base-prompt invocation. The base prompt is
// placeholder-resolved first; the request is remembered so Regenerate can
// replay it.
func (s *Session) Start(ctx context.Context) error {
	resolved := s.resolve(ctx, s.basePrompt)
	req := endpoint.Request{
		BasePrompt: s.basePrompt,
		Prompt:     resolved,
		Input:      s.fileContext,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == types.SessionClosed {
		return ErrClosed
	}
	s.baseRequest = &req
	s.lastRequest = &req
	s.data = ""
	s.errText = ""
	err := s.invokeLocked(req)
	s.persistLocked()
	return err
}

// Submit sends a follow-up query. The displayed response becomes the previous
// response, the query and that response join the history (trimmed oldest
// first to the prompt budget), and the assembled mega-prompt is sent. A
// submit while a response is pending supersedes the pending invocation.
func (s *Session) Submit(ctx context.Context, query string, opts types.SubmitOptions) error {
	if query == "" {
		return &ValidationError{Field: "query", Message: "may not be empty"}
	}

	s.mu.Lock()
	if s.state == types.SessionClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	// Placeholder passes may run subprocesses or fetches; resolve outside
	// the session lock.
	resolved := s.resolve(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == types.SessionClosed {
		return ErrClosed
	}

	previous := s.data
	s.previous = previous
	s.data = ""
	s.errText = ""
	s.history = append(s.history, previous, query)
	s.history = trimHistory(s.history, query)

	prompt := buildPrompt(s.basePrompt, s.fileContext, s.history, previous, resolved, opts)
	req := endpoint.Request{
		BasePrompt: s.basePrompt,
		Prompt:     prompt,
		Input:      s.fileContext,
	}
	s.lastRequest = &req

	err := s.invokeLocked(req)
	s.persistLocked()
	event.Publish(event.Event{
		Type: event.SessionUpdated,
		Data: event.SessionUpdatedData{Info: s.snapshotLocked()},
	})
	return err
}

// Cancel stops the in-flight invocation. With a previous response to fall
// back to, only the invocation is abandoned: the previous response becomes
// visible again, the history is untouched and the session returns to idle.
// Without one the whole session is abandoned.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == types.SessionClosed:
		return ErrClosed
	case s.previous != "":
		if s.state != types.SessionAwaitingResponse {
			return nil
		}
		s.abortLocked()
		s.state = types.SessionIdle
		s.data = s.previous
		s.errText = ""
		s.touchLocked()
		s.persistLocked()
		event.Publish(event.Event{
			Type: event.SessionUpdated,
			Data: event.SessionUpdatedData{Info: s.snapshotLocked()},
		})
		return nil
	default:
		s.closeLocked()
		return nil
	}
}

// Regenerate re-invokes without mutating the conversation: the exact last
// sent request when a previous response exists, the initial base request
// otherwise.
func (s *Session) Regenerate(ctx context.Context) error {
	s.mu.Lock()
	if s.state == types.SessionClosed {
		s.mu.Unlock()
		return ErrClosed
	}

	var req *endpoint.Request
	if s.previous != "" && s.lastRequest != nil {
		req = s.lastRequest
	} else {
		req = s.baseRequest
	}
	if req == nil {
		// Nothing was ever sent; fall back to the initial invocation.
		s.mu.Unlock()
		return s.Start(ctx)
	}

	defer s.mu.Unlock()
	s.data = ""
	s.errText = ""
	err := s.invokeLocked(*req)
	s.persistLocked()
	return err
}

// Close abandons the session unconditionally, stopping any in-flight
// invocation. Further operations return ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == types.SessionClosed {
		return
	}
	s.closeLocked()
}

// invokeLocked supersedes any in-flight invocation with req. Rejections that
// happen before any network activity leave the session idle with the error
// visible; transport failures arrive later through the stream.
func (s *Session) invokeLocked(req endpoint.Request) error {
	s.abortLocked()

	// The invocation outlives the submitting call: its lifetime belongs to
	// the session and ends at a terminal update, supersession or Cancel.
	stream, err := s.invoker.Invoke(context.Background(), req, s.config)
	if err != nil {
		s.errText = presentError(err)
		s.state = types.SessionIdle
		s.touchLocked()
		logging.Warn().
			Str("session", s.id).
			Str("kind", errorKind(err)).
			Err(err).
			Msg("invocation rejected")
		event.Publish(event.Event{
			Type: event.SessionError,
			Data: event.SessionErrorData{SessionID: s.id, Kind: errorKind(err), Error: s.errText},
		})
		return err
	}

	s.stream = stream
	s.invocationID = stream.ID()
	s.state = types.SessionAwaitingResponse
	s.touchLocked()
	logging.Debug().
		Str("session", s.id).
		Str("invocation", s.invocationID).
		Msg("invocation started")
	go s.pump(stream)
	return nil
}

// pump forwards stream updates to the session until the stream drains.
func (s *Session) pump(stream *endpoint.ResultStream) {
	id := stream.ID()
	for {
		res, err := stream.Recv()
		if err != nil {
			return
		}
		s.apply(id, res)
	}
}

// apply folds one invocation update into the session. Updates from an
// invocation other than the current one are stale and dropped.
func (s *Session) apply(invocationID string, res endpoint.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if invocationID != s.invocationID {
		return
	}

	switch res.State {
	case endpoint.StateStreaming:
		var delta string
		if strings.HasPrefix(res.Text, s.data) {
			delta = res.Text[len(s.data):]
		}
		s.data = res.Text
		s.touchLocked()
		event.Publish(event.Event{
			Type: event.SessionUpdated,
			Data: event.SessionUpdatedData{Info: s.snapshotLocked(), Delta: delta},
		})
	case endpoint.StateComplete:
		s.data = res.Text
		s.state = types.SessionIdle
		s.stream = nil
		s.invocationID = ""
		s.touchLocked()
		s.persistLocked()
		logging.Debug().
			Str("session", s.id).
			Int("bytes", len(res.Text)).
			Msg("invocation complete")
		event.Publish(event.Event{
			Type: event.SessionCompleted,
			Data: event.SessionCompletedData{SessionID: s.id, Data: res.Text},
		})
	case endpoint.StateFailed:
		s.errText = presentError(res.Err)
		s.state = types.SessionIdle
		s.stream = nil
		s.invocationID = ""
		s.touchLocked()
		s.persistLocked()
		logging.Warn().
			Str("session", s.id).
			Str("kind", errorKind(res.Err)).
			Err(res.Err).
			Msg("invocation failed")
		event.Publish(event.Event{
			Type: event.SessionError,
			Data: event.SessionErrorData{SessionID: s.id, Kind: errorKind(res.Err), Error: s.errText},
		})
	}
}

// abortLocked stops the in-flight invocation, if any. Late updates are
// dropped by the invocation ID check in apply.
func (s *Session) abortLocked() {
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	s.invocationID = ""
}

func (s *Session) closeLocked() {
	s.abortLocked()
	s.state = types.SessionClosed
	s.touchLocked()
	s.persistLocked()
	logging.Debug().Str("session", s.id).Msg("session closed")
	event.Publish(event.Event{
		Type: event.SessionClosed,
		Data: event.SessionClosedData{SessionID: s.id},
	})
}

func (s *Session) resolve(ctx context.Context, text string) string {
	if s.resolver == nil {
		return text
	}
	return s.resolver.Resolve(ctx, text, s.subs)
}

func (s *Session) viewLocked() types.View {
	return types.View{
		Data:      s.data,
		IsLoading: s.state == types.SessionAwaitingResponse,
		Error:     s.errText,
	}
}

func (s *Session) snapshotLocked() *types.Session {
	history := make([]string, len(s.history))
	copy(history, s.history)
	return &types.Session{
		ID:         s.id,
		BasePrompt: s.basePrompt,
		Profile:    s.profile,
		State:      s.state,
		View:       s.viewLocked(),
		History:    history,
		Time:       types.SessionTime{Created: s.created, Updated: s.updated},
	}
}

func (s *Session) touchLocked() {
	s.updated = time.Now().UnixMilli()
}

func (s *Session) persistLocked() {
	if s.store == nil {
		return
	}
	rec := &storedSession{
		Info:        s.snapshotLocked(),
		Config:      s.config,
		Previous:    s.previous,
		FileContext: s.fileContext,
	}
	if err := s.store.Put(context.Background(), []string{"session", s.id}, rec); err != nil {
		logging.Warn().Str("session", s.id).Err(err).Msg("failed to persist session")
	}
}

// presentError converts an invocation failure to its displayable form.
func presentError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// errorKind names the failure class for events and logs.
func errorKind(err error) string {
	var (
		httpErr    *endpoint.HTTPStatusError
		parseErr   *endpoint.ParseError
		capErr     *endpoint.CapabilityUnavailableError
		invalidErr *endpoint.InvalidEndpointError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, endpoint.ErrEmptyPrompt):
		return "emptyPrompt"
	case errors.As(err, &httpErr):
		return "httpStatus"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &capErr):
		return "capabilityUnavailable"
	case errors.As(err, &invalidErr):
		return "invalidEndpoint"
	default:
		return "transport"
	}
}

// generateID generates a new ULID.
func generateID() string {
	return ulid.Make().String()
}
