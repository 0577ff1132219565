package endpoint

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// State identifies the lifecycle phase carried by a Result.
type State string

const (
	// StatePending is emitted once, before any network or engine work.
	StatePending State = "pending"
	// StateStreaming carries the accumulated text after each chunk.
	StateStreaming State = "streaming"
	// StateComplete carries the final text. Terminal.
	StateComplete State = "complete"
	// StateFailed carries the invocation error. Terminal.
	StateFailed State = "failed"
)

// Result is one update from an in-flight invocation.
type Result struct {
	State State
	Text  string // response text accumulated so far
	Err   error  // set when State is StateFailed
}

// Done reports whether this result terminates the stream.
func (r Result) Done() bool {
	return r.State == StateComplete || r.State == StateFailed
}

// ResultStream delivers invocation updates in order. Exactly one
// terminal result arrives, after which Recv returns io.EOF.
type ResultStream struct {
	id        string
	ctx       context.Context
	cancel    context.CancelFunc
	updates   chan Result
	closeOnce sync.Once
}

func newResultStream(ctx context.Context) *ResultStream {
	streamCtx, cancel := context.WithCancel(ctx)
	return &ResultStream{
		id:      ulid.Make().String(),
		ctx:     streamCtx,
		cancel:  cancel,
		updates: make(chan Result, 16),
	}
}

// ID returns the invocation identity, unique per Invoke call. Sessions
// compare it to discard updates from superseded invocations.
func (s *ResultStream) ID() string { return s.id }

// Recv returns the next result. io.EOF signals the end of the stream.
// A closed stream reports io.EOF immediately, dropping any updates
// still buffered.
func (s *ResultStream) Recv() (Result, error) {
	select {
	case <-s.ctx.Done():
		return Result{}, io.EOF
	default:
	}

	select {
	case res, ok := <-s.updates:
		if !ok {
			return Result{}, io.EOF
		}
		return res, nil
	case <-s.ctx.Done():
		return Result{}, io.EOF
	}
}

// Close abandons the invocation. The underlying request is cancelled
// and no further updates are produced, even if the transport is still
// delivering bytes.
func (s *ResultStream) Close() {
	s.closeOnce.Do(s.cancel)
}

// send delivers one result unless the stream has been abandoned.
func (s *ResultStream) send(res Result) bool {
	select {
	case s.updates <- res:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// finish closes the update channel once the producer is done.
func (s *ResultStream) finish() {
	close(s.updates)
}

// accumulator assembles streamed chunks into the response text. A
// chunk that contains the text so far is a snapshot and replaces it;
// any other chunk is a delta and is appended. A delta that happens to
// contain the whole accumulated text is indistinguishable from a
// snapshot and will replace rather than append.
type accumulator struct {
	text string
}

func (a *accumulator) push(chunk string) string {
	if strings.Contains(chunk, a.text) {
		a.text = chunk
	} else {
		a.text += chunk
	}
	return a.text
}
