package headless

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/event"
)

// Printer handles event output in various formats for headless mode.
type Printer struct {
	mu          sync.Mutex
	writer      io.Writer
	format      OutputFormat
	quiet       bool
	verbose     bool
	unsubscribe func()
	sessionID   string
	startTime   time.Time
	result      *Result
	printed     int
}

// NewPrinter creates a new event printer.
func NewPrinter(writer io.Writer, format OutputFormat, quiet, verbose bool) *Printer {
	return &Printer{
		writer:    writer,
		format:    format,
		quiet:     quiet,
		verbose:   verbose,
		startTime: time.Now(),
		result: &Result{
			Status:   "running",
			ExitCode: ExitSuccess,
		},
	}
}

// Subscribe starts listening to events.
func (p *Printer) Subscribe() {
	p.unsubscribe = event.SubscribeAll(p.handleEvent)
}

// Unsubscribe stops listening to events.
func (p *Printer) Unsubscribe() {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
}

// SetSessionID sets the session ID for the printer.
func (p *Printer) SetSessionID(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = sessionID
	p.result.SessionID = sessionID
}

// SetEndpoint records the profile and endpoint URL in the result.
func (p *Printer) SetEndpoint(profile, endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.Profile = profile
	p.result.Endpoint = endpoint
}

// GetResult returns the current result.
func (p *Printer) GetResult() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.result.DurationMS = time.Since(p.startTime).Milliseconds()
	return p.result
}

// SetResult updates the result with final values.
func (p *Printer) SetResult(status string, exitCode ExitCode, response string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.result.Status = status
	p.result.ExitCode = exitCode
	p.result.Response = response
	if err != nil {
		p.result.Error = err.Error()
	}
	p.result.DurationMS = time.Since(p.startTime).Milliseconds()
}

// PrintFinalResult prints the final JSON result (for json format).
func (p *Printer) PrintFinalResult() {
	if p.format != OutputJSON {
		return
	}

	result := p.GetResult()
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(p.writer, string(data))
}

// handleEvent processes incoming events and outputs them according to format.
func (p *Printer) handleEvent(e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.matchesSession(e) {
		return
	}

	switch p.format {
	case OutputText:
		p.handleTextEvent(e)
	case OutputJSON:
		// JSON format only outputs the final result, but we still track events
		p.trackEvent(e)
	case OutputJSONL:
		p.handleJSONLEvent(e)
	}
}

// matchesSession reports whether an event belongs to the printer's session.
// Events without a session identity always pass.
func (p *Printer) matchesSession(e event.Event) bool {
	if p.sessionID == "" {
		return true
	}
	switch data := e.Data.(type) {
	case event.SessionCreatedData:
		return data.Info == nil || data.Info.ID == p.sessionID
	case event.SessionUpdatedData:
		return data.Info == nil || data.Info.ID == p.sessionID
	case event.SessionCompletedData:
		return data.SessionID == p.sessionID
	case event.SessionErrorData:
		return data.SessionID == p.sessionID
	case event.SessionClosedData:
		return data.SessionID == p.sessionID
	default:
		return true
	}
}

// handleTextEvent outputs events in human-readable text format.
func (p *Printer) handleTextEvent(e event.Event) {
	if p.quiet {
		// In quiet mode, only output the response text itself.
		switch data := e.Data.(type) {
		case event.SessionUpdatedData:
			p.printDelta(data.Delta)
		case event.SessionCompletedData:
			p.printRemainder(data.Data)
			fmt.Fprintln(p.writer)
		}
		return
	}

	switch e.Type {
	case event.SessionCreated:
		if data, ok := e.Data.(event.SessionCreatedData); ok && data.Info != nil {
			fmt.Fprintf(p.writer, "[session:%s] Starting...\n", truncateID(data.Info.ID))
		}

	case event.SessionUpdated:
		if data, ok := e.Data.(event.SessionUpdatedData); ok {
			p.printDelta(data.Delta)
		}

	case event.SessionCompleted:
		if data, ok := e.Data.(event.SessionCompletedData); ok {
			p.printRemainder(data.Data)
		}
		duration := time.Since(p.startTime)
		fmt.Fprintf(p.writer, "\n[done] Completed in %s\n", formatDuration(duration))

	case event.SessionError:
		if data, ok := e.Data.(event.SessionErrorData); ok {
			fmt.Fprintf(p.writer, "\n[error] %s\n", data.Error)
		}

	case event.ConfigUpdated:
		if p.verbose {
			if data, ok := e.Data.(event.ConfigUpdatedData); ok {
				fmt.Fprintf(p.writer, "[config] Reloaded: %s\n", data.Path)
			}
		}
	}
}

// printDelta writes one streaming chunk and advances the printed counter.
func (p *Printer) printDelta(delta string) {
	if delta == "" {
		return
	}
	fmt.Fprint(p.writer, delta)
	p.printed += len(delta)
}

// printRemainder writes whatever part of the final response the streaming
// deltas did not already cover. Synchronous endpoints produce no deltas at
// all, so this is where their whole response gets printed.
func (p *Printer) printRemainder(response string) {
	if p.printed < len(response) {
		fmt.Fprint(p.writer, response[p.printed:])
		p.printed = len(response)
	}
}

// handleJSONLEvent outputs events in JSONL format.
func (p *Printer) handleJSONLEvent(e event.Event) {
	p.trackEvent(e)

	// Filter events if not verbose
	if !p.verbose && !isImportantEvent(e.Type) {
		return
	}

	evt := NewEvent(string(e.Type), e.Data)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintln(p.writer, string(data))
}

// trackEvent tracks events for the final result.
func (p *Printer) trackEvent(e event.Event) {
	switch data := e.Data.(type) {
	case event.SessionCompletedData:
		p.result.Response = data.Data
	case event.SessionErrorData:
		p.result.Error = data.Error
	}
}

// Helper functions

func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func isImportantEvent(eventType event.EventType) bool {
	switch eventType {
	case event.SessionCreated,
		event.SessionUpdated,
		event.SessionCompleted,
		event.SessionError,
		event.SessionClosed:
		return true
	default:
		return false
	}
}
