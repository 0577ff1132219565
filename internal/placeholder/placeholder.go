// Package placeholder rewrites prompt templates by substituting dynamic
// content before a prompt is sent: keyed context values, automation-script
// output, shell output, fetched URL content and file contents.
package placeholder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// ErrDisabled is returned by handlers whose pass is switched off by policy.
var ErrDisabled = errors.New("placeholder kind disabled")

// Handler resolves one structured placeholder syntax. Handlers run in
// registration order; each pass scans the text produced by the previous one
// and leaves text without its own syntax untouched.
type Handler interface {
	// Name identifies the handler in logs and disabled markers.
	Name() string
	// Pattern matches this handler's placeholder tokens. The first
	// capture group carries the handler argument (script, command, URL,
	// file reference).
	Pattern() *regexp.Regexp
	// Resolve produces the replacement text for one matched argument.
	Resolve(ctx context.Context, arg string) (string, error)
}

// Options bound the external actions placeholders may take.
type Options struct {
	// AllowShell permits the shell pass.
	AllowShell bool
	// AllowAutomation permits the automation-script passes.
	AllowAutomation bool
	// Timeout bounds one placeholder's subprocess or fetch.
	Timeout time.Duration
	// MaxOutputBytes caps the text substituted for one placeholder.
	MaxOutputBytes int
	// WorkDir is where subprocesses run and relative file references
	// resolve. Empty means the current directory.
	WorkDir string
}

// DefaultOptions returns the options used when no configuration is present.
func DefaultOptions() Options {
	return Options{
		AllowShell:      true,
		AllowAutomation: true,
		Timeout:         30 * time.Second,
		MaxOutputBytes:  10000,
	}
}

// OptionsFromConfig merges the app-level placeholder configuration over the
// defaults, tolerating a nil section.
func OptionsFromConfig(cfg *types.PlaceholderConfig) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	if cfg.AllowShell != nil {
		opts.AllowShell = *cfg.AllowShell
	}
	if cfg.AllowAutomation != nil {
		opts.AllowAutomation = *cfg.AllowAutomation
	}
	if cfg.Timeout > 0 {
		opts.Timeout = time.Duration(cfg.Timeout) * time.Second
	}
	if cfg.MaxOutputBytes > 0 {
		opts.MaxOutputBytes = cfg.MaxOutputBytes
	}
	return opts
}

// Resolver applies keyed substitutions followed by the ordered structured
// passes. Resolution is best-effort: a failing placeholder degrades to empty
// text (or a disabled marker) and the remaining passes still run.
type Resolver struct {
	handlers []Handler
	opts     Options
}

// NewResolver creates a resolver with the standard pass order: legacy
// automation scripts, automation scripts, shell commands, URL fetches, file
// references.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{opts: opts}
	r.Register(&legacyScriptHandler{scriptHandler{opts: opts}})
	r.Register(&scriptHandler{opts: opts})
	r.Register(newShellHandler(opts))
	r.Register(newURLHandler(opts))
	r.Register(newFileHandler(opts))
	return r
}

// Register appends a handler to the pass order. New placeholder kinds are
// added here, not by branching inside the resolver.
func (r *Resolver) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Resolve substitutes every recognized placeholder in prompt. Text containing
// no placeholder syntax is returned unchanged. Resolve never fails; the
// result is always a complete prompt, possibly with degraded substitutions.
func (r *Resolver) Resolve(ctx context.Context, prompt string, sc *Context) string {
	out := resolveKeyed(ctx, prompt, sc)
	for _, h := range r.handlers {
		out = r.applyHandler(ctx, h, out)
	}
	return out
}

func (r *Resolver) applyHandler(ctx context.Context, h Handler, text string) string {
	pattern := h.Pattern()
	if !pattern.MatchString(text) {
		return text
	}
	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		arg := ""
		if groups := pattern.FindStringSubmatch(match); len(groups) > 1 {
			arg = groups[1]
		}
		replacement, err := h.Resolve(ctx, arg)
		if err != nil {
			if errors.Is(err, ErrDisabled) {
				return fmt.Sprintf("[%s placeholders disabled]", h.Name())
			}
			logging.Warn().Str("placeholder", h.Name()).Err(err).Msg("placeholder resolution failed")
			return ""
		}
		return clip(replacement, r.opts.MaxOutputBytes)
	})
}

// clip caps s at max bytes, marking the cut.
func clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "\n\n(Output truncated)"
}
