package placeholder

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
)

var (
	legacyScriptPattern = regexp.MustCompile(`(?s)\{\{applescript:(.*?)\}\}`)
	scriptPattern       = regexp.MustCompile(`(?s)\{\{as:(.*?)\}\}`)
)

// scriptHandler runs automation scripts through osascript and substitutes
// their output. Anywhere osascript is unavailable the placeholder degrades.
type scriptHandler struct {
	opts Options
}

func (h *scriptHandler) Name() string            { return "as" }
func (h *scriptHandler) Pattern() *regexp.Regexp { return scriptPattern }

func (h *scriptHandler) Resolve(ctx context.Context, arg string) (string, error) {
	if !h.opts.AllowAutomation {
		return "", ErrDisabled
	}
	script := strings.TrimSpace(arg)
	if script == "" {
		return "", nil
	}
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("automation scripts require macOS")
	}

	cmdCtx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "osascript", "-e", script)
	if h.opts.WorkDir != "" {
		cmd.Dir = h.opts.WorkDir
	}
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("osascript failed: %w", err)
	}
	return strings.TrimRight(string(output), "\n"), nil
}

// legacyScriptHandler recognizes the older verbose script form, kept so
// prompts written against it keep resolving. Execution is shared with
// scriptHandler.
type legacyScriptHandler struct {
	scriptHandler
}

func (h *legacyScriptHandler) Name() string            { return "applescript" }
func (h *legacyScriptHandler) Pattern() *regexp.Regexp { return legacyScriptPattern }
