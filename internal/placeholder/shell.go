package placeholder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

var shellPattern = regexp.MustCompile(`(?s)\{\{shell:(.*?)\}\}`)

// shellHandler executes a shell command and substitutes its stdout. Commands
// run through the embedded interpreter rather than the user's login shell so
// behavior does not depend on what is installed as /bin/sh.
type shellHandler struct {
	opts Options
}

func newShellHandler(opts Options) *shellHandler {
	return &shellHandler{opts: opts}
}

func (h *shellHandler) Name() string            { return "shell" }
func (h *shellHandler) Pattern() *regexp.Regexp { return shellPattern }

func (h *shellHandler) Resolve(ctx context.Context, arg string) (string, error) {
	if !h.opts.AllowShell {
		return "", ErrDisabled
	}
	command := strings.TrimSpace(arg)
	if command == "" {
		return "", nil
	}

	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	prog, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return "", fmt.Errorf("failed to parse command: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.StdIO(strings.NewReader(""), &stdout, &stderr),
		interp.Dir(h.opts.WorkDir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create runner: %w", err)
	}

	if err := runner.Run(runCtx, prog); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return "", fmt.Errorf("command exited with status %d: %s", status, strings.TrimSpace(stderr.String()))
		}
		return "", err
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}
