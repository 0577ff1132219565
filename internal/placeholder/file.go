package placeholder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
)

var filePattern = regexp.MustCompile(`\{\{file:(.*?)\}\}`)

const maxFileMatches = 20

// fileHandler substitutes the contents of referenced files. The argument is
// a literal path or a glob pattern; every matched file is included behind a
// filename header.
type fileHandler struct {
	opts Options
}

func newFileHandler(opts Options) *fileHandler {
	return &fileHandler{opts: opts}
}

func (h *fileHandler) Name() string            { return "file" }
func (h *fileHandler) Pattern() *regexp.Regexp { return filePattern }

func (h *fileHandler) Resolve(ctx context.Context, arg string) (string, error) {
	pattern := strings.TrimSpace(arg)
	if pattern == "" {
		return "", nil
	}
	if !filepath.IsAbs(pattern) && h.opts.WorkDir != "" {
		pattern = filepath.Join(h.opts.WorkDir, pattern)
	}

	matches, err := h.expand(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no files matched %q", arg)
	}
	if len(matches) > maxFileMatches {
		matches = matches[:maxFileMatches]
	}

	var b strings.Builder
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Warn().Str("file", path).Err(err).Msg("skipping unreadable file placeholder match")
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s:\n%s", filepath.Base(path), strings.TrimRight(string(data), "\n"))
	}
	return b.String(), nil
}

// expand resolves pattern to file paths, using doublestar for glob syntax
// and a plain stat for literal paths.
func (h *fileHandler) expand(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", pattern)
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad file pattern: %w", err)
	}
	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	return files, nil
}
