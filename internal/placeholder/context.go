package placeholder

import (
	"context"
	"strings"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
)

// Func produces the replacement value for one keyed substitution. It is
// invoked at most once per resolution pass, and only when its key occurs in
// the prompt.
type Func func(ctx context.Context) (string, error)

// Context carries the keyed substitutions for one resolution pass. Keys keep
// their insertion order; binding an existing key again replaces its resolver
// without moving it.
type Context struct {
	keys []string
	fns  map[string]Func
}

// NewContext returns an empty substitution context.
func NewContext() *Context {
	return &Context{fns: make(map[string]Func)}
}

// Bind registers fn as the resolver for key.
func (c *Context) Bind(key string, fn Func) {
	if _, ok := c.fns[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.fns[key] = fn
}

// BindValue registers a fixed replacement value for key.
func (c *Context) BindValue(key, value string) {
	c.Bind(key, func(context.Context) (string, error) {
		return value, nil
	})
}

// Keys returns the bound keys in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of bound keys.
func (c *Context) Len() int {
	return len(c.keys)
}

// segment is a run of prompt text. replaced marks text produced by an
// earlier key's value so that later keys do not re-scan it.
type segment struct {
	text     string
	replaced bool
}

// resolveKeyed replaces every literal occurrence of each bound key, in key
// insertion order. A key's resolver runs at most once; its value is inserted
// verbatim and never re-scanned by the keys that follow, so a value that
// happens to contain another key's text does not expand recursively. A
// failing resolver degrades to the empty string.
func resolveKeyed(ctx context.Context, prompt string, sc *Context) string {
	if sc == nil || sc.Len() == 0 {
		return prompt
	}

	segments := []segment{{text: prompt}}
	for _, key := range sc.keys {
		if key == "" {
			continue
		}
		present := false
		for _, seg := range segments {
			if !seg.replaced && strings.Contains(seg.text, key) {
				present = true
				break
			}
		}
		if !present {
			continue
		}

		value, err := sc.fns[key](ctx)
		if err != nil {
			logging.Warn().Str("key", key).Err(err).Msg("keyed substitution failed")
			value = ""
		}

		var next []segment
		for _, seg := range segments {
			if seg.replaced || !strings.Contains(seg.text, key) {
				next = append(next, seg)
				continue
			}
			parts := strings.Split(seg.text, key)
			for i, part := range parts {
				if part != "" {
					next = append(next, segment{text: part})
				}
				if i < len(parts)-1 {
					next = append(next, segment{text: value, replaced: true})
				}
			}
		}
		segments = next
	}

	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.text)
	}
	return b.String()
}
