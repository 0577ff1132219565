package placeholder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
)

var urlPattern = regexp.MustCompile(`\{\{url:(.*?)\}\}`)

const maxFetchSize = 5 * 1024 * 1024 // 5MB

// urlHandler fetches a URL and substitutes its readable content. HTML is
// converted to markdown (plain text extraction as fallback); anything else is
// substituted as-is.
type urlHandler struct {
	opts   Options
	client *http.Client
}

func newURLHandler(opts Options) *urlHandler {
	return &urlHandler{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

func (h *urlHandler) Name() string            { return "url" }
func (h *urlHandler) Pattern() *regexp.Regexp { return urlPattern }

func (h *urlHandler) Resolve(ctx context.Context, arg string) (string, error) {
	address := strings.TrimSpace(arg)
	if address == "" {
		return "", nil
	}
	if !strings.Contains(address, "://") {
		address = "https://" + address
	}

	fetchCtx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	var body, contentType string
	operation := func() error {
		req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, address, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "text/markdown;q=1.0, text/plain;q=0.9, text/html;q=0.8, */*;q=0.1")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := h.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("request failed with status code: %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("request failed with status code: %d", resp.StatusCode))
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
		if err != nil {
			return err
		}
		body = string(data)
		contentType = resp.Header.Get("Content-Type")
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, 2), fetchCtx)); err != nil {
		return "", err
	}

	if strings.Contains(contentType, "text/html") {
		if markdown, err := htmlToMarkdown(body); err == nil {
			return markdown, nil
		}
		return htmlToText(body)
	}
	return body, nil
}

// htmlToMarkdown converts HTML content to markdown.
func htmlToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")
	return converter.ConvertString(html)
}

// htmlToText extracts plain text from HTML, dropping non-content elements.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, object, embed").Remove()
	return strings.TrimSpace(doc.Text()), nil
}
