// Package webpage downloads a page and reduces it to plain text for indexing.
package webpage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; regindex/1.0)"
	maxPageBytes     = 10 << 20
)

// ErrFetch signals a non-2xx answer from the remote server.
var ErrFetch = errors.New("fetch page")

// Fetcher retrieves web pages.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New creates a fetcher. A nil client gets a 30s timeout client.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{client: client, userAgent: defaultUserAgent}
}

// Text downloads url and returns its visible text.
func (f *Fetcher) Text(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s: %s", ErrFetch, url, resp.Status)
	}
	return ExtractText(io.LimitReader(resp.Body, maxPageBytes))
}

// ExtractText returns the text nodes of an HTML document, skipping script, style and noscript
// content. Entities are decoded and whitespace runs collapse to one space.
func ExtractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("parse html: %w", err)
			}
			return strings.Join(strings.Fields(b.String()), " "), nil
		case html.StartTagToken:
			if hidden(z) {
				skip++
			}
		case html.EndTagToken:
			if hidden(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken, html.CommentToken, html.DoctypeToken:
		}
	}
}

func hidden(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}
