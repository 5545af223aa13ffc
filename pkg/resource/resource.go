// Package resource builds previews of external study material. Given the URL
// from an external-resource task it fetches the page and extracts a readable
// title and excerpt, so the app can show what a link is about before the
// learner leaves for it.
package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// maxBodySize caps how much HTML we read from an untrusted URL.
const maxBodySize = 10 * 1024 * 1024

// Preview is the extracted summary of an external page.
type Preview struct {
	URL      string
	Title    string
	Byline   string
	SiteName string
	Excerpt  string
	Text     string
}

// Fetcher downloads and summarizes external pages.
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a Fetcher with a 30 second request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{HTTPClient: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch downloads rawURL and extracts its readable content. The request
// carries browser headers because learning resources are frequently behind
// bot walls that 403 a bare Go client.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}
	if int64(len(body)) >= int64(maxBodySize) {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", rawURL, maxBodySize)
	}

	return FromHTML(body, rawURL)
}

// FromHTML extracts a preview from already-downloaded HTML. Split out from
// Fetch so tests and cached pages never touch the network.
func FromHTML(body []byte, rawURL string) (*Preview, error) {
	body = SanitizeRuby(body)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", rawURL, err)
	}

	return &Preview{
		URL:      rawURL,
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Excerpt:  excerpt(article.TextContent, 200),
		Text:     article.TextContent,
	}, nil
}

// excerpt trims text to at most n runes, cutting at a space where one is
// close enough.
func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

var (
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby strips ruby annotations (<rt>, <rp>) from HTML. Readability
// keeps their text content, which duplicates every furigana-annotated word
// in the extracted text (e.g. "漢字" becomes "漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	return reRP.ReplaceAll(cleaned, []byte{})
}
