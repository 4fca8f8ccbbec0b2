package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultRelayURL is the public CORS relay the tool has always used.
const DefaultRelayURL = "https://cors-anywhere.herokuapp.com/"

const maxPageBytes = 8 << 20

// Relay fetches a remote document on behalf of the caller.
type Relay interface {
	Fetch(ctx context.Context, target string) (io.ReadCloser, error)
}

// PrefixRelay requests Base+target. An empty Base fetches target directly.
type PrefixRelay struct {
	Base       string
	UserAgent  string
	HTTPClient *http.Client
}

// NewPrefixRelay builds a relay; a zero timeout means none.
func NewPrefixRelay(base, userAgent string, timeout time.Duration) *PrefixRelay {
	return &PrefixRelay{
		Base:       base,
		UserAgent:  userAgent,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (r *PrefixRelay) Fetch(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.Base+target, nil)
	if err != nil {
		return nil, err
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	// cors-anywhere refuses requests without one of these.
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("Failed to fetch data from the website (status %d)", resp.StatusCode)
	}
	return resp.Body, nil
}

// WebsiteText fetches target through relay and returns the visible body text.
func WebsiteText(ctx context.Context, relay Relay, target string) (string, error) {
	body, err := relay.Fetch(ctx, target)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return HTMLText(io.LimitReader(body, maxPageBytes))
}

// HTMLText renders an HTML document's body as plain text.
// Library used: github.com/PuerkitoBio/goquery.
func HTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	body := doc.Find("body")
	body.Find("script, style, noscript, template, svg").Remove()

	var lines []string
	body.Find("h1, h2, h3, h4, h5, h6, p, li, td, th, blockquote, pre, dt, dd, figcaption").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p, li, td, th, blockquote, pre, dd").Length() > 0 {
			return
		}
		if text := cleanText(s.Text()); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) == 0 {
		return cleanText(body.Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\f\v]+`)
	newlineRun = regexp.MustCompile(`\n+`)
)

// cleanText collapses whitespace runs and drops blank lines.
func cleanText(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = newlineRun.ReplaceAllString(text, "\n")
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
