package places

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
)

// Previewer reads the og:image of a restaurant website. It is used as a
// card image when a result has no photo reference.
type Previewer struct {
	http      *http.Client
	userAgent func() string
}

// NewPreviewer creates a Previewer with a per-request timeout.
func NewPreviewer(timeout time.Duration) *Previewer {
	return &Previewer{
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: uarand.GetRandom,
	}
}

// ImageURL returns the absolute https og:image URL of website, or an empty
// string when the page has none. LINE only accepts https image URLs.
func (p *Previewer) ImageURL(ctx context.Context, website string) (string, error) {
	base, err := url.Parse(website)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return "", fmt.Errorf("preview: invalid website %q", website)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return "", fmt.Errorf("preview: create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("preview: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("preview: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("preview: parse html: %w", err)
	}

	content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	if !ok {
		content, ok = doc.Find(`meta[name="twitter:image"]`).First().Attr("content")
	}
	if !ok || strings.TrimSpace(content) == "" {
		return "", nil
	}

	img, err := resp.Request.URL.Parse(strings.TrimSpace(content))
	if err != nil || img.Scheme != "https" {
		return "", nil
	}
	return img.String(), nil
}
