// Package fetch retrieves job posting pages over HTTP and reduces them to
// clean text, falling back to headless browser rendering for pages that only
// produce content client-side.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ExperienceMatcher/1.0)"

// Result holds the raw and processed content of a fetched job posting.
type Result struct {
	URL         string
	Domain      string
	Title       string
	HTML        string
	Text        string
	ContentType string
	StatusCode  int
	Rendered    bool // true when a headless browser produced the HTML
}

// Error represents a failure while fetching or processing a URL.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures fetch behavior.
type Options struct {
	Timeout        time.Duration
	UserAgent      string
	Headers        map[string]string
	DisableBrowser bool
	BrowserTimeout time.Duration
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:        DefaultTimeout,
		UserAgent:      DefaultUserAgent,
		BrowserTimeout: DefaultBrowserTimeout,
	}
}

// Fetcher retrieves and processes job posting pages.
type Fetcher struct {
	opts   *Options
	logger *zap.Logger
}

// New creates a Fetcher. A nil options value uses DefaultOptions.
func New(opts *Options, logger *zap.Logger) *Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.BrowserTimeout == 0 {
		opts.BrowserTimeout = DefaultBrowserTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{opts: opts, logger: logger}
}

// JobPosting fetches a job posting URL and extracts its main text using
// selectors matched to the hosting platform. When plain HTTP yields too
// little text the page is re-rendered in a headless browser.
func (f *Fetcher) JobPosting(ctx context.Context, urlStr string) (*Result, error) {
	platform := DetectPlatform(urlStr)

	result, err := URL(ctx, urlStr, f.opts)
	if err != nil {
		return nil, err
	}

	f.extractInto(result, platform)

	if ShouldUseBrowser(result.Text) && !f.opts.DisableBrowser {
		f.logger.Info("thin content, re-rendering in headless browser",
			zap.String("url", urlStr),
			zap.Int("text_length", len(result.Text)))
		html, browserErr := RenderHTML(ctx, urlStr, f.opts.BrowserTimeout)
		if browserErr != nil {
			f.logger.Warn("browser rendering failed, keeping HTTP content",
				zap.String("url", urlStr),
				zap.Error(browserErr))
		} else {
			result.HTML = html
			result.Rendered = true
			f.extractInto(result, platform)
		}
	}

	if strings.TrimSpace(result.Text) == "" {
		return result, &Error{URL: urlStr, Message: "no extractable text content"}
	}
	return result, nil
}

func (f *Fetcher) extractInto(result *Result, platform Platform) {
	text, err := ExtractMainText(result.HTML,
		PlatformContentSelectors(platform),
		PlatformNoiseSelectors(platform)...)
	if err != nil {
		f.logger.Warn("text extraction failed", zap.String("url", result.URL), zap.Error(err))
		return
	}
	result.Text = text
	result.Title = ExtractTitle(result.HTML)
}

// URL retrieves raw HTML from a URL.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	client := &http.Client{Timeout: opts.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("User-Agent", opts.UserAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	result := &Result{
		URL:         urlStr,
		Domain:      parsedURL.Host,
		HTML:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}
	return result, nil
}

// ExtractMainText parses HTML and returns the main body text. Noise elements
// are removed first, then the first matching content selector wins, with the
// body element as fallback.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup").Remove()

	if len(noiseSelectors) > 0 {
		noiseSelector := strings.Join(noiseSelectors, ", ")
		if noiseSelector != "" {
			doc.Find(noiseSelector).Remove()
		}
	}

	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}
	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	return cleanWhitespace(mainContent.Text()), nil
}

// ExtractTitle returns the page title, preferring og:title over <title>.
func ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// cleanWhitespace drops blank lines and trims each remaining line.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
