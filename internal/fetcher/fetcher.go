package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/knowledge-engine/bookmarks/internal/config"
)

var (
	// ErrNotHTML is returned when the response is not an HTML document
	ErrNotHTML = errors.New("response is not html")
	// ErrUnsupportedScheme is returned for anything other than http(s)
	ErrUnsupportedScheme = errors.New("only HTTP/HTTPS URLs are supported")
)

// StatusError reports a non-200 response
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-200 status code %d for %s", e.Code, e.URL)
}

// Page contains the text extracted from a webpage
type Page struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"` // Clean main-content text
}

// IsEmpty reports whether nothing was extracted
func (p Page) IsEmpty() bool {
	return p.Title == "" && p.Description == "" && p.Content == ""
}

type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

func NewFetcher(cfg config.FetcherConfig) *Fetcher {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "Bookmark-Enricher/1.0"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:    userAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch downloads a webpage and extracts its title, description and main content
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, ErrUnsupportedScheme
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, contentType)
	}

	var body io.Reader = resp.Body
	if f.maxBodyBytes > 0 {
		body = io.LimitReader(body, f.maxBodyBytes)
	}
	body, err = charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("charset error: %w", err)
	}

	page, err := parseHTML(body)
	if err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}
	return page, nil
}

// IsTransient reports whether a Fetch error is worth retrying
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrNotHTML) || errors.Is(err, ErrUnsupportedScheme) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsRawIPHost reports whether the URL's host is a literal IPv4 address.
// Such bookmarks usually point at local or internal services and are never fetched.
func IsRawIPHost(rawURL string) bool {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if strings.Contains(host, ":") {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

func parseHTML(body io.Reader) (*Page, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, err
	}
	return &Page{
		Title:       findTitle(doc),
		Description: findDescription(doc),
		Content:     findContent(doc),
	}, nil
}
