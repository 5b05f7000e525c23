// Package fetcher downloads markup documents over HTTP for ingestion,
// honoring robots.txt.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
)

var (
	ErrDisallowed     = errors.New("disallowed by robots.txt")
	ErrUnsupportedURL = errors.New("only http and https URLs can be fetched")
	ErrTooLarge       = errors.New("response body exceeds size limit")
	ErrUpstreamStatus = errors.New("upstream returned a non-2xx status")
)

// Kind tells which ingestion mode a fetched body needs.
type Kind string

const (
	KindXML  Kind = "xml"
	KindHTML Kind = "html"
)

// Page is a fetched document decoded to UTF-8.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Kind        Kind
	Body        string
}

type Options struct {
	UserAgent     string
	Timeout       time.Duration
	MaxBytes      int64
	RespectRobots bool
}

type Fetcher struct {
	client        *http.Client
	robotsCache   map[string]*robotstxt.RobotsData
	robotsMu      sync.RWMutex
	userAgent     string
	maxBytes      int64
	respectRobots bool
}

func New(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		robotsCache:   make(map[string]*robotstxt.RobotsData),
		userAgent:     opts.UserAgent,
		maxBytes:      opts.MaxBytes,
		respectRobots: opts.RespectRobots,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*Page, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", urlStr, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%q: %w", urlStr, ErrUnsupportedURL)
	}

	if f.respectRobots && !f.IsAllowed(ctx, u) {
		return nil, fmt.Errorf("%s: %w", urlStr, ErrDisallowed)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: status %d: %w", urlStr, resp.StatusCode, ErrUpstreamStatus)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := f.readBody(resp.Body, contentType)
	if err != nil {
		return nil, err
	}

	return &Page{
		URL:         u.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Kind:        DetectKind(contentType, body),
		Body:        body,
	}, nil
}

func (f *Fetcher) readBody(r io.Reader, contentType string) (string, error) {
	if f.maxBytes > 0 {
		r = io.LimitReader(r, f.maxBytes+1)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(raw)) > f.maxBytes {
		return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.maxBytes)
	}

	decoded, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw), nil
	}
	text, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	return string(text), nil
}

// DetectKind picks XML for XML media types (except XHTML, which is served
// to the lenient HTML path) and sniffs the body when the type says nothing.
func DetectKind(contentType, body string) Kind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch {
		case mediaType == "text/html" || mediaType == "application/xhtml+xml":
			return KindHTML
		case mediaType == "text/xml" || mediaType == "application/xml" || strings.HasSuffix(mediaType, "+xml"):
			return KindXML
		}
	}

	head := strings.TrimSpace(body)
	if strings.HasPrefix(head, "<?xml") && !strings.Contains(strings.ToLower(firstN(head, 512)), "<!doctype html") {
		return KindXML
	}
	return KindHTML
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (f *Fetcher) IsAllowed(ctx context.Context, u *url.URL) bool {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	f.robotsMu.RLock()
	robots, exists := f.robotsCache[robotsURL]
	f.robotsMu.RUnlock()

	if !exists {
		robots = f.fetchRobotsTxt(ctx, robotsURL)
		f.robotsMu.Lock()
		f.robotsCache[robotsURL] = robots
		f.robotsMu.Unlock()
	}

	if robots == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	group := robots.FindGroup(f.userAgent)
	return group.Test(path)
}

func (f *Fetcher) fetchRobotsTxt(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", robotsURL, nil)
	if err != nil {
		return nil
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return robots
}
