// ABOUTME: HTTP fetcher with support for conditional requests using ETag and Last-Modified headers.
// ABOUTME: Transcodes legacy charsets to UTF-8 and reports failures as FetchError with SSRF and size limits.

package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const MaxResponseSize = 10 * 1024 * 1024 // 10MB

const (
	DefaultUserAgent = "feedwatch/1.0 (feed announcer)"
	DefaultTimeout   = 30 * time.Second
)

var xmlEncodingPattern = regexp.MustCompile(`^\s*<\?xml[^>]*encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// Result contains the response from an HTTP fetch operation.
type Result struct {
	Body         []byte // UTF-8 encoded
	ETag         string
	LastModified string
	NotModified  bool
}

// FetchError is returned for every failed fetch. StatusCode is set when the
// server answered with an unexpected status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures a Fetcher. Zero values select the defaults.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	AllowPrivate bool // permit hosts resolving to private address ranges
}

// Fetcher downloads feed documents.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	allowPrivate bool
}

// New creates a Fetcher with its own HTTP client.
func New(opts Options) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Fetcher{
		client:       &http.Client{Timeout: opts.Timeout},
		userAgent:    opts.UserAgent,
		allowPrivate: opts.AllowPrivate,
	}
}

// isPrivateIP checks if an IP address is in a private range (excluding loopback for tests).
func isPrivateIP(ip net.IP) bool {
	// Allow loopback addresses (localhost) for tests
	if ip.IsLoopback() {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

// Fetch retrieves a URL with optional conditional request headers.
// If etag is provided, sets If-None-Match header.
// If lastModified is provided, sets If-Modified-Since header.
// Returns NotModified=true for 304 responses.
// Every failure, including non-200/304 status codes, is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string, etag, lastModified *string) (*Result, error) {
	fail := func(status int, err error) (*Result, error) {
		return nil, &FetchError{URL: urlStr, StatusCode: status, Err: err}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fail(0, fmt.Errorf("invalid URL: %w", err))
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fail(0, fmt.Errorf("unsupported scheme %q", parsedURL.Scheme))
	}

	// SSRF protection: block private IP ranges
	if !f.allowPrivate {
		if ips, err := net.LookupIP(parsedURL.Hostname()); err == nil {
			for _, ip := range ips {
				if isPrivateIP(ip) {
					return fail(0, errors.New("access to private IP ranges is not allowed"))
				}
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fail(0, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/rdf+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8")

	if etag != nil && *etag != "" {
		req.Header.Set("If-None-Match", *etag)
	}

	if lastModified != nil && *lastModified != "" {
		req.Header.Set("If-Modified-Since", *lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &Result{NotModified: true}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return fail(resp.StatusCode, fmt.Errorf("status %s", resp.Status))
	}

	// Read response body with DoS protection (10MB limit)
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fail(0, fmt.Errorf("read response body: %w", err))
	}
	if int64(len(body)) > MaxResponseSize {
		return fail(0, fmt.Errorf("response too large (exceeds %d bytes)", MaxResponseSize))
	}

	body, err = toUTF8(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return fail(0, err)
	}

	return &Result{
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// toUTF8 transcodes body using the charset from the Content-Type header or,
// failing that, the XML declaration. Unknown labels leave the body as-is.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	if label == "" {
		if m := xmlEncodingPattern.FindSubmatch(body); m != nil {
			label = string(m[1])
		}
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return body, nil
	}

	r, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		return body, nil
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", label, err)
	}
	return out, nil
}
