package source

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ErrAuthUnavailable means the landing page response carried no crumb token.
var ErrAuthUnavailable = errors.New("no crumb token in landing page response")

// Credentials carry the session cookie and crumb token the download
// endpoints require.
type Credentials struct {
	Cookie string
	Crumb  string
}

// CredentialProvider hands out session credentials for the quote source.
// A credential pair stays valid until a caller invalidates it.
type CredentialProvider interface {
	Acquire() (Credentials, error)
	Invalidate()
}

var crumbPattern = regexp.MustCompile(`"CrumbStore":\{"crumb":"(.*?)"\},"QuotePageStore"`)

// LandingProvider extracts a cookie and crumb token from the unauthenticated
// landing page and caches the pair in memory. The mutex collapses concurrent
// re-acquisitions into one request.
type LandingProvider struct {
	URL    string
	Client *http.Client

	mu     sync.Mutex
	cached *Credentials
}

// NewLandingProvider creates a provider with optional proxy support.
func NewLandingProvider(landingURL, proxyURL string) *LandingProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &LandingProvider{
		URL: landingURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// Acquire returns the cached credential pair, fetching a fresh one from the
// landing page when the cache is empty.
func (p *LandingProvider) Acquire() (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}

	req, err := http.NewRequest(http.MethodGet, p.URL, nil)
	if err != nil {
		return Credentials{}, fmt.Errorf("landing request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("landing page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credentials{}, fmt.Errorf("landing read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("landing page: status %d", resp.StatusCode)
	}

	m := crumbPattern.FindSubmatch(body)
	if m == nil {
		return Credentials{}, ErrAuthUnavailable
	}

	var cookies []string
	for _, c := range resp.Cookies() {
		cookies = append(cookies, c.Name+"="+c.Value)
	}

	creds := Credentials{
		Cookie: strings.Join(cookies, "; "),
		Crumb:  string(m[1]),
	}
	p.cached = &creds
	return creds, nil
}

// Invalidate drops the cached pair so the next Acquire fetches a fresh one.
func (p *LandingProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}
