package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/shelfscan/models"
	"golang.org/x/net/html/charset"
)

const (
	// DesktopChromeUA is sent by plain fetches.
	DesktopChromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	acceptLanguage = "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"

	maxBodyBytes = 10 << 20
	maxRedirects = 10
)

// HTTPEngine fetches raw markup with a single GET. The TLS handshake
// mimics Chrome so fingerprinting CDNs treat it like a browser.
type HTTPEngine struct {
	client  *http.Client
	timeout time.Duration
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. Computed once at init time and reused for every
// connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// http.Transport cannot speak h2 over a utls conn.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// HTTPOption configures an HTTPEngine.
type HTTPOption func(*HTTPEngine)

// WithHTTPTimeout bounds the whole request, redirects and body included.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(e *HTTPEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithProxy routes plain fetches through an http(s) proxy.
func WithProxy(proxy string) HTTPOption {
	return func(e *HTTPEngine) {
		u, err := url.Parse(proxy)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		if tr, ok := e.client.Transport.(*http.Transport); ok {
			tr.Proxy = http.ProxyURL(u)
		}
	}
}

// NewHTTPEngine creates an HTTPEngine with a Chrome-like TLS fingerprint
// and a 15s default timeout.
func NewHTTPEngine(opts ...HTTPOption) *HTTPEngine {
	transport := &http.Transport{
		DialTLSContext:    dialChromeTLS,
		ForceAttemptHTTP2: false,
	}
	e := &HTTPEngine{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client.Timeout = e.timeout
	return e
}

func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (e *HTTPEngine) Name() string { return ModePlain }

// Fetch issues one GET. Any transport failure, timeout or non-2xx status
// is a NETWORK_ERROR; there are no retries.
func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNetwork, "invalid request URL", err)
	}

	httpReq.Header.Set("User-Agent", DesktopChromeUA)
	httpReq.Header.Set("Accept", acceptHTML)
	httpReq.Header.Set("Accept-Language", acceptLanguage)
	httpReq.Header.Set("Cache-Control", "no-cache")
	if ref := siteRoot(req.URL); ref != "" {
		httpReq.Header.Set("Referer", ref)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, classifyNetErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewScrapeError(models.ErrCodeNetwork,
			fmt.Sprintf("HTTP %d from %s", resp.StatusCode, resp.Request.URL.Host), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyNetErr(err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !isHTMLContentType(ct) {
		return nil, models.NewScrapeError(models.ErrCodeNetwork,
			fmt.Sprintf("unexpected content type %q", ct), nil)
	}

	return &FetchResult{
		HTML:        decodeBody(body, ct),
		ContentType: ct,
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		Mode:        ModePlain,
		ByteLength:  len(body),
		Elapsed:     time.Since(start),
	}, nil
}

// decodeBody converts the body to UTF-8 using the declared or sniffed
// charset. Undecodable bodies are returned as-is.
func decodeBody(body []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func classifyNetErr(err error) *models.ScrapeError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return models.NewScrapeError(models.ErrCodeNetwork, "request timed out", err)
	}
	return models.NewScrapeError(models.ErrCodeNetwork, "request failed", err)
}

// siteRoot returns scheme://host/ for rawURL, used as the Referer.
func siteRoot(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
