// Package httpclient owns the process-wide outbound HTTP connection pool.
package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hrygo/slackqa/internal/version"
)

const (
	ConnectTimeout = 5 * time.Second
	ReadTimeout    = 20 * time.Second
	PoolTimeout    = 5 * time.Second
	// DefaultRetries is the number of extra attempts made when a connection
	// cannot be established.
	DefaultRetries = 3
)

var (
	sharedMu     sync.Mutex
	sharedClient *http.Client
)

// Shared returns the process-wide client, creating it on first use.
func Shared() *http.Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedClient == nil {
		sharedClient = New(DefaultRetries)
	}
	return sharedClient
}

// Close releases idle pooled connections. A later Shared call builds a new client.
func Close() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedClient != nil {
		sharedClient.CloseIdleConnections()
		sharedClient = nil
	}
}

// New builds a client with the fixed outbound timeouts and connect retries.
func New(retries int) *http.Client {
	dialer := &net.Dialer{
		Timeout:   ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   ConnectTimeout,
		ResponseHeaderTimeout: ReadTimeout,
		ExpectContinueTimeout: time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: &retryTransport{next: transport, retries: retries},
		Timeout:   ConnectTimeout + ReadTimeout + PoolTimeout,
	}
}

// retryTransport replays a request when the TCP/TLS connection could not be
// established. HTTP responses of any status are returned as-is.
type retryTransport struct {
	next    http.RoundTripper
	retries int
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", version.UserAgent())
	}

	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		attemptReq := req
		if attempt > 0 {
			if req.Body != nil && req.Body != http.NoBody {
				if req.GetBody == nil {
					return nil, lastErr
				}
				body, err := req.GetBody()
				if err != nil {
					return nil, lastErr
				}
				attemptReq = req.Clone(req.Context())
				attemptReq.Body = body
			}
			slog.Debug("retrying outbound request",
				"host", req.URL.Host,
				"attempt", attempt,
				"error", lastErr,
			)
		}

		resp, err := t.next.RoundTrip(attemptReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isConnectError(err) || req.Context().Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// isConnectError reports whether err happened before any byte of the request
// reached the server.
func isConnectError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// DrainAndClose discards the rest of body so the connection can be reused.
func DrainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
