package wait

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/isitobservable/netwait/pkg/target"
	"github.com/isitobservable/netwait/pkg/types"
)

// Checker makes one connection attempt against a target. An attempt either
// succeeds completely or fails with a classified error; it never blocks past
// the given timeout.
type Checker interface {
	Check(ctx context.Context, t target.Target, timeout time.Duration) error
}

// maxDrainBytes bounds how much of an HTTP response body is read before
// the connection is released for reuse.
const maxDrainBytes = 64 * 1024

// DialChecker is the production Checker: real DNS resolution, TCP dials,
// and HTTP GET requests. Safe for concurrent use.
type DialChecker struct {
	resolver *net.Resolver
	dialer   *net.Dialer
	client   *http.Client
}

// NewDialChecker builds a checker using the default resolver and an HTTP
// client with OTel-instrumented transport. Redirects are followed; only the
// final status code is compared.
func NewDialChecker() *DialChecker {
	return &DialChecker{
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{},
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Check performs one attempt. TCP targets are resolved first, then each
// address is dialed until one accepts. HTTP targets get a single GET with
// the configured headers and an exact status comparison.
func (c *DialChecker) Check(ctx context.Context, t target.Target, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch t.Kind() {
	case target.KindHTTP:
		return c.checkHTTP(ctx, t, timeout)
	default:
		return c.checkTCP(ctx, t, timeout)
	}
}

func (c *DialChecker) checkTCP(ctx context.Context, t target.Target, timeout time.Duration) error {
	addrs, err := c.resolver.LookupHost(ctx, t.Host())
	if err != nil {
		if isTimeout(ctx, err) {
			return timeoutError(t, timeout)
		}
		return types.WrapError(types.ErrCodeDNSFailure, t.String(), err, "failed to resolve hostname %q", t.Host())
	}
	if len(addrs) == 0 {
		return types.NewTargetError(types.ErrCodeDNSFailure, t.String(), "no addresses found for hostname %q", t.Host())
	}

	port := strconv.Itoa(t.Port())
	var lastErr error
	for _, addr := range addrs {
		conn, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, port))
		if err == nil {
			conn.Close()
			return nil
		}
		if isTimeout(ctx, err) {
			return timeoutError(t, timeout)
		}
		lastErr = err
	}
	return types.WrapError(types.ErrCodeConnectionFailed, t.String(), lastErr, "connection refused")
}

func (c *DialChecker) checkHTTP(ctx context.Context, t target.Target, timeout time.Duration) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL().String(), nil)
	if err != nil {
		return types.WrapError(types.ErrCodeHTTPRequestFailed, t.String(), err, "building request")
	}
	for _, h := range t.Headers() {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return timeoutError(t, timeout)
		}
		return types.WrapError(types.ErrCodeHTTPRequestFailed, t.String(), err, "HTTP request failed")
	}
	// Drain so the keep-alive connection can be reused by the next attempt.
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	resp.Body.Close()

	if resp.StatusCode != t.ExpectedStatus() {
		return types.NewTargetError(types.ErrCodeUnexpectedStatus, t.String(),
			"unexpected HTTP status: expected %d, got %d", t.ExpectedStatus(), resp.StatusCode)
	}
	return nil
}

func timeoutError(t target.Target, timeout time.Duration) error {
	return types.NewTargetError(types.ErrCodeConnectionTimeout, t.String(),
		"connection timeout after %s", timeout)
}

// isTimeout reports whether err was caused by the per-attempt deadline
// rather than the endpoint itself.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ Checker = (*DialChecker)(nil)

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, t target.Target, timeout time.Duration) error

func (f CheckerFunc) Check(ctx context.Context, t target.Target, timeout time.Duration) error {
	return f(ctx, t, timeout)
}
