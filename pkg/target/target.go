// Package target defines validated probe targets: raw TCP endpoints and
// HTTP(S) endpoints with an expected status code. A Target is validated
// once at construction and immutable afterwards; the probing engine never
// re-checks it.
package target

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/isitobservable/netwait/pkg/types"
)

// Kind identifies the protocol of a target.
type Kind string

const (
	KindTCP  Kind = "tcp"
	KindHTTP Kind = "http"
)

const (
	maxHostnameLen = 253
	maxLabelLen    = 63
	minHTTPStatus  = 100
	maxHTTPStatus  = 599
)

// Header is one HTTP request header sent with every probe attempt.
// Order is preserved.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Target describes one endpoint to probe. Construct via TCP, HTTP,
// HTTPWithHeaders, or Parse; the zero value is not a valid target.
type Target struct {
	kind           Kind
	host           string
	port           int
	url            *url.URL
	expectedStatus int
	headers        []Header
}

// TCP builds a TCP target from a hostname (or IP literal) and port.
func TCP(host string, port int) (Target, error) {
	if err := ValidateHostname(host); err != nil {
		return Target{}, err
	}
	if port < 1 || port > 65535 {
		return Target{}, types.NewError(types.ErrCodeInvalidPort, "invalid port %d (must be 1-65535)", port)
	}
	return Target{kind: KindTCP, host: host, port: port}, nil
}

// HTTP builds an HTTP(S) target expecting the given status code.
func HTTP(rawURL string, expectedStatus int) (Target, error) {
	return HTTPWithHeaders(rawURL, expectedStatus, nil)
}

// HTTPWithHeaders builds an HTTP(S) target with custom request headers.
func HTTPWithHeaders(rawURL string, expectedStatus int, headers []Header) (Target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, types.WrapError(types.ErrCodeInvalidTarget, rawURL, err, "invalid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, types.NewTargetError(types.ErrCodeInvalidTarget, rawURL, "unsupported URL scheme %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return Target{}, types.NewTargetError(types.ErrCodeInvalidTarget, rawURL, "URL has no host")
	}
	if expectedStatus < minHTTPStatus || expectedStatus > maxHTTPStatus {
		return Target{}, types.NewError(types.ErrCodeInvalidStatus, "invalid HTTP status code %d (must be %d-%d)", expectedStatus, minHTTPStatus, maxHTTPStatus)
	}
	for _, h := range headers {
		if err := validateHeader(h); err != nil {
			return Target{}, err
		}
	}
	return Target{
		kind:           KindHTTP,
		url:            u,
		expectedStatus: expectedStatus,
		headers:        append([]Header(nil), headers...),
	}, nil
}

// Parse builds a Target from a CLI-style string: either "host:port" or an
// http(s) URL. HTTP targets expect defaultStatus.
func Parse(s string, defaultStatus int) (Target, error) {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return HTTP(s, defaultStatus)
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Target{}, types.NewTargetError(types.ErrCodeInvalidTarget, s, "expected host:port or http(s)://host/path")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Target{}, types.NewTargetError(types.ErrCodeInvalidTarget, s, "invalid port %q", portStr)
	}
	return TCP(host, port)
}

// ParseAll parses a list of target strings, failing on the first invalid one.
func ParseAll(specs []string, defaultStatus int) ([]Target, error) {
	targets := make([]Target, 0, len(specs))
	for _, s := range specs {
		t, err := Parse(s, defaultStatus)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// WithHeaders returns a copy of an HTTP target carrying the given headers.
// Calling it on a TCP target returns the target unchanged.
func (t Target) WithHeaders(headers []Header) (Target, error) {
	if t.kind != KindHTTP {
		return t, nil
	}
	for _, h := range headers {
		if err := validateHeader(h); err != nil {
			return Target{}, err
		}
	}
	t.headers = append([]Header(nil), headers...)
	return t, nil
}

func (t Target) Kind() Kind { return t.kind }

// Host returns the hostname: the TCP host, or the HTTP URL's host without port.
func (t Target) Host() string {
	if t.kind == KindHTTP {
		return t.url.Hostname()
	}
	return t.host
}

// Port returns the effective port, filling in 80/443 for HTTP URLs
// without an explicit one.
func (t Target) Port() int {
	if t.kind == KindTCP {
		return t.port
	}
	if p := t.url.Port(); p != "" {
		n, _ := strconv.Atoi(p)
		return n
	}
	if t.url.Scheme == "https" {
		return 443
	}
	return 80
}

// URL returns a copy of the target URL, or nil for TCP targets.
func (t Target) URL() *url.URL {
	if t.url == nil {
		return nil
	}
	u := *t.url
	return &u
}

func (t Target) ExpectedStatus() int { return t.expectedStatus }

// Headers returns a copy of the configured request headers.
func (t Target) Headers() []Header {
	return append([]Header(nil), t.headers...)
}

// String returns the display form: "host:port" for TCP, the URL for HTTP.
func (t Target) String() string {
	if t.kind == KindHTTP {
		return t.url.String()
	}
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

// Key returns the normalized rate-limit identity, scheme://host:port.
func (t Target) Key() string {
	if t.kind == KindHTTP {
		return fmt.Sprintf("%s://%s:%d", t.url.Scheme, t.url.Hostname(), t.Port())
	}
	return fmt.Sprintf("tcp://%s:%d", t.host, t.port)
}

// Equal reports semantic equality: same kind, endpoint, expected status,
// and headers.
func (t Target) Equal(other Target) bool {
	if t.kind != other.kind || t.expectedStatus != other.expectedStatus {
		return false
	}
	if t.String() != other.String() {
		return false
	}
	if len(t.headers) != len(other.headers) {
		return false
	}
	for i := range t.headers {
		if t.headers[i] != other.headers[i] {
			return false
		}
	}
	return true
}

// ValidateHostname checks RFC-1035 shape: at most 253 characters, labels of
// 1-63 alphanumeric-or-hyphen characters with no leading or trailing hyphen.
// IP literals (v4 and v6) are accepted as-is.
func ValidateHostname(host string) error {
	if host == "" {
		return types.NewError(types.ErrCodeInvalidHostname, "hostname cannot be empty")
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if len(host) > maxHostnameLen {
		return types.NewTargetError(types.ErrCodeInvalidHostname, host, "hostname too long (%d > %d characters)", len(host), maxHostnameLen)
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return types.NewTargetError(types.ErrCodeInvalidHostname, host, "hostname labels cannot be empty")
		}
		if len(label) > maxLabelLen {
			return types.NewTargetError(types.ErrCodeInvalidHostname, host, "hostname label %q exceeds %d characters", label, maxLabelLen)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return types.NewTargetError(types.ErrCodeInvalidHostname, host, "hostname labels cannot start or end with a hyphen")
		}
		for _, c := range label {
			if !isAlphanumeric(c) && c != '-' {
				return types.NewTargetError(types.ErrCodeInvalidHostname, host, "hostname contains invalid character %q", c)
			}
		}
	}
	return nil
}

func validateHeader(h Header) error {
	if h.Name == "" {
		return types.NewError(types.ErrCodeInvalidHeader, "HTTP header name cannot be empty")
	}
	if h.Value == "" {
		return types.NewError(types.ErrCodeInvalidHeader, "HTTP header %q has an empty value", h.Name)
	}
	for _, c := range h.Name {
		if !isAlphanumeric(c) && c != '-' && c != '_' {
			return types.NewError(types.ErrCodeInvalidHeader, "invalid HTTP header name %q", h.Name)
		}
	}
	return nil
}

func isAlphanumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// ParseHeaders parses repeatable CLI header flags of the form "Name: value".
func ParseHeaders(specs []string) ([]Header, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	headers := make([]Header, 0, len(specs))
	for _, s := range specs {
		name, value, ok := strings.Cut(s, ":")
		if !ok {
			return nil, types.NewError(types.ErrCodeInvalidHeader, "invalid header %q: expected \"Name: value\"", s)
		}
		h := Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}
		if err := validateHeader(h); err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}
