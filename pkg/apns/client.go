// Package apns sends push notifications over Apple's HTTP/2 provider API.
//
// One Client owns one multiplexed connection path to one APNs environment
// for one application identity, authenticated either with a TLS client
// certificate or with cached provider tokens. Concurrent Push calls share
// the connection; each yields its own Response. The client never retries on
// its own: transport failures surface as *ConnectionError and the caller
// decides whether to resubmit, because blind retries are what gets providers
// throttled by Apple.
package apns

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"github.com/tinywideclouds/go-apns/pkg/payload"
	"github.com/tinywideclouds/go-apns/pkg/token"
)

// APNs environments. The hosts are distinct and never substituted for each
// other: a token or certificate provisioned for one will be rejected by the
// other with BadDeviceToken or BadCertificateEnvironment.
const (
	HostProduction = "https://api.push.apple.com"
	HostSandbox    = "https://api.sandbox.push.apple.com"
)

var (
	// ErrNoDeviceToken is returned when a notification has no device token.
	ErrNoDeviceToken = errors.New("apns: notification has no device token")

	// ErrBadApnsID is returned when a caller-supplied apns-id is not a
	// canonical UUID. APNs would reject it as BadMessageId; failing before
	// the send avoids a wasted round trip.
	ErrBadApnsID = errors.New("apns: apns-id must be a canonical UUID")

	// ErrCollapseIDTooLong is returned when a collapse id exceeds the
	// 64-byte limit.
	ErrCollapseIDTooLong = errors.New("apns: collapse id exceeds 64 bytes")
)

// PayloadTooLargeError is returned before any network I/O when the
// serialized payload exceeds the limit for the notification's push type.
type PayloadTooLargeError struct {
	Size  int
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("apns: payload of %d bytes exceeds the %d byte limit", e.Size, e.Limit)
}

// ConnectionError reports a transport-level failure: the request never
// completed an HTTP exchange. A rejection from APNs is never a
// ConnectionError.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("apns: connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Client talks to one APNs environment. Share a single Client across
// goroutines; constructing several clients for the same identity opens
// parallel connections, the churn pattern Apple penalizes.
type Client struct {
	// Host is the environment endpoint, HostProduction by default.
	Host string

	// HTTPClient carries the HTTP/2 transport. Exposed for tests.
	HTTPClient *http.Client

	source *token.Source
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithSandbox points the client at the development environment.
func WithSandbox() ClientOption {
	return func(c *Client) { c.Host = HostSandbox }
}

// WithHost overrides the endpoint entirely, for proxies and test servers.
func WithHost(host string) ClientOption {
	return func(c *Client) { c.Host = host }
}

// WithHTTPClient replaces the underlying HTTP client. The caller is
// responsible for it speaking HTTP/2 to the chosen host.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.HTTPClient = hc }
}

// NewClient returns a certificate-identity client. The certificate rides in
// the TLS handshake, so requests carry no authorization header and no token
// cache exists on this path.
func NewClient(certificate tls.Certificate, opts ...ClientOption) *Client {
	transport := &http2.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{certificate},
			MinVersion:   tls.VersionTLS12,
		},
	}
	return newClient(transport, nil, opts)
}

// NewTokenClient returns a token-identity client. Every request fetches its
// bearer from the source at send time, so a long-lived client keeps
// authenticating across token renewals without reconstruction.
func NewTokenClient(source *token.Source, opts ...ClientOption) *Client {
	return newClient(&http2.Transport{}, source, opts)
}

func newClient(transport *http2.Transport, source *token.Source, opts []ClientOption) *Client {
	c := &Client{
		Host:       HostProduction,
		HTTPClient: &http.Client{Transport: transport},
		source:     source,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Push submits one notification and blocks until APNs answers or ctx is
// done. Cancelling ctx abandons only this request; other requests in flight
// on the shared connection are untouched.
//
// The error is non-nil only for build failures and transport failures. A
// completed exchange always yields a Response; inspect Sent, Reason, or Err
// for the rejection taxonomy.
func (c *Client) Push(ctx context.Context, n *Notification) (*Response, error) {
	req, err := c.buildRequest(ctx, n)
	if err != nil {
		return nil, err
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Host: c.Host, Err: err}
	}
	defer func() { _ = res.Body.Close() }()
	return decodeResponse(res), nil
}

// buildRequest frames the notification. Everything that can be rejected
// locally (oversized payloads, malformed ids, reserved payload keys) fails
// here, before any bytes reach Apple.
func (c *Client) buildRequest(ctx context.Context, n *Notification) (*http.Request, error) {
	if n.DeviceToken == "" {
		return nil, ErrNoDeviceToken
	}
	if n.ApnsID != "" {
		if _, err := uuid.Parse(n.ApnsID); err != nil {
			return nil, ErrBadApnsID
		}
	}
	if len(n.CollapseID) > 64 {
		return nil, ErrCollapseIDTooLong
	}

	body, err := n.payloadBytes()
	if err != nil {
		return nil, fmt.Errorf("apns: failed to encode payload: %w", err)
	}
	limit := payload.MaxSize
	if n.PushType == PushTypeVOIP {
		limit = payload.MaxSizeVoIP
	}
	if len(body) > limit {
		return nil, &PayloadTooLargeError{Size: len(body), Limit: limit}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.Host+"/3/device/"+n.DeviceToken, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("apns: failed to build request: %w", err)
	}
	req.Header.Set("content-type", "application/json; charset=utf-8")
	if n.Topic != "" {
		req.Header.Set("apns-topic", n.Topic)
	}
	if n.ApnsID != "" {
		req.Header.Set("apns-id", n.ApnsID)
	}
	if n.CollapseID != "" {
		req.Header.Set("apns-collapse-id", n.CollapseID)
	}
	if n.Priority > 0 {
		req.Header.Set("apns-priority", strconv.Itoa(int(n.Priority)))
	}
	if n.Expiration != nil {
		req.Header.Set("apns-expiration", n.Expiration.String())
	}
	if n.PushType != "" {
		req.Header.Set("apns-push-type", string(n.PushType))
	}
	if c.source != nil {
		// Fetched per request, never earlier: a bearer cached at build time
		// could cross the age limit while the request waits under load.
		bearer, err := c.source.Bearer()
		if err != nil {
			return nil, fmt.Errorf("apns: failed to obtain provider token: %w", err)
		}
		req.Header.Set("authorization", "bearer "+bearer)
	}
	return req, nil
}

// Close releases idle transport connections. The client is not reusable
// afterwards in any meaningful way; construct a new one to reconnect. The
// library deliberately offers no transparent redial of a failed client.
func (c *Client) Close() {
	c.HTTPClient.CloseIdleConnections()
}
