// ABOUTME: Go client for the pdguard HTTP API with an explicit connection
// ABOUTME: state machine: Disconnected, Connecting, Ready, Invalid

package client

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"github.com/pdguard/pdguard/internal/authz"
)

// State is the client's view of its connection to the service.
type State int32

const (
	// StateDisconnected means no connection has been established, or the
	// last request failed at the transport level.
	StateDisconnected State = iota
	// StateConnecting means Connect is in flight.
	StateConnecting
	// StateReady means the service answered and versions are compatible.
	StateReady
	// StateInvalid means the service answered with an incompatible
	// version. Terminal until Connect is called again.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Client state errors, distinct from authorization denial.
var (
	ErrServiceDisconnected = errors.New("service disconnected")
	ErrServiceInvalid      = errors.New("service version incompatible")
)

// Client talks to the pdguard API. Zero value is not usable; call New.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	state   atomic.Int32

	// expectVersion, when non-empty, is checked against the service's
	// reported version during Connect.
	expectVersion string

	// signer, when set, attaches signed-request headers to mutations.
	signer ssh.Signer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithExpectedVersion makes Connect fail to StateInvalid when the service
// reports a different version.
func WithExpectedVersion(v string) Option {
	return func(c *Client) { c.expectVersion = v }
}

// WithSigner attaches signed-request headers to every call, proving
// possession of a registered key.
func WithSigner(s ssh.Signer) Option {
	return func(c *Client) { c.signer = s }
}

// New creates a disconnected client.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Connect probes the service and moves the client to Ready or Invalid.
func (c *Client) Connect(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/version", nil)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("building version request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("%w: %v", ErrServiceDisconnected, err)
	}
	defer resp.Body.Close()

	var v struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil || v.Version == "" {
		c.state.Store(int32(StateInvalid))
		return fmt.Errorf("%w: unreadable version response", ErrServiceInvalid)
	}
	if c.expectVersion != "" && v.Version != c.expectVersion {
		c.state.Store(int32(StateInvalid))
		return fmt.Errorf("%w: service reports %s, want %s",
			ErrServiceInvalid, v.Version, c.expectVersion)
	}
	c.state.Store(int32(StateReady))
	return nil
}

// ensureReady gates every operation on the state machine.
func (c *Client) ensureReady() error {
	switch c.State() {
	case StateReady:
		return nil
	case StateInvalid:
		return ErrServiceInvalid
	default:
		return ErrServiceDisconnected
	}
}

// signHeaders attaches signed-request headers when a signer is configured.
func (c *Client) signHeaders(req *http.Request) error {
	if c.signer == nil {
		return nil
	}
	ts := time.Now().Unix()
	nonce := uuid.NewString()
	message := fmt.Sprintf("%d|%s", ts, nonce)
	sig, err := c.signer.Sign(rand.Reader, []byte(message))
	if err != nil {
		return fmt.Errorf("signing request: %w", err)
	}
	req.Header.Set(authz.PubkeyHeader,
		string(ssh.MarshalAuthorizedKey(c.signer.PublicKey())))
	req.Header.Set(authz.SignatureHeader,
		base64.StdEncoding.EncodeToString(ssh.Marshal(sig)))
	req.Header.Set(authz.TimestampHeader, strconv.FormatInt(ts, 10))
	req.Header.Set(authz.NonceHeader, nonce)
	return nil
}

// do runs one API call. Transport failures drop the client back to
// Disconnected; a 403 maps to ErrAuthorizationDenied.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.ensureReady(); err != nil {
		return err
	}

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.signHeaders(req); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("%w: %v", ErrServiceDisconnected, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, authz.ErrAuthorizationDenied)
	case resp.StatusCode >= 400:
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// errNotFound is internal; operations translate it to (nil, nil) or false.
var errNotFound = errors.New("not found")
