package hawk

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultSkew is the accepted difference between client and server clocks
const DefaultSkew = 60 * time.Second

// CredentialsLookup resolves a credential id to its key.
// Implementations return ErrCredentialsNotFound for unknown ids.
type CredentialsLookup interface {
	LookupCredentials(ctx context.Context, id string) (*Credentials, error)
}

// NonceChecker records nonces and reports whether one was already seen
type NonceChecker interface {
	SeenNonce(ctx context.Context, id, nonce string, ts int64) (bool, error)
}

// ReceiverOptions configures request verification
type ReceiverOptions struct {
	// Skew is the allowed clock difference; zero means DefaultSkew
	Skew time.Duration

	// AcceptUntrustedContent allows requests without a payload hash
	AcceptUntrustedContent bool

	// TrustForwardedHeaders takes host, port and scheme from X-Forwarded-* headers
	TrustForwardedHeaders bool

	// Now overrides the clock (tests)
	Now func() time.Time
}

// Receiver verifies Hawk-signed requests
type Receiver struct {
	credentials CredentialsLookup
	nonces      NonceChecker
	opts        ReceiverOptions
}

// NewReceiver creates a receiver. A nil NonceChecker disables replay detection.
func NewReceiver(credentials CredentialsLookup, nonces NonceChecker, opts ReceiverOptions) *Receiver {
	if opts.Skew <= 0 {
		opts.Skew = DefaultSkew
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Receiver{
		credentials: credentials,
		nonces:      nonces,
		opts:        opts,
	}
}

// Skew returns the configured skew window
func (rc *Receiver) Skew() time.Duration {
	return rc.opts.Skew
}

// Session is an authenticated request; it signs the matching response
type Session struct {
	Credentials *Credentials
	Artifacts   Artifacts
}

// Authenticate verifies the Authorization header of r against body.
// The nonce is recorded only after the MAC, payload hash and timestamp
// have been verified, so forged requests cannot consume nonces.
func (rc *Receiver) Authenticate(ctx context.Context, r *http.Request, body []byte) (*Session, error) {
	header := r.Header.Get(AuthorizationHeader)
	if header == "" {
		return nil, ErrMissingAuthorization
	}

	artifacts, err := ParseAuthorization(header)
	if err != nil {
		return nil, err
	}
	artifacts.Method = r.Method
	artifacts.Resource = requestResource(r)
	artifacts.Host, artifacts.Port = rc.hostPort(r)

	creds, err := rc.credentials.LookupCredentials(ctx, artifacts.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialsLookup, err)
	}
	if err := creds.validate(); err != nil {
		return nil, err
	}

	expected, err := CalculateMAC(creds, typeHeader, artifacts)
	if err != nil {
		return nil, err
	}
	if !macEqual(expected, artifacts.MAC) {
		return nil, ErrMacMismatch
	}

	if artifacts.Hash == "" {
		if !rc.opts.AcceptUntrustedContent {
			return nil, ErrMissingContentHash
		}
	} else if !macEqual(CalculatePayloadHash(body, r.Header.Get("Content-Type")), artifacts.Hash) {
		return nil, ErrContentHashMismatch
	}

	now := rc.opts.Now()
	if skewExceeded(now, artifacts.Timestamp, rc.opts.Skew) {
		return nil, rc.staleTimestamp(creds, artifacts.Timestamp, now)
	}

	if rc.nonces != nil {
		seen, err := rc.nonces.SeenNonce(ctx, artifacts.ID, artifacts.Nonce, artifacts.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNonceCheck, err)
		}
		if seen {
			return nil, ErrAlreadyProcessed
		}
	}

	return &Session{Credentials: creds, Artifacts: *artifacts}, nil
}

func (rc *Receiver) staleTimestamp(creds *Credentials, ts int64, now time.Time) *StaleTimestampError {
	serverTS := now.Unix()
	hb := newHeaderBuilder()
	hb.add("ts", strconv.FormatInt(serverTS, 10))
	hb.add("tsm", calculateTimestampMAC(creds.Key, serverTS))
	hb.add("error", "Stale timestamp")
	return &StaleTimestampError{
		Timestamp:  ts,
		ServerTime: now,
		Skew:       rc.opts.Skew,
		Header:     hb.String(),
	}
}

// Respond returns a Server-Authorization value signing body with the request credentials
func (s *Session) Respond(body []byte, contentType, ext string) (string, error) {
	a := s.Artifacts
	a.Hash = CalculatePayloadHash(body, contentType)
	a.Ext = ext
	if !validHeaderValue(ext) {
		return "", fmt.Errorf("%w: invalid characters in ext", ErrBadHeader)
	}

	mac, err := CalculateMAC(s.Credentials, typeResponse, &a)
	if err != nil {
		return "", err
	}

	hb := newHeaderBuilder()
	hb.add("mac", mac)
	hb.add("hash", a.Hash)
	hb.add("ext", a.Ext)
	return hb.String(), nil
}

func (rc *Receiver) hostPort(r *http.Request) (string, string) {
	hostHeader := r.Host
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	if rc.opts.TrustForwardedHeaders {
		if fh := firstForwarded(r.Header.Get("X-Forwarded-Host")); fh != "" {
			hostHeader = fh
		}
		if proto := firstForwarded(r.Header.Get("X-Forwarded-Proto")); proto != "" {
			scheme = strings.ToLower(proto)
		}
	}

	host, port := splitHostPort(hostHeader)
	if rc.opts.TrustForwardedHeaders {
		if fp := firstForwarded(r.Header.Get("X-Forwarded-Port")); fp != "" {
			port = fp
		}
	}
	if port == "" {
		port = defaultPort(scheme)
	}
	return host, port
}

func requestResource(r *http.Request) string {
	if r.RequestURI != "" && !strings.Contains(r.RequestURI, "://") {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

func splitHostPort(hostport string) (string, string) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return strings.Trim(hostport, "[]"), ""
	}
	return host, port
}

func firstForwarded(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

func skewExceeded(now time.Time, ts int64, skew time.Duration) bool {
	diff := now.Unix() - ts
	if diff < 0 {
		diff = -diff
	}
	return time.Duration(diff)*time.Second > skew
}
