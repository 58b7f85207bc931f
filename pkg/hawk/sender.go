package hawk

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SenderOptions configures request signing
type SenderOptions struct {
	Ext string
	App string
	Dlg string

	// Nonce overrides the random nonce (tests)
	Nonce string

	// Now overrides the clock; Transport uses it to apply a server clock offset
	Now func() time.Time

	// AcceptUntrustedContent allows responses without a payload hash
	AcceptUntrustedContent bool
}

// Sender signs one request and verifies its response
type Sender struct {
	creds     *Credentials
	artifacts Artifacts
	header    string
	opts      SenderOptions
}

// NewSender signs a request for rawURL. The payload hash is always included,
// an empty body is hashed as empty content.
func NewSender(creds *Credentials, method, rawURL string, body []byte, contentType string, opts SenderOptions) (*Sender, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	for name, v := range map[string]string{"ext": opts.Ext, "app": opts.App, "dlg": opts.Dlg} {
		if !validHeaderValue(v) {
			return nil, fmt.Errorf("%w: invalid characters in %s", ErrBadHeader, name)
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid url: %q has no host", rawURL)
	}

	nonce := opts.Nonce
	if nonce == "" {
		if nonce, err = randomNonce(); err != nil {
			return nil, err
		}
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	port := u.Port()
	if port == "" {
		port = defaultPort(strings.ToLower(u.Scheme))
	}

	a := Artifacts{
		ID:        creds.ID,
		Method:    strings.ToUpper(method),
		Host:      u.Hostname(),
		Port:      port,
		Resource:  u.RequestURI(),
		Timestamp: now().Unix(),
		Nonce:     nonce,
		Hash:      CalculatePayloadHash(body, contentType),
		Ext:       opts.Ext,
		App:       opts.App,
		Dlg:       opts.Dlg,
	}
	a.MAC, err = CalculateMAC(creds, typeHeader, &a)
	if err != nil {
		return nil, err
	}

	hb := newHeaderBuilder()
	hb.add("id", a.ID)
	hb.add("ts", strconv.FormatInt(a.Timestamp, 10))
	hb.add("nonce", a.Nonce)
	hb.add("hash", a.Hash)
	hb.add("ext", a.Ext)
	hb.add("mac", a.MAC)
	if a.App != "" {
		hb.add("app", a.App)
		hb.add("dlg", a.Dlg)
	}

	return &Sender{creds: creds, artifacts: a, header: hb.String(), opts: opts}, nil
}

// RequestHeader returns the Authorization header value
func (s *Sender) RequestHeader() string {
	return s.header
}

// Artifacts returns the signed request values
func (s *Sender) Artifacts() Artifacts {
	return s.artifacts
}

// AcceptResponse verifies the Server-Authorization header of the response
func (s *Sender) AcceptResponse(header string, body []byte, contentType string) error {
	if header == "" {
		return fmt.Errorf("%w: missing %s header", ErrMissingAuthorization, ServerAuthorizationHeader)
	}
	sa, err := parseServerAuthorization(header)
	if err != nil {
		return err
	}

	a := s.artifacts
	a.Hash = sa.Hash
	a.Ext = sa.Ext
	expected, err := CalculateMAC(s.creds, typeResponse, &a)
	if err != nil {
		return err
	}
	if !macEqual(expected, sa.MAC) {
		return ErrMacMismatch
	}

	if sa.Hash == "" {
		if !s.opts.AcceptUntrustedContent {
			return ErrMissingContentHash
		}
		return nil
	}
	if !macEqual(CalculatePayloadHash(body, contentType), sa.Hash) {
		return ErrContentHashMismatch
	}
	return nil
}

// ParseTimestampChallenge verifies a stale-timestamp WWW-Authenticate header
// and returns the server time it carries.
func ParseTimestampChallenge(header string, creds *Credentials) (time.Time, error) {
	if err := creds.validate(); err != nil {
		return time.Time{}, err
	}
	attrs, err := parseHeader(header, challengeAttributes)
	if err != nil {
		return time.Time{}, err
	}
	if attrs["ts"] == "" || attrs["tsm"] == "" {
		return time.Time{}, fmt.Errorf("%w: challenge carries no timestamp", ErrBadHeader)
	}
	ts, err := strconv.ParseInt(attrs["ts"], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid ts attribute", ErrBadHeader)
	}
	if !macEqual(calculateTimestampMAC(creds.Key, ts), attrs["tsm"]) {
		return time.Time{}, ErrMacMismatch
	}
	return time.Unix(ts, 0), nil
}

func randomNonce() (string, error) {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
