package hawk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Transport signs outgoing requests and verifies signed responses.
// A stale-timestamp challenge from the server adjusts the local clock
// offset and the request is retried once.
type Transport struct {
	Credentials *Credentials
	Base        http.RoundTripper

	// Ext is sent with every request
	Ext string

	// SkipResponseVerification disables Server-Authorization checks
	SkipResponseVerification bool

	offset atomic.Int64
}

// Offset returns the clock correction learned from server challenges
func (t *Transport) Offset() time.Duration {
	return time.Duration(t.offset.Load())
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	resp, sender, err := t.send(req, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if serverTime, cerr := ParseTimestampChallenge(resp.Header.Get(WWWAuthenticateHeader), t.Credentials); cerr == nil {
			t.offset.Store(int64(time.Until(serverTime)))
			resp.Body.Close()
			resp, sender, err = t.send(req, body)
			if err != nil {
				return nil, err
			}
		}
	}

	// A 401 is sent before the request authenticated and cannot be signed.
	// Every other status comes from an authenticated exchange and must be.
	if t.SkipResponseVerification || resp.StatusCode == http.StatusUnauthorized {
		return resp, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	if err := sender.AcceptResponse(resp.Header.Get(ServerAuthorizationHeader), respBody, resp.Header.Get("Content-Type")); err != nil {
		return nil, fmt.Errorf("response verification failed (status %d): %w", resp.StatusCode, err)
	}
	return resp, nil
}

func (t *Transport) send(req *http.Request, body []byte) (*http.Response, *Sender, error) {
	if t.Credentials == nil {
		return nil, nil, errors.New("hawk transport has no credentials")
	}

	offset := t.Offset()
	sender, err := NewSender(t.Credentials, req.Method, req.URL.String(), body, req.Header.Get("Content-Type"), SenderOptions{
		Ext: t.Ext,
		Now: func() time.Time { return time.Now().Add(offset) },
	})
	if err != nil {
		return nil, nil, err
	}

	out := req.Clone(req.Context())
	out.Header.Set(AuthorizationHeader, sender.RequestHeader())
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.ContentLength = int64(len(body))
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(out)
	if err != nil {
		return nil, nil, err
	}
	return resp, sender, nil
}
