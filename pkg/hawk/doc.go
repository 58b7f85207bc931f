// Package hawk implements the Hawk HTTP authentication scheme (version 1, SHA-256).
//
// # Overview
//
// Hawk is a challenge-free HMAC request-signing scheme. A client signs the
// request line, host, port, a timestamp, a random nonce and optionally a hash
// of the payload with a shared key. The server recomputes the MAC, rejects
// timestamps outside the allowed skew window and refuses nonces it has seen
// before. The server can sign its response with the same key so the client
// can verify who answered (mutual authentication).
//
// # Receiving
//
//	receiver := hawk.NewReceiver(credentialStore, nonceStore, hawk.ReceiverOptions{})
//	session, err := receiver.Authenticate(ctx, r, body)
//	if errors.Is(err, hawk.ErrTokenExpired) { ... }
//	header, err := session.Respond(responseBody, "application/json", "")
//	w.Header().Set(hawk.ServerAuthorizationHeader, header)
//
// # Sending
//
//	sender, err := hawk.NewSender(creds, "GET", "https://api.example.com/activity-stream/", nil, "", hawk.SenderOptions{})
//	req.Header.Set("Authorization", sender.RequestHeader())
//	err = sender.AcceptResponse(resp.Header.Get(hawk.ServerAuthorizationHeader), body, resp.Header.Get("Content-Type"))
//
// Transport wraps both sides of the client flow into an http.RoundTripper.
//
// # Related Packages
//
//   - pkg/nonce: replay detection stores implementing NonceChecker
//   - pkg/credentials: credential store implementing CredentialsLookup
//   - pkg/middleware: HTTP middleware built on Receiver
package hawk
