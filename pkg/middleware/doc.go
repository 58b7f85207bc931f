// Package middleware holds the HTTP middleware in front of the partner API.
//
// HawkAuth runs, per route, the IP allowlist, Hawk request verification and
// the scope check, then buffers the handler's response and signs it with a
// Server-Authorization header:
//
//	auth := middleware.NewHawkAuth(middleware.HawkAuthConfig{
//		Receiver: hawk.NewReceiver(store, nonces, hawk.ReceiverOptions{}),
//		IPFilter: filter,
//		Scopes:   store,
//	})
//	router.Handle("/activity-stream/", auth.Require(credentials.ScopeActivityStream)(handler))
//
// Failures answer 401 with WWW-Authenticate: Hawk (or a signed timestamp
// challenge), 403 for a missing scope, and 503 when the nonce store is down.
//
// RequestID, AccessLog and Throttle cover request ids, access logging and
// per-credential rate limiting.
package middleware
