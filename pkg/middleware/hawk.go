package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/exportwins/winsmi/pkg/audit"
	"github.com/exportwins/winsmi/pkg/credentials"
	"github.com/exportwins/winsmi/pkg/hawk"
	"github.com/exportwins/winsmi/pkg/httputil"
	"github.com/exportwins/winsmi/pkg/ipfilter"
	"github.com/exportwins/winsmi/pkg/observability"
)

// DefaultMaxBodyBytes bounds the request body read for payload verification
const DefaultMaxBodyBytes = 1 << 20

// ScopeChecker reports whether a credential may use an API scope
type ScopeChecker interface {
	HasScope(id string, scope credentials.Scope) bool
}

// HawkAuthConfig wires the authentication pipeline
type HawkAuthConfig struct {
	Receiver *hawk.Receiver
	// IPFilter may be nil to disable the allowlist
	IPFilter     *ipfilter.Filter
	Scopes       ScopeChecker
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Audit        audit.Logger
	MaxBodyBytes int64
}

// HawkAuth authenticates partner requests and signs their responses
type HawkAuth struct {
	receiver     *hawk.Receiver
	ipFilter     *ipfilter.Filter
	scopes       ScopeChecker
	logger       *observability.Logger
	metrics      *observability.Metrics
	audit        audit.Logger
	maxBodyBytes int64
}

// NewHawkAuth creates the authentication middleware
func NewHawkAuth(cfg HawkAuthConfig) *HawkAuth {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NoOpLogger{}
	}
	return &HawkAuth{
		receiver:     cfg.Receiver,
		ipFilter:     cfg.IPFilter,
		scopes:       cfg.Scopes,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		audit:        cfg.Audit,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Require returns middleware admitting only requests from an allowlisted
// address, signed with a known credential that grants scope.
// Responses to admitted requests carry a Server-Authorization header.
func (m *HawkAuth) Require(scope credentials.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if m.logger != nil && ctx.Value(observability.LoggerKey) == nil {
				ctx = observability.WithLogger(ctx, m.logger)
				r = r.WithContext(ctx)
			}
			logger := observability.FromContext(ctx).WithField("scope", string(scope))

			clientIP := ""
			if m.ipFilter != nil {
				addr, err := m.ipFilter.Check(r)
				if err != nil {
					logger.WithError(err).Warn("Request rejected by IP allowlist")
					m.metrics.RecordAuth(observability.AuthResultIPDenied)
					m.record(r, audit.EventTypeAuthIPDenied, audit.EventStatusDenied, "", "", err)
					writeChallenge(w, "", httputil.DetailIncorrectCredentials)
					return
				}
				clientIP = addr.String()
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, m.maxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					httputil.WriteDetail(w, http.StatusRequestEntityTooLarge, "Request body too large.")
					return
				}
				httputil.WriteBadRequest(w, "Could not read request body.")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			session, err := m.receiver.Authenticate(ctx, r, body)
			if err != nil {
				m.reject(w, r, logger, clientIP, err)
				return
			}

			id := session.Credentials.ID
			logger = logger.WithField("credential_id", id)
			if !m.scopes.HasScope(id, scope) {
				logger.Warn("Credential lacks scope")
				m.metrics.RecordAuth(observability.AuthResultForbidden)
				m.record(r, audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied, id, clientIP, nil)
				httputil.WriteForbidden(w)
				return
			}

			m.metrics.RecordAuth(observability.AuthResultSuccess)
			m.record(r, audit.EventTypeAuthSuccess, audit.EventStatusSuccess, id, clientIP, nil)

			ctx = observability.WithCredentialID(ctx, id)
			sw := newSigningWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if err := sw.flush(session); err != nil {
				logger.WithError(err).Error("Failed to sign response")
			}
		})
	}
}

// reject maps an authentication failure onto its response
func (m *HawkAuth) reject(w http.ResponseWriter, r *http.Request, logger *observability.Logger, clientIP string, err error) {
	logger = logger.WithError(err)

	var stale *hawk.StaleTimestampError
	switch {
	case errors.Is(err, hawk.ErrMissingAuthorization):
		m.metrics.RecordAuth(observability.AuthResultMissing)
		m.record(r, audit.EventTypeAuthFailed, audit.EventStatusFailure, "", clientIP, err)
		writeChallenge(w, "", httputil.DetailNotAuthenticated)

	case errors.As(err, &stale):
		logger.Info("Rejected request with stale timestamp")
		m.metrics.RecordAuth(observability.AuthResultStale)
		m.record(r, audit.EventTypeAuthStale, audit.EventStatusFailure, "", clientIP, err)
		writeChallenge(w, stale.Header, httputil.DetailIncorrectCredentials)

	case errors.Is(err, hawk.ErrAlreadyProcessed):
		logger.Warn("Rejected replayed request")
		m.metrics.RecordAuth(observability.AuthResultReplay)
		m.record(r, audit.EventTypeAuthReplay, audit.EventStatusDenied, "", clientIP, err)
		writeChallenge(w, "", httputil.DetailIncorrectCredentials)

	case errors.Is(err, hawk.ErrNonceCheck),
		errors.Is(err, hawk.ErrCredentialsLookup) && !errors.Is(err, hawk.ErrCredentialsNotFound):
		logger.Error("Authentication backend unavailable")
		m.metrics.RecordAuth(observability.AuthResultError)
		httputil.WriteServiceUnavailable(w)

	default:
		logger.Warn("Hawk authentication failed")
		m.metrics.RecordAuth(observability.AuthResultInvalid)
		m.record(r, audit.EventTypeAuthFailed, audit.EventStatusFailure, "", clientIP, err)
		writeChallenge(w, "", httputil.DetailIncorrectCredentials)
	}
}

func (m *HawkAuth) record(r *http.Request, eventType audit.EventType, status audit.EventStatus, id, clientIP string, err error) {
	event := audit.NewEvent(eventType, status).WithRequest(r)
	event.CredentialID = id
	event.IPAddress = clientIP
	event.RequestID = observability.GetRequestID(r.Context())
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	if logErr := m.audit.Log(r.Context(), event); logErr != nil {
		observability.FromContext(r.Context()).WithError(logErr).Error("Failed to write audit event")
	}
}

// writeChallenge writes a 401 with a Hawk WWW-Authenticate header
func writeChallenge(w http.ResponseWriter, challenge, detail string) {
	if challenge == "" {
		challenge = hawk.Scheme
	}
	w.Header().Set(hawk.WWWAuthenticateHeader, challenge)
	httputil.WriteUnauthorized(w, detail)
}

// signingWriter buffers a response so its body can be hashed into
// Server-Authorization before anything reaches the client
type signingWriter struct {
	w      http.ResponseWriter
	status int
	body   bytes.Buffer
}

func newSigningWriter(w http.ResponseWriter) *signingWriter {
	return &signingWriter{w: w}
}

func (sw *signingWriter) Header() http.Header {
	return sw.w.Header()
}

func (sw *signingWriter) WriteHeader(status int) {
	if sw.status == 0 {
		sw.status = status
	}
}

func (sw *signingWriter) Write(p []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.body.Write(p)
}

func (sw *signingWriter) flush(session *hawk.Session) error {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	body := sw.body.Bytes()

	header := sw.w.Header()
	if header.Get("Content-Type") == "" && len(body) > 0 {
		header.Set("Content-Type", http.DetectContentType(body))
	}

	signature, err := session.Respond(body, header.Get("Content-Type"), "")
	if err != nil {
		httputil.WriteInternalError(sw.w)
		return err
	}
	header.Set(hawk.ServerAuthorizationHeader, signature)

	sw.w.WriteHeader(sw.status)
	_, err = sw.w.Write(body)
	return err
}
