package hawk

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingAuthorization is returned when the request carries no Authorization header
	ErrMissingAuthorization = errors.New("hawk: missing authorization header")

	// ErrBadHeader is returned for headers that do not follow the Hawk syntax
	ErrBadHeader = errors.New("hawk: malformed header")

	// ErrCredentialsNotFound is returned by lookups for unknown credential ids
	ErrCredentialsNotFound = errors.New("hawk: credentials not found")

	// ErrCredentialsLookup wraps any failure to resolve credentials
	ErrCredentialsLookup = errors.New("hawk: credentials lookup failed")

	// ErrInvalidCredentials is returned for credentials without a key or with an unsupported algorithm
	ErrInvalidCredentials = errors.New("hawk: invalid credentials")

	// ErrMacMismatch is returned when the supplied MAC does not match the computed one
	ErrMacMismatch = errors.New("hawk: mac mismatch")

	// ErrMissingContentHash is returned when payload verification is required but no hash was sent
	ErrMissingContentHash = errors.New("hawk: payload hash required but not provided")

	// ErrContentHashMismatch is returned when the payload does not match the signed hash
	ErrContentHashMismatch = errors.New("hawk: payload hash mismatch")

	// ErrTokenExpired is returned when the request timestamp falls outside the skew window
	ErrTokenExpired = errors.New("hawk: stale timestamp")

	// ErrAlreadyProcessed is returned when a nonce has already been seen in the skew window
	ErrAlreadyProcessed = errors.New("hawk: nonce already processed")

	// ErrNonceCheck wraps failures of the nonce store itself
	ErrNonceCheck = errors.New("hawk: nonce check failed")
)

// StaleTimestampError reports a request outside the skew window. Header holds a
// WWW-Authenticate value carrying the server time, signed with the caller's key,
// so an honest client can correct its clock.
type StaleTimestampError struct {
	Timestamp  int64
	ServerTime time.Time
	Skew       time.Duration
	Header     string
}

func (e *StaleTimestampError) Error() string {
	return fmt.Sprintf("%s: ts=%d server=%d skew=%s", ErrTokenExpired, e.Timestamp, e.ServerTime.Unix(), e.Skew)
}

// Is makes errors.Is(err, ErrTokenExpired) match
func (e *StaleTimestampError) Is(target error) bool {
	return target == ErrTokenExpired
}
