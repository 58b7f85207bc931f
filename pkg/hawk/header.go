package hawk

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Scheme is the authentication scheme name used in all Hawk headers
	Scheme = "Hawk"

	// AuthorizationHeader carries the client signature
	AuthorizationHeader = "Authorization"

	// ServerAuthorizationHeader carries the response signature
	ServerAuthorizationHeader = "Server-Authorization"

	// WWWAuthenticateHeader carries the challenge on 401 responses
	WWWAuthenticateHeader = "WWW-Authenticate"
)

var (
	requestAttributes   = map[string]bool{"id": true, "ts": true, "nonce": true, "hash": true, "ext": true, "mac": true, "app": true, "dlg": true}
	responseAttributes  = map[string]bool{"mac": true, "hash": true, "ext": true}
	challengeAttributes = map[string]bool{"ts": true, "tsm": true, "error": true}
)

// ParseAuthorization parses a client Authorization header into artifacts.
// Method, host, port and resource are left empty; they come from the request.
func ParseAuthorization(header string) (*Artifacts, error) {
	attrs, err := parseHeader(header, requestAttributes)
	if err != nil {
		return nil, err
	}

	for _, required := range []string{"id", "ts", "nonce", "mac"} {
		if attrs[required] == "" {
			return nil, fmt.Errorf("%w: missing %s attribute", ErrBadHeader, required)
		}
	}

	ts, err := strconv.ParseInt(attrs["ts"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ts attribute", ErrBadHeader)
	}

	return &Artifacts{
		ID:        attrs["id"],
		Timestamp: ts,
		Nonce:     attrs["nonce"],
		Hash:      attrs["hash"],
		Ext:       attrs["ext"],
		MAC:       attrs["mac"],
		App:       attrs["app"],
		Dlg:       attrs["dlg"],
	}, nil
}

// serverAuthorization holds the attributes of a Server-Authorization header
type serverAuthorization struct {
	MAC  string
	Hash string
	Ext  string
}

func parseServerAuthorization(header string) (*serverAuthorization, error) {
	attrs, err := parseHeader(header, responseAttributes)
	if err != nil {
		return nil, err
	}
	if attrs["mac"] == "" {
		return nil, fmt.Errorf("%w: missing mac attribute", ErrBadHeader)
	}
	return &serverAuthorization{MAC: attrs["mac"], Hash: attrs["hash"], Ext: attrs["ext"]}, nil
}

// parseHeader splits `Hawk key="value", key="value"` into a map, rejecting
// unknown or repeated keys and values outside the allowed character set.
func parseHeader(header string, allowed map[string]bool) (map[string]string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrMissingAuthorization
	}

	scheme, rest, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, Scheme) {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrBadHeader, scheme)
	}

	attrs := make(map[string]string)
	rest = strings.TrimSpace(rest)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("%w: expected key=\"value\"", ErrBadHeader)
		}
		key := strings.TrimSpace(rest[:eq])
		if !allowed[key] {
			return nil, fmt.Errorf("%w: unknown attribute %q", ErrBadHeader, key)
		}
		if _, dup := attrs[key]; dup {
			return nil, fmt.Errorf("%w: duplicate attribute %q", ErrBadHeader, key)
		}

		rest = rest[eq+1:]
		if len(rest) == 0 || rest[0] != '"' {
			return nil, fmt.Errorf("%w: attribute %q is not quoted", ErrBadHeader, key)
		}
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated value for %q", ErrBadHeader, key)
		}
		value := rest[1 : end+1]
		if !validHeaderValue(value) {
			return nil, fmt.Errorf("%w: invalid characters in %q", ErrBadHeader, key)
		}
		attrs[key] = value

		rest = strings.TrimSpace(rest[end+2:])
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, fmt.Errorf("%w: expected comma after %q", ErrBadHeader, key)
		}
		rest = strings.TrimSpace(rest[1:])
	}

	return attrs, nil
}

// validHeaderValue accepts printable ASCII except the double quote and backslash
func validHeaderValue(v string) bool {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < 0x20 || c > 0x7e || c == '"' || c == '\\' {
			return false
		}
	}
	return true
}

// headerBuilder writes `Hawk k="v", k="v"` skipping empty values
type headerBuilder struct {
	b     strings.Builder
	first bool
}

func newHeaderBuilder() *headerBuilder {
	hb := &headerBuilder{first: true}
	hb.b.WriteString(Scheme)
	return hb
}

func (hb *headerBuilder) add(key, value string) {
	if value == "" {
		return
	}
	if hb.first {
		hb.b.WriteByte(' ')
		hb.first = false
	} else {
		hb.b.WriteString(", ")
	}
	hb.b.WriteString(key)
	hb.b.WriteString(`="`)
	hb.b.WriteString(value)
	hb.b.WriteByte('"')
}

func (hb *headerBuilder) String() string {
	return hb.b.String()
}
