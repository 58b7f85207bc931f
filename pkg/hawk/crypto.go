package hawk

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
)

const (
	headerVersion = "1"

	// AlgorithmSHA256 is the only MAC algorithm accepted
	AlgorithmSHA256 = "sha256"
)

// MAC types used in the normalized string
const (
	typeHeader   = "header"
	typeResponse = "response"
)

// Credentials identify a Hawk client and hold its shared key
type Credentials struct {
	ID        string
	Key       string
	Algorithm string
}

func (c *Credentials) validate() error {
	if c == nil || c.Key == "" {
		return ErrInvalidCredentials
	}
	if c.Algorithm != "" && c.Algorithm != AlgorithmSHA256 {
		return ErrInvalidCredentials
	}
	return nil
}

// Artifacts are the values covered by a Hawk MAC
type Artifacts struct {
	ID        string
	Method    string
	Host      string
	Port      string
	Resource  string
	Timestamp int64
	Nonce     string
	Hash      string
	Ext       string
	App       string
	Dlg       string
	MAC       string
}

// NormalizedString builds the string that is signed for the given MAC type
// ("header" for requests, "response" for Server-Authorization).
func NormalizedString(macType string, a *Artifacts) string {
	var b strings.Builder
	b.WriteString("hawk.")
	b.WriteString(headerVersion)
	b.WriteByte('.')
	b.WriteString(macType)
	b.WriteByte('\n')

	for _, field := range []string{
		strconv.FormatInt(a.Timestamp, 10),
		a.Nonce,
		strings.ToUpper(a.Method),
		a.Resource,
		strings.ToLower(a.Host),
		a.Port,
		a.Hash,
		escapeExt(a.Ext),
	} {
		b.WriteString(field)
		b.WriteByte('\n')
	}

	if a.App != "" {
		b.WriteString(a.App)
		b.WriteByte('\n')
		b.WriteString(a.Dlg)
		b.WriteByte('\n')
	}

	return b.String()
}

// CalculateMAC returns the base64 HMAC-SHA256 of the normalized string
func CalculateMAC(creds *Credentials, macType string, a *Artifacts) (string, error) {
	if err := creds.validate(); err != nil {
		return "", err
	}
	return sign(creds.Key, NormalizedString(macType, a)), nil
}

// CalculatePayloadHash returns the base64 SHA-256 payload hash for the given content type.
// Content type parameters (such as charset) are ignored.
func CalculatePayloadHash(payload []byte, contentType string) string {
	h := sha256.New()
	h.Write([]byte("hawk." + headerVersion + ".payload\n"))
	h.Write([]byte(normalizeContentType(contentType)))
	h.Write([]byte{'\n'})
	h.Write(payload)
	h.Write([]byte{'\n'})
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// calculateTimestampMAC signs the server time sent in a stale-timestamp challenge
func calculateTimestampMAC(key string, ts int64) string {
	return sign(key, "hawk."+headerVersion+".ts\n"+strconv.FormatInt(ts, 10)+"\n")
}

func sign(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// macEqual compares two base64 strings in constant time
func macEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

func normalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func escapeExt(ext string) string {
	ext = strings.ReplaceAll(ext, `\`, `\\`)
	return strings.ReplaceAll(ext, "\n", `\n`)
}
