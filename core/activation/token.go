package activation

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	tokenBytes = 32

	studentCodeLen      = 6
	studentCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var nowFunc = time.Now // mockable

// NewToken returns 32 random bytes, hex-encoded (64 lowercase characters).
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	return hex.EncodeToString(buf), nil
}

// tokenExpired reports whether more than ttl elapsed since sentAt.
// A token is still valid at exactly sentAt+ttl.
func tokenExpired(sentAt, now time.Time, ttl time.Duration) bool {
	return sentAt.IsZero() || now.Sub(sentAt) > ttl
}

// ActivationURL composes the link sent to the principal.
func ActivationURL(baseURL string, kind PrincipalKind, token string) string {
	return strings.TrimRight(baseURL, "/") + "/activate/" + string(kind) + "/" + token
}

func newStudentCode() (string, error) {
	buf := make([]byte, studentCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	for i, b := range buf {
		buf[i] = studentCodeAlphabet[int(b)%len(studentCodeAlphabet)]
	}
	return string(buf), nil
}

func normalizeStudentCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
