package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner mints and verifies short-lived download tokens so files
// can be fetched without an Authorization header, e.g. from an <img> tag.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a signed token referencing the attachment id.
func (s *SignedURLSigner) Generate(attachmentID string) (string, time.Time, error) {
	if attachmentID == "" {
		return "", time.Time{}, fmt.Errorf("attachment id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}

	expiresAt := time.Now().Add(s.ttl)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{attachmentID, ts, s.sign(attachmentID, ts)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded attachment id.
func (s *SignedURLSigner) Parse(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid token format")
	}
	attachmentID, ts, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.sign(attachmentID, ts)), []byte(signature)) {
		return "", fmt.Errorf("invalid token signature")
	}

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid timestamp")
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return "", fmt.Errorf("token expired")
	}
	return attachmentID, nil
}

func (s *SignedURLSigner) sign(attachmentID, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(attachmentID + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
