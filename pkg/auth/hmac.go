// Package auth provides HMAC-SHA256 request signing for the Agent Arena API.
// A caller signs the method, path, query, timestamp, nonce and body hash with
// its key; the key ID then identifies the calling user.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	AuthHeaderPrefix = "ARENA-HMAC-SHA256" // Authorization header scheme
	DefaultClockSkew = 300                 // Seconds a signed timestamp may drift
)

var (
	ErrMalformedHeader   = errors.New("malformed auth header")
	ErrUnknownKey        = errors.New("unknown key id")
	ErrStaleTimestamp    = errors.New("timestamp outside allowed skew")
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// HMACAuth signs and verifies requests for a set of key IDs.
type HMACAuth struct {
	secrets   map[string]string
	clockSkew time.Duration
	now       func() time.Time
}

// AuthHeader holds the fields of a parsed Authorization header.
type AuthHeader struct {
	KeyID     string
	Timestamp string // Unix seconds
	Nonce     string
	Signature string // Hex HMAC of the canonical string
}

// NewHMACAuth creates an authenticator. A zero clockSkew uses DefaultClockSkew.
func NewHMACAuth(secrets map[string]string, clockSkew time.Duration) *HMACAuth {
	if clockSkew == 0 {
		clockSkew = DefaultClockSkew * time.Second
	}
	copied := make(map[string]string, len(secrets))
	for k, v := range secrets {
		copied[k] = v
	}
	return &HMACAuth{
		secrets:   copied,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

// ClockSkew returns the tolerated timestamp drift.
func (h *HMACAuth) ClockSkew() time.Duration {
	return h.clockSkew
}

// BodySHA256Hex returns the hex SHA-256 of a request body.
func BodySHA256Hex(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// CanonicalString joins the signed request parts with newlines.
func CanonicalString(method, path, query, ts, nonce, bodyHex string) string {
	return strings.Join([]string{
		strings.ToUpper(method),
		path,
		query,
		ts,
		nonce,
		bodyHex,
	}, "\n")
}

// ComputeSignature signs the canonical string of a request with secret.
func ComputeSignature(method, path, query string, body []byte, ts, nonce, secret string) string {
	canonical := CanonicalString(method, path, query, ts, nonce, BodySHA256Hex(body))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreateAuthHeader builds a signed Authorization header value. Returns an
// empty string for an unknown key ID.
func (h *HMACAuth) CreateAuthHeader(method, path, query string, body []byte, keyID, nonce string) string {
	secret, ok := h.secrets[keyID]
	if !ok {
		return ""
	}

	ts := strconv.FormatInt(h.now().Unix(), 10)
	sig := ComputeSignature(method, path, query, body, ts, nonce, secret)

	return fmt.Sprintf("%s keyId=%s,ts=%s,nonce=%s,sig=%s", AuthHeaderPrefix, keyID, ts, nonce, sig)
}

// SignRequest sets the Authorization header on req. body must be the exact
// bytes req will send.
func (h *HMACAuth) SignRequest(req *http.Request, body []byte, keyID, nonce string) error {
	header := h.CreateAuthHeader(req.Method, req.URL.EscapedPath(), req.URL.RawQuery, body, keyID, nonce)
	if header == "" {
		return fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	req.Header.Set("Authorization", header)
	return nil
}

// ParseAuthHeader splits an Authorization header into its fields.
func ParseAuthHeader(authHeader string) (*AuthHeader, error) {
	rest, ok := strings.CutPrefix(authHeader, AuthHeaderPrefix+" ")
	if !ok {
		return nil, fmt.Errorf("%w: invalid prefix", ErrMalformedHeader)
	}

	auth := &AuthHeader{}
	for _, pair := range strings.Split(rest, ",") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}

		switch strings.TrimSpace(key) {
		case "keyId":
			auth.KeyID = strings.TrimSpace(value)
		case "ts":
			auth.Timestamp = strings.TrimSpace(value)
		case "nonce":
			auth.Nonce = strings.TrimSpace(value)
		case "sig":
			auth.Signature = strings.TrimSpace(value)
		}
	}

	if auth.KeyID == "" || auth.Timestamp == "" || auth.Nonce == "" || auth.Signature == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformedHeader)
	}

	return auth, nil
}

// VerifySignature checks the key, the timestamp freshness and the signature
// of an incoming request. Signatures are compared in constant time.
func (h *HMACAuth) VerifySignature(method, path, query string, body []byte, auth *AuthHeader) error {
	secret, ok := h.secrets[auth.KeyID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, auth.KeyID)
	}

	ts, err := strconv.ParseInt(auth.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid timestamp %q", ErrMalformedHeader, auth.Timestamp)
	}

	now := h.now().Unix()
	if abs(now-ts) > int64(h.clockSkew.Seconds()) {
		return fmt.Errorf("%w: %d vs %d", ErrStaleTimestamp, ts, now)
	}

	expected := ComputeSignature(method, path, query, body, auth.Timestamp, auth.Nonce, secret)
	if !hmac.Equal([]byte(expected), []byte(auth.Signature)) {
		return ErrSignatureMismatch
	}

	return nil
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
