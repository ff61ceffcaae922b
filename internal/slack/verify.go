// README: Slack Events API transport: signature check, event routing, replies.
package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"
)

const (
	headerSignature = "X-Slack-Signature"
	headerTimestamp = "X-Slack-Request-Timestamp"
	// maxSkew bounds replay of a captured request.
	maxSkew = 5 * time.Minute
)

var (
	ErrBadSignature = errors.New("slack: signature mismatch")
	ErrStaleRequest = errors.New("slack: request timestamp out of range")
)

// VerifySignature checks the v0 HMAC-SHA256 signature Slack puts on every
// request. An empty secret disables the check.
func VerifySignature(secret string, h http.Header, body []byte, now time.Time) error {
	if secret == "" {
		return nil
	}
	tsHeader := h.Get(headerTimestamp)
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return ErrStaleRequest
	}
	if d := now.Sub(time.Unix(ts, 0)); d > maxSkew || d < -maxSkew {
		return ErrStaleRequest
	}
	want := Sign(secret, tsHeader, body)
	if !hmac.Equal([]byte(want), []byte(h.Get(headerSignature))) {
		return ErrBadSignature
	}
	return nil
}

// Sign returns the "v0=<hex>" signature for body sent at timestamp.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}
