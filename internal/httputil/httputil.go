// Package httputil holds the small HTTP helpers shared by the token
// fetching strategies.
package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"
)

const (
	// ClientTimeout bounds a single token endpoint round trip.
	ClientTimeout = 30 * time.Second

	// MaxResponseBytes caps response body reads. Token endpoints return
	// small JSON payloads.
	MaxResponseBytes = 1024 * 1024

	maxRedirects = 10
)

// NewClient returns an http.Client with the token endpoint timeout and a
// same-host redirect policy.
func NewClient() *http.Client {
	return &http.Client{
		Timeout:       ClientTimeout,
		CheckRedirect: SameHostRedirectPolicy,
	}
}

// SameHostRedirectPolicy follows redirects only when the target host
// matches the original request host, so credentials in the query string
// never reach a third-party domain.
func SameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// ReadBody reads at most MaxResponseBytes from resp and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
}

// Drain discards the rest of resp's body and closes it so the connection
// can be reused.
func Drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseBytes))
	_ = resp.Body.Close()
}

// SanitizeBody truncates and sanitizes a response body for inclusion in
// error messages. Limits to 256 bytes and replaces non-printable
// characters to prevent log injection.
func SanitizeBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}

// IsTransientStatus returns true for HTTP status codes that indicate a
// temporary server-side problem worth retrying.
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsAuthFailure reports whether code means the credentials were rejected.
func IsAuthFailure(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
