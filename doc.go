// Package apiconfig holds the error taxonomy shared by the auth, config and
// storage packages.
//
// Every error the library returns is an *Error carrying a kind sentinel.
// Kinds form a hierarchy rooted at ErrAPIConfig, so callers can match as
// broadly or as narrowly as they need:
//
//	if errors.Is(err, apiconfig.ErrTokenRefreshTimeout) {
//		// retry later
//	} else if errors.Is(err, apiconfig.ErrAuthStrategy) {
//		// misconfigured credentials
//	}
//
// The underlying cause stays reachable through errors.Unwrap.
package apiconfig
