package auth

import (
	"net/http"
	"strings"
)

// ExtractBearerTokenFromHeader returns the token of a "Bearer <token>" header value,
// matching the scheme case-insensitively.
func ExtractBearerTokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// ExtractToken looks for a token in the access_token query parameter (what browser
// socket clients can send), then the Authorization header, then the token query
// parameter.
func ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if r.URL != nil {
		if token := strings.TrimSpace(r.URL.Query().Get("access_token")); token != "" {
			return token
		}
	}
	if token := ExtractBearerTokenFromHeader(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if r.URL != nil {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}
