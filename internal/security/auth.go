package security

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth checks a static bearer token. Paths listed in Public are
// served without one.
type BearerAuth struct {
	Enabled bool
	Token   string
	Public  []string
}

func (a BearerAuth) Authorize(r *http.Request) bool {
	if !a.Enabled || a.IsPublic(r.URL.Path) {
		return true
	}
	candidate, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok || a.Token == "" || len(candidate) != len(a.Token) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(a.Token)) == 1
}

func (a BearerAuth) IsPublic(path string) bool {
	for _, p := range a.Public {
		if p == path {
			return true
		}
	}
	return false
}

// Wrap runs deny instead of next for requests that fail Authorize.
func (a BearerAuth) Wrap(next http.Handler, deny http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Authorize(r) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="smartevent-bridge"`)
			deny(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the credentials of an Authorization header. The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
