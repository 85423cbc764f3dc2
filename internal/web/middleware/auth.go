package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dataplay/internal/config"
	"github.com/JonMunkholm/dataplay/internal/logging"
	"github.com/JonMunkholm/dataplay/internal/metrics"
)

// keyring holds SHA-256 digests of the accepted API keys so every
// comparison runs over equal-length inputs.
type keyring [][sha256.Size]byte

func newKeyring(keys []string) keyring {
	ring := make(keyring, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			ring = append(ring, sha256.Sum256([]byte(k)))
		}
	}
	return ring
}

// accepts checks key against every entry; timing does not depend on which
// entry matched.
func (ring keyring) accepts(key string) bool {
	sum := sha256.Sum256([]byte(key))
	match := 0
	for i := range ring {
		match |= subtle.ConstantTimeCompare(sum[:], ring[i][:])
	}
	return match == 1
}

// requestKey reads the key from X-API-Key, falling back to an
// "Authorization: Bearer" header for clients that only set that.
func requestKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// APIKeyAuth guards the JSON API for scripted clients. When RequireAPIKey
// is false every request passes; browser pages are never wrapped by it.
// Rejections are logged with the request ID and counted by reason.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	ring := newKeyring(cfg.APIKeys)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			reject := func(status int, reason, message, code string) {
				metrics.AuthRejections.WithLabelValues(reason).Inc()
				logging.FromContext(r.Context()).Warn("api request rejected",
					"reason", reason,
					"route", r.URL.Path,
					"client_ip", ClientIP(r),
				)
				writeJSONError(w, status, message, code)
			}

			key := requestKey(r)
			switch {
			case key == "":
				reject(http.StatusUnauthorized, "missing", "missing API key", "AUTH_MISSING_KEY")
			case !ring.accepts(key):
				reject(http.StatusForbidden, "invalid", "invalid API key", "AUTH_INVALID_KEY")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
