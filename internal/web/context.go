package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/dataplay/internal/core"
	"github.com/JonMunkholm/dataplay/internal/logging"
	"github.com/JonMunkholm/dataplay/internal/session"
	"github.com/JonMunkholm/dataplay/internal/web/middleware"
)

// sessionCookie carries the signed session token.
const sessionCookie = "dataplay_session"

type ctxKey struct{}

// withSession resolves the session from the cookie, starting a new one when
// the cookie is missing, invalid or points to an expired session. The
// cookie is re-issued on every request so it expires with the session.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *session.Session
		if c, err := r.Cookie(sessionCookie); err == nil {
			if id, err := s.tokens.Parse(c.Value); err == nil {
				sess, _ = s.store.Get(id)
			}
		}
		if sess == nil {
			sess = s.store.Create()
		}

		token, err := s.tokens.Issue(sess.ID)
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    token,
			Path:     "/",
			MaxAge:   int(s.store.TTL().Seconds()),
			HttpOnly: true,
			Secure:   s.cfg.Session.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(withRequestMetadata(r.Context(), r, sess)))
	})
}

// withRequestMetadata stores the session and client details for logging.
func withRequestMetadata(ctx context.Context, r *http.Request, sess *session.Session) context.Context {
	ctx = context.WithValue(ctx, ctxKey{}, sess)
	ctx = logging.ContextWithSessionID(ctx, sess.ID)
	return core.ContextWithClient(ctx, core.Client{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
}

// sessionFrom returns the request's session. Routes behind withSession
// always have one.
func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(ctxKey{}).(*session.Session)
	return sess
}
