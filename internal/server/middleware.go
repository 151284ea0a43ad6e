package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/observability"
	"github.com/matzehuels/mailframe/pkg/session"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "mailframe_session"
)

type sessionKey struct{}

// sessionFrom returns the request's session. withSession guarantees one.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
		}
		sess, err := s.sessions.Resolve(r.Context(), id)
		if err != nil {
			respondError(w, errors.Wrap(errors.ErrCodeInternal, err, "resolve session"))
			return
		}
		w.Header().Set(SessionHeader, sess.ID)
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			Expires:  sess.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// instrument reports requests to the HTTP hooks and the log.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		start := time.Now()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// recoverer turns a handler panic into a 500 with a generic message.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := errors.New(errors.ErrCodeInternal, "panic: %v", rec)
				s.logger.Error("handler panic", "path", r.URL.Path, "err", err)
				observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
				respondError(w, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// checkOrigin accepts exact origins, "*.domain" wildcards and "*". With no
// list, only same-host origins (or none) are accepted.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) == 0 {
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		}
		for _, a := range allowed {
			switch {
			case a == "*", a == origin:
				return true
			case strings.HasPrefix(a, "*."):
				if strings.HasSuffix(origin, a[1:]) {
					return true
				}
			}
		}
		return false
	}
}
