package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"bytes", ww.BytesWritten(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// authMiddleware checks API key authentication
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.Server.APIKey == "" {
			// No API key configured, allow all
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			auth = r.Header.Get("X-API-Key")
		}
		auth = strings.TrimPrefix(auth, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(auth), []byte(s.config.Server.APIKey)) != 1 {
			s.logger.Warn("unauthorized API request",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			s.sendError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}
