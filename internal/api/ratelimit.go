package api

import (
	"net/http"
	"strings"

	"github.com/goalmateapp/goalmate-server/internal/http/response"
	"github.com/goalmateapp/goalmate-server/internal/ratelimit"
)

// rateLimitByIP throttles requests per client IP, answering 429 when the
// bucket is empty. The public auth endpoints sit behind this: argon2
// makes every login attempt expensive for the server, so credential
// stuffing would otherwise be a cheap way to saturate it.
func (s *Server) rateLimitByIP(limiter *ratelimit.KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if !limiter.Allow(key) {
				s.logger.Warn("rate limit exceeded", "ip", key, "path", r.URL.Path)
				response.TooManyRequests(w, "too many requests, please try again later", s.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the request's client address without the port.
// The RealIP middleware has already resolved proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if i := strings.LastIndexByte(ip, ':'); i >= 0 {
		return ip[:i]
	}
	return ip
}
