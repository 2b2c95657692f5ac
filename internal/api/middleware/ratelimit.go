package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/neiii/stargate-better-auth/internal/api/presenter"
)

// RateLimit throttles per user so a client hammering the forced-refresh
// endpoint cannot burn the GitHub API quota. Requests outside SessionAuth
// fall back to the remote address as key.
func RateLimit(r rate.Limit, burst int) func(handler http.Handler) http.Handler {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(r, burst)
			limiters[key] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			key := SessionCtx(req.Context()).UserID
			if key == "" {
				key = req.RemoteAddr
			}
			if !limiterFor(key).Allow() {
				presenter.Error(w, req, "too many refresh requests, slow down", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
