package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/valkyrie-fleet/srp-backend/api/responses"
	"github.com/valkyrie-fleet/srp-backend/pkg/config"
	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
	"github.com/valkyrie-fleet/srp-backend/pkg/logger"
)

// RateLimiter counts requests for a scope within a fixed window and reports
// whether the scope is still under its limit.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit throttles requests per client IP. It runs ahead of the auth
// middleware so a client cannot brute-force bearer tokens faster than the
// window allows. Disabled when the limit or window is zero.
func RateLimit(cfg config.RateLimitConfig, limiter RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.IPLimit <= 0 || cfg.Window <= 0 || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)

			allowed, count, err := limiter.FixedWindowAllow(ctx, "ip:"+ip, cfg.IPLimit, cfg.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeSourceUnavailable, err, "rate limit check failed"))
				return
			}
			if !allowed {
				if logg != nil {
					blockedCtx := logg.WithFields(ctx, map[string]any{
						"ip":             ip,
						"attempts":       count,
						"limit":          cfg.IPLimit,
						"window_seconds": int(cfg.Window.Seconds()),
					})
					logg.Warn(blockedCtx, "api.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w,
					pkgerrors.New(pkgerrors.CodeRateLimited, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP takes the first X-Forwarded-For hop when the request came through
// a proxy, falling back to the socket peer.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
