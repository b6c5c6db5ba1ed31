package app

import (
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/scanledger/waitlist/internal/config"
)

// corsMiddleware allows every origin in development or when no patterns are
// configured. Otherwise only origins whose host matches a pattern pass.
func corsMiddleware(cfg *config.AppConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  func(string) bool { return true },
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		corsConfig.AllowOriginFunc = originMatcher(cfg.AllowedOrigins)
	}
	return cors.New(corsConfig)
}

func originMatcher(patterns []string) func(string) bool {
	return func(origin string) bool {
		host := originHost(origin)
		for _, pattern := range patterns {
			if matchOriginPattern(strings.ToLower(pattern), host) {
				return true
			}
		}
		return false
	}
}

// originHost returns the lower-cased "host[:port]" of an origin URL.
func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return strings.ToLower(origin)
	}
	return strings.ToLower(u.Host)
}

// matchOriginPattern supports exact hosts, "*.example.com" subdomain
// wildcards and "localhost:*" port wildcards.
func matchOriginPattern(pattern, host string) bool {
	switch {
	case pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
