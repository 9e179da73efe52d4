package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows every origin in development and only the configured
// comma-separated list in production.
func CORS(origins string, production bool) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	list := splitAndTrim(origins)
	if production || (len(list) > 0 && list[0] != "*") {
		cfg.AllowOrigins = list
	} else {
		cfg.AllowAllOrigins = true
	}
	if production && len(list) == 0 {
		// An empty allowlist in production denies every cross-origin call.
		cfg.AllowOriginFunc = func(string) bool { return false }
	}
	cfg.AddAllowMethods("PATCH")
	cfg.AddAllowHeaders("Authorization", RequestIDHeader)
	cfg.AddExposeHeaders(RequestIDHeader, "Content-Disposition")
	return cors.New(cfg)
}

func splitAndTrim(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
