package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/davidbz/switchboard/internal/config"
)

// CORS applies the configured cross-origin policy and exposes the trace headers to browsers.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   append([]string{HeaderRequestID}, cfg.AllowedHeaders...),
		ExposedHeaders:   []string{HeaderTraceID, HeaderRequestID},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return c.Handler
}
