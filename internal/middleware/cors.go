package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows browser clients to read the public catalog API.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With", CorrelationHeader},
		ExposedHeaders: []string{CorrelationHeader},
		MaxAge:         300,
	})
}
