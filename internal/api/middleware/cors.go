package middleware

import (
	"github.com/go-chi/cors"
)

// NewCORS builds the CORS policy for the API. The surface is read-mostly:
// GET for performance queries, POST for the key-guarded maintenance
// actions, which also need the API key headers allowed through preflight.
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			"X-API-Key",
			"X-Time-Token",
		},
		ExposedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
