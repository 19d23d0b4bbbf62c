package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"os"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/quantfolio/portfolio-performance-backend/internal/api/response"
)

// timeTokenTTL bounds how long a signed time token stays valid, limiting
// replay of captured requests.
const timeTokenTTL = 5 * time.Minute

// apiKeyFernetKey derives the fernet signing key from the shared API key.
func apiKeyFernetKey(apiKey string) *fernet.Key {
	sum := sha256.Sum256([]byte(apiKey))
	key := fernet.Key(sum)
	return &key
}

// GenerateTimeToken signs a fresh time token with the given API key. Callers
// send it in the X-Time-Token header next to the X-API-Key header.
func GenerateTimeToken(apiKey string) string {
	token, err := fernet.EncryptAndSign([]byte(time.Now().UTC().Format(time.RFC3339)), apiKeyFernetKey(apiKey))
	if err != nil {
		return ""
	}
	return string(token)
}

// APIKeyMiddleware guards mutating endpoints with the shared internal API
// key plus a short-lived fernet time token, both checked per request.
func APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := os.Getenv("INTERNAL_API_KEY")
		if expected == "" {
			response.Error(w, http.StatusInternalServerError, "internal server error", "Authentication not loaded")
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			response.Error(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			response.Error(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
			return
		}

		timeToken := r.Header.Get("X-Time-Token")
		if timeToken == "" {
			response.Error(w, http.StatusUnauthorized, "unauthorized", "Missing Time token")
			return
		}

		payload := fernet.VerifyAndDecrypt([]byte(timeToken), timeTokenTTL, []*fernet.Key{apiKeyFernetKey(expected)})
		if payload == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized", "Time token is invalid or expired")
			return
		}

		next.ServeHTTP(w, r)
	})
}
