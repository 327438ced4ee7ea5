package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/brk3/healthdata/internal/logger"
)

// hashAPIKey creates a SHA256 hash of an API key for comparison
func hashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return fmt.Sprintf("%x", hash)
}

// truncateHash returns the first 16 chars of a hash for logging
func truncateHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}

// apiKeyMiddleware requires a bearer API key when one is configured.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	if s.cfg.APIKey == "" {
		return next
	}
	want := hashAPIKey(s.cfg.APIKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		got := hashAPIKey(token)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			logger.Warn("Rejected API key", "key_hash", truncateHash(got), "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
