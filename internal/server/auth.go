package server

import (
	"log"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthMiddleware enforces the configured ingest token. With no token
// configured the wrapped handler is open; otherwise the request must carry
// the token as a Bearer header or ?token= query parameter.
func (s *PanelServer) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash, err := s.cfg.IngestTokenHash(r.Context())
		if err != nil {
			log.Printf("Auth: failed to load token hash: %v", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if hash == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}

		if token == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="Studio"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
