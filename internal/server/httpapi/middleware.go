package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/instafeed/internal/server/auth"
	"github.com/dmitrijs2005/instafeed/internal/server/models"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// authenticate verifies the bearer token and loads the acting user onto the
// request context. A missing, invalid or orphaned token is a 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			unauthorized(w)
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")

		userID, err := auth.GetUserIDFromToken(tokenString, []byte(s.cfg.AppSecret))
		if err != nil {
			unauthorized(w)
			return
		}

		user, err := s.models.Users.FindByID(r.Context(), userID)
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), currentUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user loaded by the middleware.
func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(currentUserKey).(*models.User)
	return user
}
