package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/server/auth"
	"github.com/dmitrijs2005/instafeed/internal/server/models"
)

type loginRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// postLogin authenticates by nickname and password and returns the user with
// a bearer token. A wrong nickname and a wrong password are indistinguishable
// to the caller.
func (s *Server) postLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := s.models.Users.Find(r.Context(), docstore.Filter{"nickname": req.Nickname})
	if err != nil || !user.CheckPassword(req.Password) {
		notFound(w, map[string]any{"errors": map[string]string{"type": "UserNotFound"}})
		return
	}

	token, err := s.createToken(user)
	if err != nil {
		respond(w, http.StatusInternalServerError, "error", nil)
		return
	}

	ok(w, map[string]any{
		"user":  user.Project(),
		"token": token,
	})
}

// createToken issues the "Bearer ..." credential for a user.
func (s *Server) createToken(user *models.User) (string, error) {
	token, err := auth.GenerateToken(user.ID(), []byte(s.cfg.AppSecret), s.cfg.TokenValidityDuration)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

// decodeJSON strictly decodes a request body; unknown fields are an error,
// never something to pass along silently.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
