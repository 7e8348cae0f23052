package httpapi

import (
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/odm"
	"github.com/dmitrijs2005/instafeed/internal/server/models"
	"github.com/dmitrijs2005/instafeed/internal/server/uploads"
)

// getUsers lists users, paginated.
func (s *Server) getUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)

	users, err := s.models.Users.Paginate(r.Context(), docstore.Filter{}, page, perPage)
	if err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, projectUsers(users))
}

// getUser shows one user by identifier, falling back to nickname lookup so
// profile URLs work with either.
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")

	user, err := s.models.Users.FindByID(r.Context(), key)
	if errors.Is(err, odm.ErrNotFound) {
		user, err = s.models.Users.Find(r.Context(), docstore.Filter{"nickname": key})
	}
	if err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, map[string]any{"user": user.Project()})
}

// postUser registers a new user from a JSON or multipart payload and logs
// them straight in.
func (s *Server) postUser(w http.ResponseWriter, r *http.Request) {
	var payload models.UserPayload

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			badRequest(w, err.Error())
			return
		}
		payload.Name = r.FormValue("name")
		payload.Nickname = r.FormValue("nickname")
		payload.Password = r.FormValue("password")
		payload.About = r.FormValue("about")

		filename, err := s.saveUpload(r, "avatar")
		if err != nil {
			unprocessable(w, err.Error())
			return
		}
		if filename != "" {
			payload.Avatar = &filename
		}
	} else if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, err.Error())
		return
	}

	payload.Following = []string{}
	payload.Followers = []string{}
	payload.Counters = map[string]int64{"posts": 0}

	user, err := s.models.Users.Create(r.Context(), payload)
	if err != nil {
		writeModelError(w, err)
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

// userUpdate is the mutable subset of a user. Pointer fields distinguish
// "not sent" from an explicit value.
type userUpdate struct {
	Name     *string `json:"name"`
	Nickname *string `json:"nickname"`
	Password *string `json:"password"`
	About    *string `json:"about"`
	Avatar   *string `json:"avatar"`
}

func (u userUpdate) doc() docstore.Document {
	doc := docstore.Document{}
	if u.Name != nil {
		doc["name"] = *u.Name
	}
	if u.Nickname != nil {
		doc["nickname"] = *u.Nickname
	}
	if u.Password != nil {
		doc["password"] = *u.Password
	}
	if u.About != nil {
		doc["about"] = *u.About
	}
	if u.Avatar != nil {
		if *u.Avatar == "" || *u.Avatar == "null" {
			doc["avatar"] = nil
		} else {
			doc["avatar"] = *u.Avatar
		}
	}
	return doc
}

// putUser updates the authenticated user's own profile. The engine applies
// the password setter on the way through, so a changed password is re-hashed.
func (s *Server) putUser(w http.ResponseWriter, r *http.Request) {
	actor := currentUser(r)

	var upd userUpdate

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			badRequest(w, err.Error())
			return
		}
		upd = multipartUserUpdate(r)

		filename, err := s.saveUpload(r, "avatar")
		if err != nil {
			unprocessable(w, err.Error())
			return
		}
		if filename != "" {
			upd.Avatar = &filename
		}
	} else if err := decodeJSON(r, &upd); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := s.models.Users.Update(r.Context(), docstore.ByID(actor.ID()), upd.doc())
	if err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, map[string]any{"user": user.Project()})
}

func multipartUserUpdate(r *http.Request) userUpdate {
	var upd userUpdate
	get := func(field string) *string {
		values, present := r.MultipartForm.Value[field]
		if !present || len(values) == 0 {
			return nil
		}
		return &values[0]
	}
	upd.Name = get("name")
	upd.Nickname = get("nickname")
	upd.Password = get("password")
	upd.About = get("about")
	upd.Avatar = get("avatar")
	return upd
}

// postFollow makes the acting user follow the addressed one.
func (s *Server) postFollow(w http.ResponseWriter, r *http.Request) {
	if err := currentUser(r).Follow(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeModelError(w, err)
		return
	}
	ok(w, nil)
}

// postUnfollow removes both sides of the follow relation.
func (s *Server) postUnfollow(w http.ResponseWriter, r *http.Request) {
	if err := currentUser(r).Unfollow(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeModelError(w, err)
		return
	}
	ok(w, nil)
}

func projectUsers(users []*models.User) []docstore.Document {
	out := make([]docstore.Document, len(users))
	for i, u := range users {
		out[i] = u.Project()
	}
	return out
}

const maxUploadBytes = 32 << 20

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

// saveUpload stores the named file part, if present, under a fresh random
// name and returns that name. A missing part is not an error.
func (s *Server) saveUpload(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	filename := uploads.RandomFilename(header.Filename)
	if err := s.uploads.Save(r.Context(), filename, file); err != nil {
		return "", err
	}
	return filename, nil
}
