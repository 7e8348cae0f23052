package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/server/models"
)

// getUserPosts lists a user's posts, paginated. The user is looked up first
// so an unknown profile yields a not-found rather than an empty page.
func (s *Server) getUserPosts(w http.ResponseWriter, r *http.Request) {
	user, err := s.models.Users.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeModelError(w, err)
		return
	}

	page, perPage := pageParams(r)
	posts, err := s.models.Posts.Paginate(r.Context(), docstore.Filter{"userId": user.ID()}, page, perPage)
	if err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, projectPosts(posts))
}

// getPost shows one post.
func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.models.Posts.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeModelError(w, err)
		return
	}
	ok(w, map[string]any{"post": post.Project()})
}

// postPost publishes a new post from a multipart form with a required file
// part and an optional text field that becomes the first comment.
func (s *Server) postPost(w http.ResponseWriter, r *http.Request) {
	actor := currentUser(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, err.Error())
		return
	}

	filename, err := s.saveUpload(r, "file")
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	text := r.FormValue("text")

	payload := models.PostPayload{
		File:   filename,
		UserID: actor.ID(),
		Feedback: models.Feedback{
			Likes: []string{},
			Saves: []string{},
		},
	}
	if text != "" {
		payload.Feedback.Comments = 1
	}

	post, err := s.models.Posts.Create(r.Context(), payload)
	if err != nil {
		writeModelError(w, err)
		return
	}

	if text != "" {
		_, err = s.models.Comments.Create(r.Context(), models.CommentPayload{
			Text:   text,
			PostID: post.ID(),
			UserID: actor.ID(),
		})
		if err != nil {
			writeModelError(w, err)
			return
		}
	}

	if err := actor.IncrementCounter(r.Context(), "posts"); err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, map[string]any{"post": post.Project()})
}

type postUpdate struct {
	File *string `json:"file"`
}

// putPost replaces the post's file. Like every update the payload is passed
// through without validation rules.
func (s *Server) putPost(w http.ResponseWriter, r *http.Request) {
	var upd postUpdate

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			badRequest(w, err.Error())
			return
		}
		filename, err := s.saveUpload(r, "file")
		if err != nil {
			unprocessable(w, err.Error())
			return
		}
		if filename != "" {
			upd.File = &filename
		}
	} else if err := decodeJSON(r, &upd); err != nil {
		badRequest(w, err.Error())
		return
	}

	doc := docstore.Document{}
	if upd.File != nil {
		doc["file"] = *upd.File
	}

	post, err := s.models.Posts.Update(r.Context(), docstore.ByID(chi.URLParam(r, "id")), doc)
	if err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, map[string]any{"post": post.Project()})
}

// deletePost removes the acting user's own post and lowers their post
// counter. Deleting someone else's post is rejected.
func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	actor := currentUser(r)

	post, err := s.models.Posts.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeModelError(w, err)
		return
	}

	if post.UserID() != actor.ID() {
		unauthorized(w)
		return
	}

	if err := post.Remove(r.Context()); err != nil {
		writeModelError(w, err)
		return
	}

	if err := actor.DecrementCounter(r.Context(), "posts"); err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, nil)
}

// postLike adds the acting user to the post's like set.
func (s *Server) postLike(w http.ResponseWriter, r *http.Request) {
	s.postFeedback(w, r, (*models.Post).Like)
}

// postUnlike removes the acting user from the post's like set.
func (s *Server) postUnlike(w http.ResponseWriter, r *http.Request) {
	s.postFeedback(w, r, (*models.Post).Unlike)
}

// postSave adds the acting user to the post's save set.
func (s *Server) postSave(w http.ResponseWriter, r *http.Request) {
	s.postFeedback(w, r, (*models.Post).Save)
}

// postUnsave removes the acting user from the post's save set.
func (s *Server) postUnsave(w http.ResponseWriter, r *http.Request) {
	s.postFeedback(w, r, (*models.Post).Unsave)
}

func (s *Server) postFeedback(w http.ResponseWriter, r *http.Request, action func(*models.Post, context.Context, string) error) {
	post, err := s.models.Posts.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeModelError(w, err)
		return
	}

	if err := action(post, r.Context(), currentUser(r).ID()); err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, nil)
}

func projectPosts(posts []*models.Post) []docstore.Document {
	out := make([]docstore.Document, len(posts))
	for i, p := range posts {
		out[i] = p.Project()
	}
	return out
}
