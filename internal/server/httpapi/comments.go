package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/server/models"
)

// getPostComments lists a post's comments, oldest first, each with its
// author attached under "commiter". The authors are fetched in one query.
func (s *Server) getPostComments(w http.ResponseWriter, r *http.Request) {
	post, err := s.models.Posts.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeModelError(w, err)
		return
	}

	page, perPage := pageParams(r)
	comments, err := s.models.Comments.Paginate(r.Context(), docstore.Filter{"postId": post.ID()}, page, perPage)
	if err != nil {
		writeModelError(w, err)
		return
	}

	userIDs := make([]string, 0, len(comments))
	seen := map[string]bool{}
	for _, c := range comments {
		if id := c.UserID(); !seen[id] {
			seen[id] = true
			userIDs = append(userIDs, id)
		}
	}

	authors := map[string]docstore.Document{}
	if len(userIDs) > 0 {
		users, err := s.models.Users.All(r.Context(), docstore.Filter{docstore.FieldID: docstore.In(userIDs...)})
		if err != nil {
			writeModelError(w, err)
			return
		}
		for _, u := range users {
			authors[u.ID()] = u.Project()
		}
	}

	out := make([]docstore.Document, len(comments))
	for i, c := range comments {
		doc := c.Project()
		doc["commiter"] = authors[c.UserID()]
		out[i] = doc
	}

	ok(w, out)
}

type commentRequest struct {
	Text string `json:"text"`
}

// postComment adds a comment to a post and bumps its comment counter.
func (s *Server) postComment(w http.ResponseWriter, r *http.Request) {
	actor := currentUser(r)

	post, err := s.models.Posts.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeModelError(w, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	comment, err := s.models.Comments.Create(r.Context(), models.CommentPayload{
		Text:   req.Text,
		PostID: post.ID(),
		UserID: actor.ID(),
	})
	if err != nil {
		writeModelError(w, err)
		return
	}

	if err := post.IncrementComments(r.Context()); err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, map[string]any{"comment": comment.Project()})
}

// deleteComment removes the acting user's own comment and lowers the post's
// comment counter. Deleting someone else's comment is rejected.
func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	actor := currentUser(r)

	comment, err := s.models.Comments.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeModelError(w, err)
		return
	}

	if comment.UserID() != actor.ID() {
		unauthorized(w)
		return
	}

	if err := comment.Remove(r.Context()); err != nil {
		writeModelError(w, err)
		return
	}

	post, err := s.models.Posts.FindByID(r.Context(), comment.PostID())
	if err == nil {
		err = post.DecrementComments(r.Context())
	}
	if err != nil {
		writeModelError(w, err)
		return
	}

	ok(w, nil)
}
