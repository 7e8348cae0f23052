package models

import (
	"context"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/odm"
	"github.com/go-playground/validator/v10"
)

// CommentPayload is the create payload for a Comment.
type CommentPayload struct {
	Text   string `json:"text" validate:"required,min=1,max=5000"`
	PostID string `json:"postId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

// Comments is the Comment collection gateway. Comments have no field
// transforms or hidden fields; they exercise the plain engine path.
type Comments struct {
	c *odm.Collection
}

func newComments(ctx context.Context, deps Deps, v *validator.Validate) (*Comments, error) {
	schema := &odm.Schema{
		Collection: "comments",
		Dates:      []string{docstore.FieldCreatedAt, docstore.FieldUpdatedAt},
		Validate:   validateAs[CommentPayload](v),
	}

	c, err := odm.NewCollection(ctx, deps.Store, schema)
	if err != nil {
		return nil, err
	}
	return &Comments{c: c}, nil
}

// Comment is one comment entity.
type Comment struct {
	*odm.Entity
	m *Comments
}

func (m *Comments) wrap(e *odm.Entity) *Comment { return &Comment{Entity: e, m: m} }

// Create validates and persists a new comment.
func (m *Comments) Create(ctx context.Context, payload CommentPayload) (*Comment, error) {
	doc, err := toDocument(payload)
	if err != nil {
		return nil, &odm.DatabaseError{Err: err}
	}
	e, err := m.c.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	return m.wrap(e), nil
}

// Find returns the single comment matching filter.
func (m *Comments) Find(ctx context.Context, filter docstore.Filter) (*Comment, error) {
	e, err := m.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return m.wrap(e), nil
}

// FindByID returns the comment with the given identifier.
func (m *Comments) FindByID(ctx context.Context, id string) (*Comment, error) {
	return m.Find(ctx, docstore.ByID(id))
}

// Paginate returns one page of comments matching filter, oldest first.
func (m *Comments) Paginate(ctx context.Context, filter docstore.Filter, page, perPage int) ([]*Comment, error) {
	es, err := m.c.Query(filter).Paginate(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	comments := make([]*Comment, len(es))
	for i, e := range es {
		comments[i] = m.wrap(e)
	}
	return comments, nil
}

// PostID returns the identifier of the commented post.
func (c *Comment) PostID() string { return stringAttr(c.Entity, "postId") }

// UserID returns the identifier of the comment's author.
func (c *Comment) UserID() string { return stringAttr(c.Entity, "userId") }
