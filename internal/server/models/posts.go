package models

import (
	"context"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/odm"
	"github.com/go-playground/validator/v10"
)

// Feedback is the embedded reaction state of a post. Likes and saves are sets
// of user identifiers; Comments is a counter maintained by explicit
// increment/decrement calls, not a live aggregate.
type Feedback struct {
	Likes    []string `json:"likes"`
	Saves    []string `json:"saves"`
	Comments int64    `json:"comments"`
}

// PostPayload is the create payload for a Post.
type PostPayload struct {
	File     string   `json:"file" validate:"required"`
	UserID   string   `json:"userId" validate:"required"`
	Feedback Feedback `json:"feedback"`
}

// Posts is the Post collection gateway.
type Posts struct {
	c *odm.Collection
}

func newPosts(ctx context.Context, deps Deps, v *validator.Validate) (*Posts, error) {
	schema := &odm.Schema{
		Collection: "posts",
		Dates:      []string{docstore.FieldCreatedAt, docstore.FieldUpdatedAt},
		Getters: map[string]odm.GetterFunc{
			"file": func(value any) any {
				filename, _ := value.(string)
				return deps.FileURL(filename)
			},
		},
		Validate: validateAs[PostPayload](v),
	}

	c, err := odm.NewCollection(ctx, deps.Store, schema)
	if err != nil {
		return nil, err
	}
	return &Posts{c: c}, nil
}

// Post is one post entity with its domain actions.
type Post struct {
	*odm.Entity
	m *Posts
}

func (m *Posts) wrap(e *odm.Entity) *Post { return &Post{Entity: e, m: m} }

func (m *Posts) wrapAll(es []*odm.Entity) []*Post {
	posts := make([]*Post, len(es))
	for i, e := range es {
		posts[i] = m.wrap(e)
	}
	return posts
}

// Create validates and persists a new post.
func (m *Posts) Create(ctx context.Context, payload PostPayload) (*Post, error) {
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

// Update partially updates posts matching filter (setters yes, rules no).
func (m *Posts) Update(ctx context.Context, filter docstore.Filter, payload docstore.Document) (*Post, error) {
	e, err := m.c.Update(ctx, filter, payload)
	if err != nil {
		return nil, err
	}
	return m.wrap(e), nil
}

// Find returns the single post matching filter.
func (m *Posts) Find(ctx context.Context, filter docstore.Filter) (*Post, error) {
	e, err := m.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return m.wrap(e), nil
}

// FindByID returns the post with the given identifier.
func (m *Posts) FindByID(ctx context.Context, id string) (*Post, error) {
	return m.Find(ctx, docstore.ByID(id))
}

// Paginate returns one page of posts matching filter, in insertion order.
func (m *Posts) Paginate(ctx context.Context, filter docstore.Filter, page, perPage int) ([]*Post, error) {
	es, err := m.c.Query(filter).Paginate(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	return m.wrapAll(es), nil
}

// UserID returns the identifier of the post's owner.
func (p *Post) UserID() string { return stringAttr(p.Entity, "userId") }

// Like adds userID to the post's like set, atomically.
func (p *Post) Like(ctx context.Context, userID string) error {
	return p.m.c.Apply(ctx, docstore.ByID(p.ID()), docstore.Update{
		AddToSet: map[string]any{"feedback.likes": userID},
	})
}

// Unlike removes userID from the post's like set, atomically.
func (p *Post) Unlike(ctx context.Context, userID string) error {
	return p.m.c.Apply(ctx, docstore.ByID(p.ID()), docstore.Update{
		Pull: map[string]any{"feedback.likes": userID},
	})
}

// Save adds userID to the post's save set, atomically.
func (p *Post) Save(ctx context.Context, userID string) error {
	return p.m.c.Apply(ctx, docstore.ByID(p.ID()), docstore.Update{
		AddToSet: map[string]any{"feedback.saves": userID},
	})
}

// Unsave removes userID from the post's save set, atomically.
func (p *Post) Unsave(ctx context.Context, userID string) error {
	return p.m.c.Apply(ctx, docstore.ByID(p.ID()), docstore.Update{
		Pull: map[string]any{"feedback.saves": userID},
	})
}

// IncrementComments bumps the comment counter; callers invoke it alongside
// comment creation to keep the counter consistent.
func (p *Post) IncrementComments(ctx context.Context) error {
	return p.m.c.Apply(ctx, docstore.ByID(p.ID()), docstore.Update{
		Inc: map[string]int64{"feedback.comments": 1},
	})
}

// DecrementComments lowers the comment counter on comment removal.
func (p *Post) DecrementComments(ctx context.Context) error {
	return p.m.c.Apply(ctx, docstore.ByID(p.ID()), docstore.Update{
		Inc: map[string]int64{"feedback.comments": -1},
	})
}
