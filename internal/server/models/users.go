package models

import (
	"context"
	"crypto/subtle"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/odm"
	"github.com/go-playground/validator/v10"
)

// UserPayload is the create payload for a User. The password is hashed by the
// field setter before it ever reaches the store; the stored digest is hidden
// from every projection.
type UserPayload struct {
	Name      string           `json:"name" validate:"required,min=3,max=250"`
	Nickname  string           `json:"nickname" validate:"required,min=2,max=250"`
	Password  string           `json:"password" validate:"required,min=2"`
	About     string           `json:"about" validate:"omitempty,max=5000"`
	Avatar    *string          `json:"avatar"`
	Following []string         `json:"following"`
	Followers []string         `json:"followers"`
	Counters  map[string]int64 `json:"counters"`
}

// Users is the User collection gateway.
type Users struct {
	c    *odm.Collection
	hash func(string) string
}

func newUsers(ctx context.Context, deps Deps, v *validator.Validate) (*Users, error) {
	m := &Users{hash: deps.HashPassword}

	schema := &odm.Schema{
		Collection: "users",
		Hidden:     []string{"password"},
		Dates:      []string{docstore.FieldCreatedAt, docstore.FieldUpdatedAt},
		Setters: map[string]odm.SetterFunc{
			"password": func(value any) any {
				password, _ := value.(string)
				return deps.HashPassword(password)
			},
		},
		Getters: map[string]odm.GetterFunc{
			"avatar": func(value any) any {
				filename, _ := value.(string)
				if filename == "" {
					return nil
				}
				return deps.FileURL(filename)
			},
		},
		Validate: validateAs[UserPayload](v),
	}

	c, err := odm.NewCollection(ctx, deps.Store, schema)
	if err != nil {
		return nil, err
	}
	m.c = c
	return m, nil
}

// User is one user entity with its domain actions.
type User struct {
	*odm.Entity
	m *Users
}

func (m *Users) wrap(e *odm.Entity) *User { return &User{Entity: e, m: m} }

func (m *Users) wrapAll(es []*odm.Entity) []*User {
	users := make([]*User, len(es))
	for i, e := range es {
		users[i] = m.wrap(e)
	}
	return users
}

// Create validates and persists a new user.
func (m *Users) Create(ctx context.Context, payload UserPayload) (*User, error) {
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

// Update partially updates users matching filter. Like every update it runs
// the field setters but not the validation rules.
func (m *Users) Update(ctx context.Context, filter docstore.Filter, payload docstore.Document) (*User, error) {
	e, err := m.c.Update(ctx, filter, payload)
	if err != nil {
		return nil, err
	}
	return m.wrap(e), nil
}

// Find returns the single user matching filter.
func (m *Users) Find(ctx context.Context, filter docstore.Filter) (*User, error) {
	e, err := m.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return m.wrap(e), nil
}

// FindByID returns the user with the given identifier.
func (m *Users) FindByID(ctx context.Context, id string) (*User, error) {
	return m.Find(ctx, docstore.ByID(id))
}

// All returns every user matching filter.
func (m *Users) All(ctx context.Context, filter docstore.Filter) ([]*User, error) {
	es, err := m.c.Query(filter).All(ctx)
	if err != nil {
		return nil, err
	}
	return m.wrapAll(es), nil
}

// Paginate returns one page of users matching filter.
func (m *Users) Paginate(ctx context.Context, filter docstore.Filter, page, perPage int) ([]*User, error) {
	es, err := m.c.Query(filter).Paginate(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	return m.wrapAll(es), nil
}

// Nickname returns the user's unique nickname.
func (u *User) Nickname() string { return stringAttr(u.Entity, "nickname") }

// CheckPassword recomputes the digest for the candidate and compares it to
// the stored one. Plaintext is never compared and never stored.
func (u *User) CheckPassword(candidate string) bool {
	stored := stringAttr(u.Entity, "password")
	digest := u.m.hash(candidate)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(digest)) == 1
}

// Follow adds this user to userID's followers, then userID to this user's
// following set. These are two separate atomic updates with no cross-document
// transaction: when the second fails the first has already committed, and
// that window is accepted.
func (u *User) Follow(ctx context.Context, userID string) error {
	err := u.m.c.Apply(ctx, docstore.ByID(userID), docstore.Update{
		AddToSet: map[string]any{"followers": u.ID()},
	})
	if err != nil {
		return err
	}
	return u.m.c.Apply(ctx, docstore.ByID(u.ID()), docstore.Update{
		AddToSet: map[string]any{"following": userID},
	})
}

// Unfollow removes both sides of the follow relation, mirroring Follow's
// two-step behavior.
func (u *User) Unfollow(ctx context.Context, userID string) error {
	err := u.m.c.Apply(ctx, docstore.ByID(userID), docstore.Update{
		Pull: map[string]any{"followers": u.ID()},
	})
	if err != nil {
		return err
	}
	return u.m.c.Apply(ctx, docstore.ByID(u.ID()), docstore.Update{
		Pull: map[string]any{"following": userID},
	})
}

// IncrementCounter bumps one named counter by one, atomically.
func (u *User) IncrementCounter(ctx context.Context, name string) error {
	return u.m.c.Apply(ctx, docstore.ByID(u.ID()), docstore.Update{
		Inc: map[string]int64{"counters." + name: 1},
	})
}

// DecrementCounter lowers one named counter by one, atomically.
func (u *User) DecrementCounter(ctx context.Context, name string) error {
	return u.m.c.Apply(ctx, docstore.ByID(u.ID()), docstore.Update{
		Inc: map[string]int64{"counters." + name: -1},
	})
}
