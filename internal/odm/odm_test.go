package odm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
)

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()

	store, err := docstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// accountSchema exercises every schema feature: a setter, a getter, a
// computed field, date casting, validation and a hidden field.
func accountSchema() *Schema {
	return &Schema{
		Collection: "accounts",
		Hidden:     []string{"secret"},
		Dates:      []string{docstore.FieldCreatedAt, docstore.FieldUpdatedAt},
		Setters: map[string]SetterFunc{
			"secret": func(value any) any {
				s, _ := value.(string)
				return "hashed:" + s
			},
		},
		Getters: map[string]GetterFunc{
			"name": func(value any) any {
				s, _ := value.(string)
				return strings.ToUpper(s)
			},
		},
		Computed: map[string]ComputedFunc{
			"greeting": func(p docstore.Document) any {
				name, _ := p["name"].(string)
				return "hello " + name
			},
		},
		Validate: func(payload docstore.Document) *ValidationError {
			name, _ := payload["name"].(string)
			if name == "" {
				return &ValidationError{Fields: map[string][]string{
					"name": {"The name field is required."},
				}}
			}
			return nil
		},
	}
}

func newAccounts(t *testing.T) *Collection {
	t.Helper()

	c, err := NewCollection(context.Background(), newTestStore(t), accountSchema())
	require.NoError(t, err)
	return c
}

func TestEntity_SetAppliesSetter(t *testing.T) {
	c := newAccounts(t)

	e := c.New()
	e.Set("secret", "pw")
	e.Set("name", "ada")

	assert.Equal(t, "hashed:pw", e.Get("secret"))
	assert.Equal(t, "ada", e.Get("name"))
}

func TestEntity_Project(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	e, err := c.Create(ctx, docstore.Document{"name": "ada", "secret": "pw"})
	require.NoError(t, err)

	p := e.Project()

	// Getter applied, computed appended, hidden removed.
	assert.Equal(t, "ADA", p["name"])
	assert.Equal(t, "hello ADA", p["greeting"])
	assert.NotContains(t, p, "secret")

	// The raw attribute is still reachable through Get.
	assert.Equal(t, "hashed:pw", e.Get("secret"))

	// Date-flagged fields come out as time.Time.
	assert.IsType(t, time.Time{}, p[docstore.FieldCreatedAt])
	assert.IsType(t, time.Time{}, p[docstore.FieldUpdatedAt])
}

func TestEntity_ProjectVisibleWins(t *testing.T) {
	schema := accountSchema()
	schema.Visible = []string{"name"}

	c, err := NewCollection(context.Background(), newTestStore(t), schema)
	require.NoError(t, err)

	e, err := c.Create(context.Background(), docstore.Document{"name": "ada", "secret": "pw"})
	require.NoError(t, err)

	p := e.Project()
	assert.Equal(t, docstore.Document{"name": "ADA"}, p)
}

func TestCollection_Create(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	e, err := c.Create(ctx, docstore.Document{"name": "ada", "secret": "pw"})
	require.NoError(t, err)

	assert.True(t, e.Persisted())
	assert.NotEmpty(t, e.ID())

	found, err := c.FindByID(ctx, e.ID())
	require.NoError(t, err)
	assert.Equal(t, "ada", found.Get("name"))
	assert.Equal(t, "hashed:pw", found.Get("secret"))
}

func TestCollection_CreateIgnoresClientAssignedFields(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	e, err := c.Create(ctx, docstore.Document{
		"name":                  "ada",
		docstore.FieldID:        "client-id",
		docstore.FieldCreatedAt: "1999-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	assert.NotEqual(t, "client-id", e.ID())

	created, ok := e.Get(docstore.FieldCreatedAt).(time.Time)
	require.True(t, ok)
	assert.Greater(t, created.Year(), 1999)
}

func TestCollection_CreateValidationFailure(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	_, err := c.Create(ctx, docstore.Document{"secret": "pw"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The name field is required."}, verr.Fields["name"])

	// Nothing was persisted.
	entities, err := c.Query(docstore.Filter{}).All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestCollection_CreateUniqueViolation(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	require.NoError(t, c.EnsureIndex(ctx, "name", true))

	_, err := c.Create(ctx, docstore.Document{"name": "ada"})
	require.NoError(t, err)

	_, err = c.Create(ctx, docstore.Document{"name": "ada"})

	var derr *DatabaseError
	assert.ErrorAs(t, err, &derr)
}

func TestCollection_FindNotFound(t *testing.T) {
	c := newAccounts(t)

	_, err := c.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollection_FindFirstMatchWins(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	first, err := c.Create(ctx, docstore.Document{"name": "ada", "tag": "dup"})
	require.NoError(t, err)
	_, err = c.Create(ctx, docstore.Document{"name": "eve", "tag": "dup"})
	require.NoError(t, err)

	found, err := c.Find(ctx, docstore.Filter{"tag": "dup"})
	require.NoError(t, err)
	assert.Equal(t, first.ID(), found.ID())
}

func TestCollection_Update(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	e, err := c.Create(ctx, docstore.Document{"name": "ada", "secret": "pw"})
	require.NoError(t, err)

	updated, err := c.Update(ctx, docstore.ByID(e.ID()), docstore.Document{
		"name":   "lovelace",
		"secret": "new",
	})
	require.NoError(t, err)

	assert.Equal(t, "lovelace", updated.Get("name"))
	// The setter ran on the way through.
	assert.Equal(t, "hashed:new", updated.Get("secret"))
}

func TestCollection_UpdateSkipsValidation(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	e, err := c.Create(ctx, docstore.Document{"name": "ada"})
	require.NoError(t, err)

	// An empty name fails Create's rules, but Update accepts it.
	updated, err := c.Update(ctx, docstore.ByID(e.ID()), docstore.Document{"name": ""})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Get("name"))
}

func TestCollection_UpdateEmptyPayload(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	e, err := c.Create(ctx, docstore.Document{"name": "ada"})
	require.NoError(t, err)

	updated, err := c.Update(ctx, docstore.ByID(e.ID()), docstore.Document{})
	require.NoError(t, err)
	assert.Equal(t, "ada", updated.Get("name"))
}

func TestCollection_UpdateNotFound(t *testing.T) {
	c := newAccounts(t)

	_, err := c.Update(context.Background(), docstore.ByID("missing"), docstore.Document{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollection_UpdateIgnoresClientAssignedFields(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	e, err := c.Create(ctx, docstore.Document{"name": "ada"})
	require.NoError(t, err)

	updated, err := c.Update(ctx, docstore.ByID(e.ID()), docstore.Document{
		docstore.FieldID: "hijack",
		"name":           "eve",
	})
	require.NoError(t, err)
	assert.Equal(t, e.ID(), updated.ID())
}

func TestEntity_Remove(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	e, err := c.Create(ctx, docstore.Document{"name": "ada"})
	require.NoError(t, err)

	require.NoError(t, e.Remove(ctx))

	_, err = c.FindByID(ctx, e.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, e.Remove(ctx), ErrNotFound)
}

func TestCollection_Apply(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	e, err := c.Create(ctx, docstore.Document{"name": "ada", "tags": []string{}})
	require.NoError(t, err)

	err = c.Apply(ctx, docstore.ByID(e.ID()), docstore.Update{
		AddToSet: map[string]any{"tags": "pioneer"},
	})
	require.NoError(t, err)

	// The in-memory entity is stale until re-fetched.
	assert.Empty(t, e.Get("tags"))

	fresh, err := c.FindByID(ctx, e.ID())
	require.NoError(t, err)
	assert.Equal(t, []any{"pioneer"}, fresh.Get("tags"))
}

func TestQuery_Paginate(t *testing.T) {
	c := newAccounts(t)
	ctx := context.Background()

	names := []string{"a1", "a2", "a3", "a4", "a5"}
	for _, n := range names {
		_, err := c.Create(ctx, docstore.Document{"name": n, "kind": "page"})
		require.NoError(t, err)
	}

	page, err := c.Query(docstore.Filter{"kind": "page"}).Paginate(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a3", page[0].Get("name"))
	assert.Equal(t, "a4", page[1].Get("name"))

	// Page numbers below one clamp to the first page.
	page, err = c.Query(docstore.Filter{"kind": "page"}).Paginate(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a1", page[0].Get("name"))

	// A page past the end is empty, not an error.
	page, err = c.Query(docstore.Filter{"kind": "page"}).Paginate(ctx, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string][]string{
		"nickname": {"required"},
		"name":     {"required"},
	}}
	assert.Equal(t, "validation failed on name, nickname", err.Error())
}
