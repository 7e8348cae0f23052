// Package models declares the application's entity types (User, Post and
// Comment) on top of the generic odm layer. Each entity registers its
// backing collection, its declarative validation rules and its field
// transforms, and exposes its domain actions as atomic partial updates.
package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/odm"
	"github.com/go-playground/validator/v10"
)

// Deps carries everything the entity types need from the outside: the store
// handle, the password digest function and the public-URL derivation for
// uploaded files. Nothing here is ambient; the registry owns its handles.
type Deps struct {
	Store        *docstore.Store
	HashPassword func(password string) string
	FileURL      func(filename string) string
}

// Models is the registry of all entity collections over one store.
type Models struct {
	Users    *Users
	Posts    *Posts
	Comments *Comments
}

// New builds the three collections and declares their indexes: users.nickname
// is unique; the owner/reference fields get lookup indexes.
func New(ctx context.Context, deps Deps) (*Models, error) {
	v := newValidator()

	users, err := newUsers(ctx, deps, v)
	if err != nil {
		return nil, err
	}
	posts, err := newPosts(ctx, deps, v)
	if err != nil {
		return nil, err
	}
	comments, err := newComments(ctx, deps, v)
	if err != nil {
		return nil, err
	}

	m := &Models{Users: users, Posts: posts, Comments: comments}

	type index struct {
		coll   *odm.Collection
		field  string
		unique bool
	}
	for _, idx := range []index{
		{users.c, "nickname", true},
		{posts.c, "userId", false},
		{comments.c, "userId", false},
		{comments.c, "postId", false},
	} {
		if err := idx.coll.EnsureIndex(ctx, idx.field, idx.unique); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// newValidator reports violations under the field's JSON name, matching the
// shape payloads travel in.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// toDocument converts a typed payload struct into the schemaless form the
// engine persists.
func toDocument(payload any) (docstore.Document, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	doc := docstore.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// validateAs builds the engine-side validation gate for one payload type.
// The candidate document is strictly decoded into T, so an unknown field is
// a validation failure rather than something persisted silently, and then
// checked against T's declared rules.
func validateAs[T any](v *validator.Validate) odm.ValidateFunc {
	return func(doc docstore.Document) *odm.ValidationError {
		raw, err := json.Marshal(doc)
		if err != nil {
			return &odm.ValidationError{Fields: map[string][]string{"payload": {err.Error()}}}
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()

		var payload T
		if err := dec.Decode(&payload); err != nil {
			return &odm.ValidationError{Fields: map[string][]string{"payload": {err.Error()}}}
		}

		if err := v.Struct(payload); err != nil {
			verrs, ok := err.(validator.ValidationErrors)
			if !ok {
				return &odm.ValidationError{Fields: map[string][]string{"payload": {err.Error()}}}
			}
			fields := make(map[string][]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = append(fields[fe.Field()], ruleMessage(fe))
			}
			return &odm.ValidationError{Fields: fields}
		}
		return nil
	}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed rule %s=%s", fe.Tag(), fe.Param())
		}
		return "failed rule " + fe.Tag()
	}
}

func stringAttr(e *odm.Entity, field string) string {
	s, _ := e.Get(field).(string)
	return s
}
