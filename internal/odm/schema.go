package odm

import (
	"time"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
)

// SetterFunc transforms a value before it is written into an entity's
// attributes (for example, hashing a password).
type SetterFunc func(value any) any

// GetterFunc transforms a stored value on projection (for example, deriving
// a public URL from a stored filename).
type GetterFunc func(value any) any

// ComputedFunc produces a field that is not stored at all. It receives the
// in-progress projection, so it may derive its value from already-projected
// sibling fields.
type ComputedFunc func(projection docstore.Document) any

// ValidateFunc checks a sanitized create payload against the entity's
// declarative rules. A nil return means the payload may be persisted.
type ValidateFunc func(payload docstore.Document) *ValidationError

// Schema declares one entity type: its backing collection, its field
// transforms and its visibility rules. Transforms are registered explicitly
// per field; there is no reflection or name-based dispatch at runtime.
type Schema struct {
	// Collection is the name of the backing document collection.
	Collection string

	// Setters and Getters are per-field transform tables, resolved once at
	// registration. A field without an entry passes through unchanged.
	Setters map[string]SetterFunc
	Getters map[string]GetterFunc

	// Computed lists derived fields appended to every projection after the
	// stored fields have been transformed.
	Computed map[string]ComputedFunc

	// Dates flags stored fields to be passed through date casting on
	// projection when no custom getter claims them.
	Dates []string

	// Visible is an allow-list of projected fields; Hidden is a deny-list.
	// They are mutually exclusive and Visible wins when both are set.
	Visible []string
	Hidden  []string

	// Validate gates Create. Update intentionally does not run it; see
	// Collection.Update.
	Validate ValidateFunc
}

func (s *Schema) setterFor(field string) SetterFunc {
	if s.Setters == nil {
		return nil
	}
	return s.Setters[field]
}

func (s *Schema) getterFor(field string) GetterFunc {
	if s.Getters == nil {
		return nil
	}
	return s.Getters[field]
}

func (s *Schema) isDate(field string) bool {
	for _, d := range s.Dates {
		if d == field {
			return true
		}
	}
	return false
}

// castDate normalizes a date-flagged value to time.Time where possible.
// Values the cast does not recognize pass through unchanged.
func castDate(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return value
}
