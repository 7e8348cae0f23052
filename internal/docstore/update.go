package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Update describes a partial modification of matching documents. Every call
// executes as one SQL statement, so a single Update is atomic with respect to
// concurrent writers; there is no read-modify-write cycle.
//
// Set and Inc may be combined. AddToSet and Pull each must be the only
// operation in the call.
type Update struct {
	// Set replaces field values.
	Set Document
	// Inc adds a delta to a numeric field, treating a missing field as zero.
	Inc map[string]int64
	// AddToSet appends a value to an array field unless already present.
	// A missing or null field is treated as an empty array.
	AddToSet map[string]any
	// Pull removes every occurrence of a value from an array field.
	// A missing or null field is treated as an empty array.
	Pull map[string]any
}

var errUpdateShape = errors.New("AddToSet/Pull cannot be combined with other operations")

// build renders the document expression for the SET clause, wrapping the doc
// column in json_* calls. Placeholder arguments are returned in the order the
// placeholders appear in the expression.
func (u Update) build() (string, []any, error) {
	if len(u.AddToSet) > 0 || len(u.Pull) > 0 {
		if len(u.Set) > 0 || len(u.Inc) > 0 || len(u.AddToSet)+len(u.Pull) != 1 {
			return "", nil, errUpdateShape
		}
		for field, value := range u.AddToSet {
			return buildAddToSet(field, value)
		}
		for field, value := range u.Pull {
			return buildPull(field, value)
		}
	}

	if len(u.Set) == 0 && len(u.Inc) == 0 {
		return "", nil, errors.New("empty update")
	}

	expr := "doc"
	var args []any

	for _, field := range sortedKeys(u.Set) {
		fe, err := jsonPath(field)
		if err != nil {
			return "", nil, err
		}
		raw, err := json.Marshal(u.Set[field])
		if err != nil {
			return "", nil, fmt.Errorf("set %s: %w", field, err)
		}
		expr = fmt.Sprintf("json_set(%s, '%s', json(?))", expr, fe)
		args = append(args, string(raw))
	}

	for _, field := range sortedKeys(u.Inc) {
		fe, err := jsonPath(field)
		if err != nil {
			return "", nil, err
		}
		expr = fmt.Sprintf("json_set(%s, '%s', coalesce(json_extract(doc, '%s'), 0) + ?)", expr, fe, fe)
		args = append(args, u.Inc[field])
	}

	return expr, args, nil
}

// arrayExpr addresses the field's current array value, falling back to an
// empty array when the field is absent or null. json_each and json_insert
// both silently produce nothing on a non-array, so the fallback is what makes
// the first add-to-set on a fresh document land.
func arrayExpr(path string) string {
	return fmt.Sprintf("coalesce(json_extract(doc, '%s'), json('[]'))", path)
}

func buildAddToSet(field string, value any) (string, []any, error) {
	fe, err := jsonPath(field)
	if err != nil {
		return "", nil, err
	}
	arr := arrayExpr(fe)
	expr := fmt.Sprintf(
		`(CASE WHEN EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = ?)
			THEN doc ELSE json_set(doc, '%s', json_insert(%s, '$[#]', ?)) END)`,
		arr, fe, arr)
	return expr, []any{value, value}, nil
}

func buildPull(field string, value any) (string, []any, error) {
	fe, err := jsonPath(field)
	if err != nil {
		return "", nil, err
	}
	expr := fmt.Sprintf(
		`json_set(doc, '%s', (SELECT coalesce(json_group_array(json_each.value), json('[]'))
			FROM json_each(%s) WHERE json_each.value <> ?))`,
		fe, arrayExpr(fe))
	return expr, []any{value}, nil
}

// jsonPath validates a (possibly dotted) field name and returns its JSON path.
func jsonPath(field string) (string, error) {
	if !fieldRe.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return "$." + field, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
