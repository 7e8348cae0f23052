package docstore

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Filter selects documents by field value. Each entry is an equality match
// unless the value was built with In. Dotted keys address embedded fields,
// e.g. "feedback.comments".
//
// The store does not second-guess filter shape beyond rejecting unsafe field
// names; a filter that matches nothing is simply an empty result.
type Filter map[string]any

// ByID is shorthand for a single-document filter on the identifier field.
func ByID(id string) Filter {
	return Filter{FieldID: id}
}

type inValues struct {
	values []any
}

// In matches documents whose field equals any of the given values.
func In[T any](values ...T) any {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return inValues{values: vs}
}

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// fieldExpr returns the SQL expression addressing one document field.
func fieldExpr(field string) (string, error) {
	if field == FieldID {
		return "id", nil
	}
	if field == FieldCreatedAt {
		return "created_at", nil
	}
	if field == FieldUpdatedAt {
		return "updated_at", nil
	}
	if !fieldRe.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return fmt.Sprintf("json_extract(doc, '$.%s')", field), nil
}

// where renders the filter as a WHERE clause. Keys are sorted so the same
// filter always produces the same SQL.
func (f Filter) where() (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, k := range keys {
		expr, err := fieldExpr(k)
		if err != nil {
			return "", nil, err
		}

		switch v := f[k].(type) {
		case inValues:
			if len(v.values) == 0 {
				// Empty set matches nothing.
				conds = append(conds, "0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(v.values)), ", ")
			conds = append(conds, fmt.Sprintf("%s IN (%s)", expr, placeholders))
			args = append(args, v.values...)
		default:
			conds = append(conds, expr+" = ?")
			args = append(args, v)
		}
	}

	return "WHERE " + strings.Join(conds, " AND "), args, nil
}
