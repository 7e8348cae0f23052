package odm

import (
	"context"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
)

// Query composes a filtered, paginated view over one collection and
// materializes matching rows into entities. Results come back in insertion
// order. Filter shape is the caller's responsibility; the query passes it
// through to the store unchanged.
type Query struct {
	coll   *Collection
	filter docstore.Filter
}

// Query starts a query, optionally narrowed by an initial filter.
func (c *Collection) Query(filter docstore.Filter) *Query {
	q := &Query{coll: c, filter: docstore.Filter{}}
	return q.Find(filter)
}

// Find narrows the working result set by additional filter conditions.
func (q *Query) Find(filter docstore.Filter) *Query {
	for field, value := range filter {
		q.filter[field] = value
	}
	return q
}

// All executes the query without a window and returns every match.
func (q *Query) All(ctx context.Context) ([]*Entity, error) {
	rows, err := q.coll.coll.Find(q.filter).All(ctx)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	return q.materialize(rows), nil
}

// Paginate returns the given 1-based page of perPage entities, skipping
// (page-1)*perPage matches. A page past the end yields an empty slice,
// never an error.
func (q *Query) Paginate(ctx context.Context, page, perPage int) ([]*Entity, error) {
	if page < 1 {
		page = 1
	}

	rows, err := q.coll.coll.Find(q.filter).
		Skip((page - 1) * perPage).
		Limit(perPage).
		All(ctx)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	return q.materialize(rows), nil
}

func (q *Query) materialize(rows []docstore.Document) []*Entity {
	entities := make([]*Entity, len(rows))
	for i, row := range rows {
		entities[i] = q.coll.NewUp(row)
	}
	return entities
}
