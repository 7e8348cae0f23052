// Package docstore implements a small embedded document store on top of
// SQLite. Each collection is one table holding schemaless JSON documents plus
// an identifier column and creation/update timestamps maintained by the store.
//
// The store serializes writes through a single connection, so every Update
// call (including set-membership and counter operations, see update.go) is a
// single atomic statement.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Document is a schemaless record keyed by field name. Documents read back
// from a collection always carry "id", "createdAt" and "updatedAt".
type Document = map[string]any

// Reserved field names managed by the store itself. They live in dedicated
// columns, never inside the JSON payload.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store owns the underlying SQLite handle and hands out collections.
// Construct it once at startup and inject it; there is no package-level state.
type Store struct {
	db *sql.DB

	mu          sync.Mutex
	collections map[string]*Collection
}

// Open opens (or creates) the database at dsn. Use ":memory:" in tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", dsn, err)
	}

	// One connection keeps the single-writer guarantee that partial updates
	// rely on, and keeps ":memory:" databases from silently forking.
	db.SetMaxOpenConns(1)

	return &Store{db: db, collections: make(map[string]*Collection)}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Collection returns the named collection, creating its table on first use.
func (s *Store) Collection(ctx context.Context, name string) (*Collection, error) {
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("docstore: invalid collection name %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (
			id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`, name)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("docstore: create collection %s: %w", name, err)
	}

	c := &Collection{name: name, db: s.db}
	s.collections[name] = c
	return c, nil
}

// Collection is a named set of documents backed by one table.
type Collection struct {
	name string
	db   *sql.DB
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// EnsureIndex creates an index over one document field, optionally unique.
// Inserting a document that violates a unique index fails with the driver's
// constraint error.
func (c *Collection) EnsureIndex(ctx context.Context, field string, unique bool) error {
	if !nameRe.MatchString(field) {
		return fmt.Errorf("docstore: invalid index field %q", field)
	}

	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}

	query := fmt.Sprintf(
		`CREATE %s IF NOT EXISTS %q ON %q (json_extract(doc, '$.%s'))`,
		kind, "idx_"+c.name+"_"+field, c.name, field)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("docstore: ensure index %s.%s: %w", c.name, field, err)
	}
	return nil
}

// Insert stores a new document. The identifier is taken from the document's
// "id" field; creation and update timestamps are assigned by the store. The
// returned document is the stored form, timestamps included.
func (c *Collection) Insert(ctx context.Context, doc Document) (Document, error) {
	id, _ := doc[FieldID].(string)
	if id == "" {
		return nil, fmt.Errorf("docstore: insert into %s: document has no id", c.name)
	}

	payload, err := marshalDoc(doc)
	if err != nil {
		return nil, fmt.Errorf("docstore: insert into %s: %w", c.name, err)
	}

	now := time.Now().UTC()

	query := fmt.Sprintf(`INSERT INTO %q (id, doc, created_at, updated_at) VALUES (?, ?, ?, ?)`, c.name)
	if _, err := c.db.ExecContext(ctx, query, id, payload, now, now); err != nil {
		return nil, err
	}

	stored := Document{}
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("docstore: insert into %s: %w", c.name, err)
	}
	stored[FieldID] = id
	stored[FieldCreatedAt] = now
	stored[FieldUpdatedAt] = now
	return stored, nil
}

// ErrNoDocument is returned by FindOne when nothing matches the filter.
var ErrNoDocument = sql.ErrNoRows

// FindOne returns the first document matching filter in insertion order,
// or ErrNoDocument.
func (c *Collection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	where, args, err := filter.where()
	if err != nil {
		return nil, fmt.Errorf("docstore: find in %s: %w", c.name, err)
	}

	query := fmt.Sprintf(
		`SELECT id, doc, created_at, updated_at FROM %q %s ORDER BY rowid LIMIT 1`,
		c.name, where)

	row := c.db.QueryRowContext(ctx, query, args...)
	doc, err := scanDoc(row.Scan)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Find starts a cursor over all documents matching filter.
func (c *Collection) Find(filter Filter) *Cursor {
	return &Cursor{coll: c, filter: filter}
}

// Update applies upd to every document matching filter as one SQL statement
// and bumps updatedAt. It returns the number of affected documents.
func (c *Collection) Update(ctx context.Context, filter Filter, upd Update) (int64, error) {
	where, whereArgs, err := filter.where()
	if err != nil {
		return 0, fmt.Errorf("docstore: update %s: %w", c.name, err)
	}

	expr, exprArgs, err := upd.build()
	if err != nil {
		return 0, fmt.Errorf("docstore: update %s: %w", c.name, err)
	}

	query := fmt.Sprintf(`UPDATE %q SET doc = %s, updated_at = ? %s`, c.name, expr, where)

	args := append(exprArgs, time.Now().UTC())
	args = append(args, whereArgs...)

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Remove deletes every document matching filter and returns the removed count.
func (c *Collection) Remove(ctx context.Context, filter Filter) (int64, error) {
	where, args, err := filter.where()
	if err != nil {
		return 0, fmt.Errorf("docstore: remove from %s: %w", c.name, err)
	}

	res, err := c.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q %s`, c.name, where), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Cursor is a lazy, skip/limit-capable view over one Find call. Results come
// back in insertion (rowid) order.
type Cursor struct {
	coll   *Collection
	filter Filter
	skip   int
	limit  int
}

// Skip drops the first n matches.
func (cur *Cursor) Skip(n int) *Cursor {
	cur.skip = n
	return cur
}

// Limit caps the number of returned documents. Zero means no limit.
func (cur *Cursor) Limit(n int) *Cursor {
	cur.limit = n
	return cur
}

// All executes the cursor and returns every matching document. A filter or
// window that matches nothing yields an empty slice, not an error.
func (cur *Cursor) All(ctx context.Context) ([]Document, error) {
	where, args, err := cur.filter.where()
	if err != nil {
		return nil, fmt.Errorf("docstore: find in %s: %w", cur.coll.name, err)
	}

	query := fmt.Sprintf(
		`SELECT id, doc, created_at, updated_at FROM %q %s ORDER BY rowid`,
		cur.coll.name, where)

	if cur.limit > 0 || cur.skip > 0 {
		limit := cur.limit
		if limit == 0 {
			limit = -1 // SQLite: no limit, offset still applies
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, cur.skip)
	}

	rows, err := cur.coll.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDoc(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// marshalDoc serializes a document without the store-managed fields.
func marshalDoc(doc Document) ([]byte, error) {
	payload := make(Document, len(doc))
	for k, v := range doc {
		switch k {
		case FieldID, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		payload[k] = v
	}
	return json.Marshal(payload)
}

func scanDoc(scan func(dest ...any) error) (Document, error) {
	var (
		id        string
		payload   []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := scan(&id, &payload, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	doc := Document{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("docstore: corrupt document %s: %w", id, err)
	}
	doc[FieldID] = id
	doc[FieldCreatedAt] = createdAt
	doc[FieldUpdatedAt] = updatedAt
	return doc, nil
}
