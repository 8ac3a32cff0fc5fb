package passwordless

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// BunLookup executes the pipeline's constrained lookup against a bun model.
// Every field of the decoded identity becomes an exact-equality predicate;
// nothing else widens or narrows the query.
type BunLookup[T any] struct {
	db bun.IDB
}

// NewBunLookup creates a lookup executor for records of type T.
func NewBunLookup[T any](db bun.IDB) *BunLookup[T] {
	return &BunLookup[T]{db: db}
}

// Find runs the constrained select and returns all matches. Cardinality is
// the pipeline's concern, so zero or many rows is not an error here.
func (l *BunLookup[T]) Find(ctx context.Context, identity *SubjectIdentity) ([]any, error) {
	var rows []T

	q := l.db.NewSelect().Model(&rows)
	for _, field := range identity.Fields() {
		value, _ := identity.Get(field)
		q = q.Where("?TableAlias.? = ?", bun.Ident(field), value)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "constrained subject lookup failed")
	}

	out := make([]any, len(rows))
	for i := range rows {
		out[i] = rows[i]
	}
	return out, nil
}

// NewUserLookup is the LookupExecutor for the bundled User model.
func NewUserLookup(db bun.IDB) LookupExecutor {
	return NewBunLookup[*User](db)
}
