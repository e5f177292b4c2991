package embedding

import (
	"context"
	"fmt"

	"github.com/spigell/resume-classifier/internal/catalog"
	"github.com/spigell/resume-classifier/internal/textutil"
)

// Entry is the embedding of one role description.
type Entry struct {
	Role   string
	Vector []float32
}

// Index holds one vector per catalog role, in catalog order. It is built once and
// never mutated, so it can be shared by concurrent scorers.
type Index struct {
	modelID string
	entries []Entry
	pos     map[string]int
}

// BuildIndex embeds every role description of the catalog.
func BuildIndex(ctx context.Context, e Embedder, c *catalog.Catalog) (*Index, error) {
	roles := c.Roles()
	texts := make([]string, len(roles))
	for i, r := range roles {
		texts[i] = textutil.Normalize(r.Description)
	}

	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed role descriptions: %w", err)
	}
	if len(vecs) != len(roles) {
		return nil, errUnexpectedCount(len(roles), len(vecs))
	}

	idx := &Index{
		modelID: e.ModelID(),
		entries: make([]Entry, len(roles)),
		pos:     make(map[string]int, len(roles)),
	}
	for i, r := range roles {
		idx.entries[i] = Entry{Role: r.ID, Vector: cloneVector(vecs[i])}
		idx.pos[r.ID] = i
	}
	return idx, nil
}

// ModelID identifies the embedder the index was built with.
func (i *Index) ModelID() string {
	return i.modelID
}

// Len returns the number of role vectors.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// Vector returns the vector of a role. Callers must not modify it.
func (i *Index) Vector(role string) ([]float32, bool) {
	if i == nil {
		return nil, false
	}
	p, ok := i.pos[role]
	if !ok {
		return nil, false
	}
	return i.entries[p].Vector, true
}

// Entries returns the role vectors in catalog order. Callers must not modify the vectors.
func (i *Index) Entries() []Entry {
	if i == nil {
		return nil
	}
	return append([]Entry(nil), i.entries...)
}
