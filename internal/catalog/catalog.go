// Package catalog loads the role reference data: one entry per job role with a
// description used for embeddings, a keyword list and a display category.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultCategory is reported for roles without a category and for labels the
// catalog does not know.
const DefaultCategory = "Uncategorized"

// Role is a single catalog entry.
type Role struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Category    string   `json:"category"`
}

// Catalog is an immutable, ordered set of roles. The order is the order of the
// keys in the source document and is used to break score ties.
type Catalog struct {
	roles []Role
	index map[string]int
}

type roleSpec struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Category    string   `json:"category"`
}

// Load reads a catalog from a JSON file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Source: path, Reason: "open catalog", Err: err}
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Source == "" {
			cfgErr.Source = path
		}
		return nil, err
	}
	return c, nil
}

// Parse decodes a JSON object keyed by role id, keeping the key order.
func Parse(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, &ConfigurationError{Reason: "decode catalog", Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &ConfigurationError{Reason: "catalog must be a JSON object keyed by role id"}
	}

	var roles []Role
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &ConfigurationError{Reason: "decode role id", Err: err}
		}
		id, _ := keyTok.(string)

		var spec roleSpec
		if err := dec.Decode(&spec); err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("decode role %q", id), Err: err}
		}
		roles = append(roles, Role{
			ID:          id,
			Description: spec.Description,
			Keywords:    spec.Keywords,
			Category:    spec.Category,
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, &ConfigurationError{Reason: "decode catalog", Err: err}
	}

	return New(roles)
}

// New validates the roles and builds a catalog from them.
func New(roles []Role) (*Catalog, error) {
	if len(roles) == 0 {
		return nil, &ConfigurationError{Reason: "catalog has no roles"}
	}

	c := &Catalog{
		roles: make([]Role, 0, len(roles)),
		index: make(map[string]int, len(roles)),
	}
	for _, role := range roles {
		id := strings.TrimSpace(role.ID)
		if id == "" {
			return nil, &ConfigurationError{Reason: "role id must not be empty"}
		}
		if _, dup := c.index[id]; dup {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate role %q", id)}
		}
		description := strings.TrimSpace(role.Description)
		if description == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("role %q has no description", id)}
		}
		category := strings.TrimSpace(role.Category)
		if category == "" {
			category = DefaultCategory
		}

		c.index[id] = len(c.roles)
		c.roles = append(c.roles, Role{
			ID:          id,
			Description: description,
			Keywords:    cleanKeywords(role.Keywords),
			Category:    category,
		})
	}
	return c, nil
}

// Len returns the number of roles.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.roles)
}

// Roles returns a copy of the roles in catalog order.
func (c *Catalog) Roles() []Role {
	if c == nil {
		return nil
	}
	out := make([]Role, len(c.roles))
	for i, r := range c.roles {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}

// IDs returns the role identifiers in catalog order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, len(c.roles))
	for i, r := range c.roles {
		ids[i] = r.ID
	}
	return ids
}

// Lookup returns the role with the given id.
func (c *Catalog) Lookup(id string) (Role, bool) {
	if c == nil {
		return Role{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Role{}, false
	}
	return c.roles[i], true
}

// Category returns the category of a role, DefaultCategory when the role is unknown.
func (c *Catalog) Category(id string) string {
	if role, ok := c.Lookup(id); ok {
		return role.Category
	}
	return DefaultCategory
}

// Categories maps every role to its category.
func (c *Catalog) Categories() map[string]string {
	out := make(map[string]string, c.Len())
	if c == nil {
		return out
	}
	for _, r := range c.roles {
		out[r.ID] = r.Category
	}
	return out
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}
