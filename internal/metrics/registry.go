// Package metrics provides the metric registry and the consequence applicator.
// A registry maps every field name to exactly one category; snapshots are
// plain nested maps keyed by category and field.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrDuplicateField is returned when two categories declare the same field name.
var ErrDuplicateField = errors.New("duplicate metric field")

// Field is a single named numeric metric.
type Field struct {
	Name    string  `json:"name"`
	Default float64 `json:"default"`
	Integer bool    `json:"integer,omitempty"` // Rounded to a whole number after each update
}

// Category groups related fields (e.g. "business", "marketing").
type Category struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// UnknownFieldHook is called once per delta field the registry does not know.
type UnknownFieldHook func(field, suggestion string)

// Registry is an immutable field → category index.
type Registry struct {
	categories []Category
	owner      map[string]string // field → category
	fields     map[string]Field
	onUnknown  UnknownFieldHook
}

// NewRegistry validates and indexes the given categories. Field names must be
// unique across the whole registry since deltas address fields by bare name.
func NewRegistry(categories ...Category) (*Registry, error) {
	if len(categories) == 0 {
		return nil, errors.New("registry needs at least one category")
	}

	r := &Registry{
		owner:  make(map[string]string),
		fields: make(map[string]Field),
	}
	seenCat := make(map[string]bool, len(categories))

	for _, c := range categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, errors.New("category name is empty")
		}
		if seenCat[c.Name] {
			return nil, fmt.Errorf("category %q declared twice", c.Name)
		}
		seenCat[c.Name] = true

		fields := make([]Field, len(c.Fields))
		copy(fields, c.Fields)
		for _, f := range fields {
			if f.Name == "" {
				return nil, fmt.Errorf("category %q has a field with no name", c.Name)
			}
			if prev, ok := r.owner[f.Name]; ok {
				return nil, fmt.Errorf("%w: %q in %q and %q", ErrDuplicateField, f.Name, prev, c.Name)
			}
			if f.Default < 0 {
				return nil, fmt.Errorf("field %q has negative default %v", f.Name, f.Default)
			}
			r.owner[f.Name] = c.Name
			r.fields[f.Name] = f
		}
		r.categories = append(r.categories, Category{Name: c.Name, Fields: fields})
	}

	return r, nil
}

// MustRegistry is NewRegistry for static tables; it panics on error.
func MustRegistry(categories ...Category) *Registry {
	r, err := NewRegistry(categories...)
	if err != nil {
		panic(err)
	}
	return r
}

// WithUnknownFieldHook returns a copy of the registry that reports unknown
// delta fields to hook. The index is shared; registries are never mutated.
func (r *Registry) WithUnknownFieldHook(hook UnknownFieldHook) *Registry {
	cp := *r
	cp.onUnknown = hook
	return &cp
}

// Categories returns the category names in declaration order.
func (r *Registry) Categories() []string {
	names := make([]string, len(r.categories))
	for i, c := range r.categories {
		names[i] = c.Name
	}
	return names
}

// Describe returns a copy of the category definitions.
func (r *Registry) Describe() []Category {
	out := make([]Category, len(r.categories))
	for i, c := range r.categories {
		fields := make([]Field, len(c.Fields))
		copy(fields, c.Fields)
		out[i] = Category{Name: c.Name, Fields: fields}
	}
	return out
}

// CategoryOf returns the category owning field.
func (r *Registry) CategoryOf(field string) (string, bool) {
	c, ok := r.owner[field]
	return c, ok
}

// Has reports whether field is registered.
func (r *Registry) Has(field string) bool {
	_, ok := r.owner[field]
	return ok
}

// Len returns the number of registered fields.
func (r *Registry) Len() int {
	return len(r.owner)
}

// Defaults returns a fresh snapshot holding every field at its default value.
func (r *Registry) Defaults() Snapshot {
	s := make(Snapshot, len(r.categories))
	for _, c := range r.categories {
		m := make(map[string]float64, len(c.Fields))
		for _, f := range c.Fields {
			m[f.Name] = f.Default
		}
		s[c.Name] = m
	}
	return s
}

// Unknown returns the sorted delta fields that are not registered.
func (r *Registry) Unknown(d Deltas) []string {
	var out []string
	for field := range d {
		if !r.Has(field) {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// Touched returns the categories (in declaration order) owning at least one
// field named in d.
func (r *Registry) Touched(d Deltas) []string {
	hit := make(map[string]bool)
	for field := range d {
		if c, ok := r.owner[field]; ok {
			hit[c] = true
		}
	}
	var out []string
	for _, c := range r.categories {
		if hit[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

// Suggest returns the registered field closest to name, if one is close
// enough to plausibly be a typo.
func (r *Registry) Suggest(name string) (string, bool) {
	best := ""
	bestDist := -1
	for field := range r.owner {
		dist := levenshtein.ComputeDistance(name, field)
		if dist > suggestLimit(len(field)) {
			continue
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && field < best) {
			best, bestDist = field, dist
		}
	}
	return best, bestDist >= 0
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
