package metrics

import (
	"math"
	"sort"
)

// Snapshot is the full metric state of one entity: category → field → value.
type Snapshot map[string]map[string]float64

// Deltas is a set of signed adjustments keyed by bare field name.
type Deltas map[string]float64

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for cat, fields := range s {
		m := make(map[string]float64, len(fields))
		for k, v := range fields {
			m[k] = v
		}
		out[cat] = m
	}
	return out
}

// Get returns the value of field in whichever category holds it.
func (s Snapshot) Get(field string) (float64, bool) {
	for _, fields := range s {
		if v, ok := fields[field]; ok {
			return v, true
		}
	}
	return 0, false
}

// Flatten returns field → value across all categories.
func (s Snapshot) Flatten() map[string]float64 {
	out := make(map[string]float64)
	for _, fields := range s {
		for k, v := range fields {
			out[k] = v
		}
	}
	return out
}

// Normalize returns a copy of s holding exactly the registry's fields.
// Missing fields take their default, unregistered fields are dropped and
// negative values are clamped to zero.
func (r *Registry) Normalize(s Snapshot) Snapshot {
	out := r.Defaults()
	for _, c := range r.categories {
		src := s[c.Name]
		if src == nil {
			continue
		}
		for _, f := range c.Fields {
			if v, ok := src[f.Name]; ok {
				out[c.Name][f.Name] = r.clamp(f, v)
			}
		}
	}
	return out
}

// Apply adds each delta to the field of that name and returns the new
// snapshot. Every registered field in the result is finite and at least zero,
// including fields no delta touched. The input snapshot is left untouched.
// Fields the registry does not know are skipped and reported to the
// unknown-field hook. A registered field absent from s starts from its default.
func (r *Registry) Apply(s Snapshot, d Deltas) Snapshot {
	out := s.Clone()
	for _, c := range r.categories {
		fields := out[c.Name]
		for _, f := range c.Fields {
			if v, ok := fields[f.Name]; ok {
				fields[f.Name] = r.clamp(f, v)
			}
		}
	}

	names := make([]string, 0, len(d))
	for field := range d {
		names = append(names, field)
	}
	sort.Strings(names)

	for _, field := range names {
		delta := d[field]
		cat, ok := r.owner[field]
		if !ok {
			if r.onUnknown != nil {
				suggestion, _ := r.Suggest(field)
				r.onUnknown(field, suggestion)
			}
			continue
		}
		if !isFinite(delta) {
			continue
		}
		f := r.fields[field]
		fields := out[cat]
		if fields == nil {
			fields = make(map[string]float64)
			out[cat] = fields
		}
		old, ok := fields[field]
		if !ok {
			old = f.Default
		}
		fields[field] = r.clamp(f, old+delta)
	}

	return out
}

func (r *Registry) clamp(f Field, v float64) float64 {
	if math.IsNaN(v) {
		return f.Default
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	if f.Integer {
		v = math.Round(v)
	}
	if v < 0 {
		return 0
	}
	return v
}

// Known returns the subset of d that Apply acts on: registered fields with
// finite values.
func (r *Registry) Known(d Deltas) Deltas {
	out := make(Deltas, len(d))
	for field, v := range d {
		if r.Has(field) && isFinite(v) {
			out[field] = v
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
