package gesture

import (
	"fmt"
	"sort"
)

// Placeholder is the displayed name when no gesture is recognized.
const Placeholder = "MAO"

// MouseTracking is the pseudo-gesture that drives the cursor with the index tip.
const MouseTracking = "mouse_tracking"

// Definition is a named reference pose. Relevant lists the features that must
// match for the gesture to be confirmed after filtering.
type Definition struct {
	Name     string
	Features Vector
	Relevant []Key
}

// RequiresMovement reports whether the gesture needs motion evidence.
func (d Definition) RequiresMovement() bool {
	return d.Features.HasMovement
}

// Database is an immutable set of definitions. Names are kept sorted so
// filtering is deterministic.
type Database struct {
	defs  map[string]Definition
	names []string
}

// NewDatabase builds a database, rejecting duplicate names and unknown
// relevant features.
func NewDatabase(defs ...Definition) (*Database, error) {
	db := &Database{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("gesture definition without a name")
		}
		if _, dup := db.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate gesture %q", d.Name)
		}
		for _, k := range d.Relevant {
			if _, err := ParseKey(string(k)); err != nil {
				return nil, fmt.Errorf("gesture %q: %w", d.Name, err)
			}
		}
		db.defs[d.Name] = d
		db.names = append(db.names, d.Name)
	}
	sort.Strings(db.names)
	return db, nil
}

// Names returns the gesture names in sorted order.
func (db *Database) Names() []string {
	if db == nil {
		return nil
	}
	out := make([]string, len(db.names))
	copy(out, db.names)
	return out
}

// Lookup returns the definition stored under name.
func (db *Database) Lookup(name string) (Definition, bool) {
	if db == nil {
		return Definition{}, false
	}
	d, ok := db.defs[name]
	return d, ok
}

// Len returns the number of definitions.
func (db *Database) Len() int {
	if db == nil {
		return 0
	}
	return len(db.names)
}

// Filter narrows the database down by comparing observed features one key at
// a time in Keys order. It stops as soon as a single candidate remains.
func Filter(db *Database, observed Vector) []string {
	candidates := db.Names()
	for _, k := range Keys {
		if len(candidates) == 1 {
			break
		}
		kept := candidates[:0]
		for _, name := range candidates {
			if db.defs[name].Features.Same(observed, k) {
				kept = append(kept, name)
			}
		}
		candidates = kept
	}
	return candidates
}

// Verify confirms a lone candidate by checking every relevant feature.
func Verify(db *Database, candidates []string, observed Vector) (string, bool) {
	if len(candidates) != 1 {
		return Placeholder, false
	}
	def, ok := db.Lookup(candidates[0])
	if !ok {
		return Placeholder, false
	}
	for _, k := range def.Relevant {
		if !def.Features.Same(observed, k) {
			return Placeholder, false
		}
	}
	return def.Name, true
}
