package item

import (
	"fmt"
	"sort"

	"github.com/abhisek/boostbar/internal/skill"
)

// ID identifies an item definition in the host client.
type ID int

// Effect is one skill modification granted by consuming an item.
type Effect struct {
	Skill  skill.ID
	Amount int
}

// Definition is the host's item definition, reduced to what the bar needs.
// Effects is nil for items that are not consumables.
type Definition struct {
	ID      ID
	Name    string
	Effects []Effect
}

// Consumable reports whether the definition carries an effect list.
func (d Definition) Consumable() bool {
	return d.Effects != nil
}

// ImpactedSkills returns the skills the item's effects touch, in effect order.
func (d Definition) ImpactedSkills() []skill.ID {
	if d.Effects == nil {
		return nil
	}
	ids := make([]skill.ID, 0, len(d.Effects))
	for _, e := range d.Effects {
		ids = append(ids, e.Skill)
	}
	return ids
}

// Catalog looks up item definitions by id.
type Catalog interface {
	Lookup(id ID) (Definition, bool)
}

// Registry is an in-memory Catalog.
type Registry struct {
	defs map[ID]Definition
}

// NewRegistry creates a Registry holding defs.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[ID]Definition, len(defs))}
	for _, d := range defs {
		r.defs[d.ID] = d
	}
	return r
}

// Add registers or replaces a definition.
func (r *Registry) Add(d Definition) {
	r.defs[d.ID] = d
}

func (r *Registry) Lookup(id ID) (Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns every definition ordered by id.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (id ID) String() string {
	return fmt.Sprintf("item-%d", int(id))
}
