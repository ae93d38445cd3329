package skill

import (
	"fmt"
	"sort"
)

// ID identifies a skill in the host client.
type ID int

// Kind names the host sub-object a skill's levels live under.
type Kind string

const (
	Combat    Kind = "combat"
	NonCombat Kind = "non-combat"
)

// DefaultCombatIDs are the skills the host exposes through its combat object.
var DefaultCombatIDs = []ID{0, 1, 2, 3, 4, 15}

// Partition classifies skill ids into the combat and non-combat namespaces.
// Anything not listed as combat is non-combat.
type Partition struct {
	combat map[ID]struct{}
}

// NewPartition builds a partition from the given combat skill ids.
func NewPartition(combat []ID) Partition {
	p := Partition{combat: make(map[ID]struct{}, len(combat))}
	for _, id := range combat {
		p.combat[id] = struct{}{}
	}
	return p
}

// DefaultPartition returns the partition for DefaultCombatIDs.
func DefaultPartition() Partition {
	return NewPartition(DefaultCombatIDs)
}

// KindOf returns which namespace id belongs to.
func (p Partition) KindOf(id ID) Kind {
	if _, ok := p.combat[id]; ok {
		return Combat
	}
	return NonCombat
}

// CombatIDs returns the combat skill ids in ascending order.
func (p Partition) CombatIDs() []ID {
	ids := make([]ID, 0, len(p.combat))
	for id := range p.combat {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Level is a skill's live level pair.
type Level struct {
	Current int
	Base    int
}

// Delta returns the signed boost currently applied (current minus base).
func (l Level) Delta() int {
	return l.Current - l.Base
}

// Lookup reads a skill level from one host sub-object.
type Lookup interface {
	Level(id ID) (Level, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(id ID) (Level, bool)

func (f LookupFunc) Level(id ID) (Level, bool) { return f(id) }

// Source reads live levels, dispatching to the combat or non-combat lookup
// according to the partition.
type Source struct {
	partition Partition
	combat    Lookup
	nonCombat Lookup
}

// NewSource creates a Source from the two host lookup strategies.
func NewSource(p Partition, combat, nonCombat Lookup) *Source {
	return &Source{partition: p, combat: combat, nonCombat: nonCombat}
}

// Level returns the live level of id. ok is false when the host has no such
// skill or the responsible lookup is not wired.
func (s *Source) Level(id ID) (Level, bool) {
	var l Lookup
	switch s.partition.KindOf(id) {
	case Combat:
		l = s.combat
	default:
		l = s.nonCombat
	}
	if l == nil {
		return Level{}, false
	}
	return l.Level(id)
}

// Partition returns the partition used for dispatch.
func (s *Source) Partition() Partition {
	return s.partition
}

func (id ID) String() string {
	return fmt.Sprintf("skill-%d", int(id))
}
