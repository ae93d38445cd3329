// Package host describes the game client the info bar runs inside: the
// notifications it delivers and the live state it exposes.
package host

import (
	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/skill"
)

// LoggedIn is delivered when the player enters the world.
type LoggedIn struct{}

// LoggedOut is delivered when the player leaves the world.
type LoggedOut struct{}

// ItemActionInvoked is delivered when an inventory item action completes.
type ItemActionInvoked struct {
	ActionCode int
	ItemID     item.ID
	Succeeded  bool
}

// SkillLevelChanged is delivered when a skill's current level is forced to a
// new value, by a consumable or anything else.
type SkillLevelChanged struct {
	Skill     skill.ID
	NewValue  int
	Succeeded bool
}

// StatsRestored is delivered on every periodic restore tick.
type StatsRestored struct{}

// AmmoSlot is the currently equipped ammunition.
type AmmoSlot struct {
	ItemID item.ID
	Amount int
}

// Player is the live-state view of the logged-in character.
type Player interface {
	// CombatSkill reads a skill from the combat sub-object.
	CombatSkill(id skill.ID) (skill.Level, bool)

	// Skill reads a skill from the general skills sub-object.
	Skill(id skill.ID) (skill.Level, bool)

	// Ammo returns the equipped ammo. ok is false when the slot is empty.
	Ammo() (AmmoSlot, bool)
}

// LevelSource builds a skill.Source over p's two lookup paths.
func LevelSource(p Player, part skill.Partition) *skill.Source {
	return skill.NewSource(part,
		skill.LookupFunc(p.CombatSkill),
		skill.LookupFunc(p.Skill))
}
