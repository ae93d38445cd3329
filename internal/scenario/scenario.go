// Package scenario loads scripted play sessions for the simulated host.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/skill"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid scenario")

// Action is what a timeline step does.
type Action string

const (
	ActionLogin       Action = "login"
	ActionLogout      Action = "logout"
	ActionConsume     Action = "consume"
	ActionFailConsume Action = "fail_consume"
	ActionUse         Action = "use" // an item action with an explicit code
	ActionEquipAmmo   Action = "equip_ammo"
	ActionUnequipAmmo Action = "unequip_ammo"
	ActionFireAmmo    Action = "fire_ammo"
	ActionLevelUp     Action = "level_up"
)

var knownActions = map[Action]bool{
	ActionLogin: true, ActionLogout: true, ActionConsume: true, ActionFailConsume: true,
	ActionUse: true, ActionEquipAmmo: true, ActionUnequipAmmo: true, ActionFireAmmo: true,
	ActionLevelUp: true,
}

// Duration is a time.Duration written as "1m30s" in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Scenario is a scripted session: the character, the items it carries, and a
// timeline of player actions. Restore ticks are generated from Restore.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Duration    Duration `yaml:"duration"`

	Restore struct {
		Period Duration `yaml:"period"`
		// Phase is when the first tick fires, relative to the start.
		Phase Duration `yaml:"phase"`
	} `yaml:"restore"`

	FrameInterval Duration `yaml:"frame_interval,omitempty"`

	Skills []SkillSpec `yaml:"skills"`
	Items  []ItemSpec  `yaml:"items"`
	Ammo   *AmmoSpec   `yaml:"ammo,omitempty"`

	Timeline []Step `yaml:"timeline"`
}

// SkillSpec is a skill's base level.
type SkillSpec struct {
	ID   int `yaml:"id"`
	Base int `yaml:"base"`
}

// EffectSpec is one item effect.
type EffectSpec struct {
	Skill  int `yaml:"skill"`
	Amount int `yaml:"amount"`
}

// ItemSpec defines an item. Consumable marks an item with an effect list
// even when it is empty.
type ItemSpec struct {
	ID         int          `yaml:"id"`
	Name       string       `yaml:"name"`
	Consumable bool         `yaml:"consumable,omitempty"`
	Effects    []EffectSpec `yaml:"effects,omitempty"`
}

// AmmoSpec is the ammo equipped at the start.
type AmmoSpec struct {
	Item   int `yaml:"item"`
	Amount int `yaml:"amount"`
}

// Step is one timeline entry.
type Step struct {
	At     Duration `yaml:"at"`
	Action Action   `yaml:"action"`
	Item   int      `yaml:"item,omitempty"`
	Skill  int      `yaml:"skill,omitempty"`
	Amount int      `yaml:"amount,omitempty"`
	Code   int      `yaml:"code,omitempty"`
}

// Parse decodes and validates a scenario. The document is checked against
// the embedded schema before references between its parts are resolved.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validateSchema(data); err != nil {
		return nil, err
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Restore.Period == 0 {
		sc.Restore.Period = Duration(time.Minute)
	}
	if sc.FrameInterval == 0 {
		sc.FrameInterval = Duration(50 * time.Millisecond)
	}
	sort.SliceStable(sc.Timeline, func(i, j int) bool {
		return sc.Timeline[i].At < sc.Timeline[j].At
	})
	if sc.Duration == 0 && len(sc.Timeline) > 0 {
		sc.Duration = sc.Timeline[len(sc.Timeline)-1].At
	}
}

// Validate checks references and timing.
func (sc *Scenario) Validate() error {
	if sc.Restore.Period <= 0 {
		return fmt.Errorf("%w: restore period must be positive", ErrInvalid)
	}
	if sc.Restore.Phase < 0 {
		return fmt.Errorf("%w: restore phase must not be negative", ErrInvalid)
	}
	if sc.FrameInterval <= 0 {
		return fmt.Errorf("%w: frame interval must be positive", ErrInvalid)
	}

	skills := make(map[int]bool, len(sc.Skills))
	for _, s := range sc.Skills {
		if s.ID < 0 {
			return fmt.Errorf("%w: skill id %d is negative", ErrInvalid, s.ID)
		}
		if skills[s.ID] {
			return fmt.Errorf("%w: skill %d defined twice", ErrInvalid, s.ID)
		}
		skills[s.ID] = true
	}

	items := make(map[int]bool, len(sc.Items))
	for _, it := range sc.Items {
		if items[it.ID] {
			return fmt.Errorf("%w: item %d defined twice", ErrInvalid, it.ID)
		}
		items[it.ID] = true
		for _, e := range it.Effects {
			if !skills[e.Skill] {
				return fmt.Errorf("%w: item %d affects unknown skill %d", ErrInvalid, it.ID, e.Skill)
			}
		}
	}

	for i, st := range sc.Timeline {
		if st.At < 0 {
			return fmt.Errorf("%w: step %d: negative time", ErrInvalid, i)
		}
		if !knownActions[st.Action] {
			return fmt.Errorf("%w: step %d: unknown action %q", ErrInvalid, i, st.Action)
		}
		switch st.Action {
		case ActionConsume, ActionFailConsume, ActionUse, ActionEquipAmmo:
			if !items[st.Item] {
				return fmt.Errorf("%w: step %d: unknown item %d", ErrInvalid, i, st.Item)
			}
		case ActionLevelUp:
			if !skills[st.Skill] {
				return fmt.Errorf("%w: step %d: unknown skill %d", ErrInvalid, i, st.Skill)
			}
		}
	}
	return nil
}

// Catalog builds the item definitions the host would expose.
func (sc *Scenario) Catalog() *item.Registry {
	reg := item.NewRegistry()
	for _, it := range sc.Items {
		def := item.Definition{ID: item.ID(it.ID), Name: it.Name}
		if it.Consumable || len(it.Effects) > 0 {
			def.Effects = make([]item.Effect, 0, len(it.Effects))
			for _, e := range it.Effects {
				def.Effects = append(def.Effects, item.Effect{Skill: skill.ID(e.Skill), Amount: e.Amount})
			}
		}
		reg.Add(def)
	}
	return reg
}

// ItemName returns the item's name, or its id when unnamed.
func (sc *Scenario) ItemName(id item.ID) string {
	for _, it := range sc.Items {
		if it.ID == int(id) && it.Name != "" {
			return it.Name
		}
	}
	return id.String()
}
