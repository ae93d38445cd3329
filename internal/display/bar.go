package display

import (
	"strings"

	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/ui/theme"
)

// SpriteIndex resolves an item's icon.
type SpriteIndex interface {
	Sprite(id item.ID) (string, error)
}

// SpriteFunc adapts a function to SpriteIndex.
type SpriteFunc func(id item.ID) (string, error)

func (f SpriteFunc) Sprite(id item.ID) (string, error) { return f(id) }

// Slot is one rendered indicator on the bar.
type Slot struct {
	ID     string
	Item   item.ID
	Sprite string
	Value  string
	Timer  string
	Fresh  bool // last upsert changed the item behind the slot
}

// BarOptions configures a Bar.
type BarOptions struct {
	// ClockTimers renders digit timers as m:ss.
	ClockTimers bool
}

// Bar is an in-memory Surface that keeps slots in creation order and
// renders them as a row of boxes.
type Bar struct {
	logger  *zap.Logger
	sprites SpriteIndex
	opts    BarOptions

	order []string
	slots map[string]*Slot

	lookupFailures int
}

// NewBar creates an empty bar. sprites may be nil, in which case slots render
// without an icon.
func NewBar(sprites SpriteIndex, logger *zap.Logger, opts BarOptions) *Bar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bar{
		logger:  logger.Named("bar"),
		sprites: sprites,
		opts:    opts,
		slots:   make(map[string]*Slot),
	}
}

func (b *Bar) Apply(in Instruction) {
	switch in.Op {
	case OpUpsert:
		b.upsert(in)
	case OpRemove:
		b.remove(in.Slot)
	}
}

func (b *Bar) upsert(in Instruction) {
	s, ok := b.slots[in.Slot]
	if !ok {
		s = &Slot{ID: in.Slot, Item: in.Item}
		s.Sprite = b.lookup(in.Item, "")
		b.slots[in.Slot] = s
		b.order = append(b.order, in.Slot)
	} else if in.RefreshIcon {
		s.Sprite = b.lookup(in.Item, s.Sprite)
		s.Item = in.Item
	}
	s.Value = in.Value
	s.Timer = in.Timer
	s.Fresh = in.RefreshIcon
}

// lookup resolves a sprite, keeping prev when the lookup fails. A failed
// lookup only costs the icon, never the slot.
func (b *Bar) lookup(id item.ID, prev string) string {
	if b.sprites == nil {
		return prev
	}
	sprite, err := b.sprites.Sprite(id)
	if err != nil {
		b.lookupFailures++
		b.logger.Warn("sprite lookup failed", zap.Int("item", int(id)), zap.Error(err))
		return prev
	}
	return sprite
}

func (b *Bar) remove(id string) {
	if _, ok := b.slots[id]; !ok {
		return
	}
	delete(b.slots, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Slot returns the slot with id.
func (b *Bar) Slot(id string) (Slot, bool) {
	s, ok := b.slots[id]
	if !ok {
		return Slot{}, false
	}
	return *s, true
}

// Slots returns every slot in creation order.
func (b *Bar) Slots() []Slot {
	out := make([]Slot, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.slots[id])
	}
	return out
}

// LookupFailures returns how many sprite lookups have failed.
func (b *Bar) LookupFailures() int {
	return b.lookupFailures
}

// Clear removes every slot.
func (b *Bar) Clear() {
	b.order = nil
	b.slots = make(map[string]*Slot)
}

// Render draws the bar. An empty bar renders as an empty string.
func (b *Bar) Render() string {
	if len(b.order) == 0 {
		return ""
	}
	boxes := make([]string, 0, len(b.order))
	for _, id := range b.order {
		boxes = append(boxes, b.renderSlot(b.slots[id]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (b *Bar) renderSlot(s *Slot) string {
	sprite := s.Sprite
	if sprite == "" {
		sprite = "·"
	}

	timer := theme.Timer.Render(FormatTimer(s.Timer, b.opts.ClockTimers))
	switch s.Timer {
	case TimerUnknown:
		timer = theme.TimerUnknown.Render(s.Timer)
	case "":
		timer = " "
	}

	body := strings.Join([]string{
		theme.Sprite.Render(sprite),
		theme.Value.Render(s.Value),
		timer,
	}, "\n")

	if s.Fresh {
		return theme.SlotFresh.Render(body)
	}
	return theme.Slot.Render(body)
}

// String renders slots as plain text, one "id=value[timer]" per slot.
func (b *Bar) String() string {
	parts := make([]string, 0, len(b.order))
	for _, id := range b.order {
		s := b.slots[id]
		p := s.ID + "=" + s.Value
		if s.Timer != "" {
			p += "[" + FormatTimer(s.Timer, b.opts.ClockTimers) + "]"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
