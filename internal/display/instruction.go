package display

import (
	"fmt"
	"strconv"

	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/skill"
)

// Op is the kind of change an Instruction asks for.
type Op string

const (
	OpUpsert Op = "upsert"
	OpRemove Op = "remove"
)

// TimerUnknown is shown while a boost's expiry cannot be estimated.
const TimerUnknown = "?"

// Instruction asks the display to create/update or drop one slot.
type Instruction struct {
	Op   Op
	Slot string

	// Upsert only.
	Item  item.ID
	Value string
	Timer string // "?" , whole seconds, or empty for no timer

	// RefreshIcon asks an existing slot to re-resolve its sprite because the
	// item behind it changed.
	RefreshIcon bool
}

// Surface applies display instructions.
type Surface interface {
	Apply(in Instruction)
}

// AmmoSlotID is the stable slot id for an equipment ammo slot.
func AmmoSlotID(slot int) string {
	return fmt.Sprintf("ammoslot-%d", slot)
}

// BoostSlotID is the stable slot id for a skill's boost timer.
func BoostSlotID(id skill.ID) string {
	return fmt.Sprintf("boost-timer-%d", int(id))
}

// Upsert builds an upsert instruction.
func Upsert(slot string, it item.ID, value int, timer string, refresh bool) Instruction {
	return Instruction{
		Op:          OpUpsert,
		Slot:        slot,
		Item:        it,
		Value:       strconv.Itoa(value),
		Timer:       timer,
		RefreshIcon: refresh,
	}
}

// Remove builds a remove instruction.
func Remove(slot string) Instruction {
	return Instruction{Op: OpRemove, Slot: slot}
}

// SecondsTimer renders whole seconds for the timer line.
func SecondsTimer(secs int) string {
	return strconv.Itoa(secs)
}

// FormatTimer renders a timer for people. Digit timers become m:ss when clock
// is set; "?" and empty timers pass through.
func FormatTimer(timer string, clock bool) string {
	if !clock {
		return timer
	}
	secs, err := strconv.Atoi(timer)
	if err != nil || secs < 0 {
		return timer
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Log is a Surface that keeps every instruction it receives.
type Log struct {
	Instructions []Instruction
}

func (l *Log) Apply(in Instruction) {
	l.Instructions = append(l.Instructions, in)
}

// Reset forgets the recorded instructions.
func (l *Log) Reset() {
	l.Instructions = nil
}

// Fanout applies each instruction to every surface in order.
type Fanout []Surface

func (f Fanout) Apply(in Instruction) {
	for _, s := range f {
		s.Apply(in)
	}
}
