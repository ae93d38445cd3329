package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/boostbar/internal/display"
	"github.com/abhisek/boostbar/internal/sim"
	"github.com/abhisek/boostbar/internal/ui/layout"
	"github.com/abhisek/boostbar/internal/ui/theme"
)

const maxLogLines = 200

type lineKind int

const (
	lineHost lineKind = iota
	lineBar
)

type logLine struct {
	at   time.Duration
	kind lineKind
	text string
}

// eventLog collects host notes and bar changes for the side panel. It is a
// display.Surface so it can sit next to the bar in a Fanout.
type eventLog struct {
	start time.Time
	now   func() time.Time
	lines []logLine
}

func newEventLog(start time.Time, now func() time.Time) *eventLog {
	return &eventLog{start: start, now: now}
}

func (l *eventLog) add(at time.Time, kind lineKind, text string) {
	l.lines = append(l.lines, logLine{at: at.Sub(l.start), kind: kind, text: text})
	if len(l.lines) > maxLogLines {
		l.lines = l.lines[len(l.lines)-maxLogLines:]
	}
}

func (l *eventLog) note(n sim.Note) {
	l.add(n.At, lineHost, n.Text)
}

// Apply logs slot creation and removal. Timer countdowns are left to the bar.
func (l *eventLog) Apply(in display.Instruction) {
	switch {
	case in.Op == display.OpRemove:
		l.add(l.now(), lineBar, fmt.Sprintf("%s removed", in.Slot))
	case in.RefreshIcon:
		l.add(l.now(), lineBar, fmt.Sprintf("%s now %s (%s)", in.Slot, in.Item, in.Value))
	}
}

// render returns the last n lines, oldest first.
func (l *eventLog) render(n int) string {
	if n <= 0 {
		return ""
	}
	lines := l.lines
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	var b strings.Builder
	for i, ln := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(theme.LogTime.Render(layout.Clock(int(ln.at / time.Second))))
		b.WriteString("  ")
		switch ln.kind {
		case lineBar:
			b.WriteString(theme.LogBoost.Render(ln.text))
		default:
			b.WriteString(theme.LogHost.Render(ln.text))
		}
	}
	return b.String()
}
