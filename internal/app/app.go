package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/boostbar/internal/config"
	"github.com/abhisek/boostbar/internal/display"
	"github.com/abhisek/boostbar/internal/infobar"
	"github.com/abhisek/boostbar/internal/scenario"
	"github.com/abhisek/boostbar/internal/sim"
	"github.com/abhisek/boostbar/internal/store"
	"github.com/abhisek/boostbar/internal/ui/layout"
	"github.com/abhisek/boostbar/internal/ui/theme"
)

const (
	minSpeed = 0.25
	maxSpeed = 64
)

// Options configures the overlay.
type Options struct {
	// Speed multiplies virtual time against wall time. Zero means 1.
	Speed float64

	Journal store.EventRepo
	Logger  *zap.Logger
}

// tickMsg carries the wall time of a UI tick.
type tickMsg time.Time

// AppModel is the root Bubble Tea model: a simulated host playing a scenario
// into the info bar, shown live.
type AppModel struct {
	ctx      context.Context
	sc       *scenario.Scenario
	engine   *sim.Engine
	plugin   *infobar.Plugin
	bar      *display.Bar
	log      *eventLog
	interval time.Duration

	keys keyMap
	help help.Model

	speed    float64
	paused   bool
	lastWall time.Time
	err      error

	width  int
	height int
}

// New builds the overlay for sc. The plugin is started and bound to the
// simulated host; nothing advances until the first tick.
func New(ctx context.Context, sc *scenario.Scenario, cfg config.Config, opts Options) (AppModel, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}

	// The host's restore cycle is part of the scenario.
	cfg, err := cfg.WithRestorePeriod(sc.Restore.Period.Std())
	if err != nil {
		return AppModel{}, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	start := time.Now().UTC().Truncate(time.Second)
	var engine *sim.Engine
	log := newEventLog(start, func() time.Time { return engine.Now() })
	engine = sim.New(sc, sim.Options{
		Start:     start,
		Partition: cfg.Partition(),
		Notify:    log.note,
		Logger:    logger,
	})

	bar := display.NewBar(engine.Sprites(), logger, display.BarOptions{ClockTimers: cfg.ClockTimers})
	plugin := infobar.New(infobar.Options{
		Config:  cfg,
		Player:  engine,
		Catalog: engine.Catalog(),
		Surface: display.Fanout{bar, log},
		Journal: opts.Journal,
		Logger:  logger,
	})
	engine.Bind(plugin)
	plugin.Start(ctx, start)

	interval := cfg.FrameInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	return AppModel{
		ctx:      ctx,
		sc:       sc,
		engine:   engine,
		plugin:   plugin,
		bar:      bar,
		log:      log,
		interval: interval,
		keys:     defaultKeyMap(),
		help:     help.New(),
		speed:    speed,
	}, nil
}

func (m AppModel) Init() tea.Cmd {
	return m.tick()
}

func (m AppModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(msg.Width)
		return m, nil

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.plugin.Stop(m.ctx, m.engine.Now())
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			// Wall time spent paused must not leak into the scenario.
			m.lastWall = time.Time{}
		case key.Matches(msg, m.keys.Faster):
			m.speed = min(m.speed*2, maxSpeed)
		case key.Matches(msg, m.keys.Slower):
			m.speed = max(m.speed/2, minSpeed)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tickMsg:
		m.advance(time.Time(msg))
		if m.err != nil || m.engine.Done() {
			return m, nil
		}
		return m, m.tick()
	}
	return m, nil
}

// advance moves the simulation forward by the wall time since the last tick,
// scaled by speed.
func (m *AppModel) advance(wall time.Time) {
	if m.paused {
		return
	}
	if m.lastWall.IsZero() {
		m.lastWall = wall
		return
	}
	elapsed := time.Duration(float64(wall.Sub(m.lastWall)) * m.speed)
	m.lastWall = wall
	if elapsed <= 0 {
		return
	}

	to := m.engine.Now().Add(elapsed)
	if end := m.engine.End(); to.After(end) {
		to = end
	}
	if err := m.engine.Advance(m.ctx, to); err != nil {
		m.err = err
	}
}

func (m AppModel) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render draws the whole screen. It is empty until the first WindowSizeMsg.
func (m AppModel) render() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	header := layout.RenderHeader(m.title(), m.status(), m.width)
	footer := layout.RenderFooter(m.help.View(m.keys), m.width)

	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}

	return layout.RenderFrame(header, m.content(contentHeight), footer, m.width, m.height)
}

func (m AppModel) title() string {
	if m.sc.Name != "" {
		return m.sc.Name
	}
	return "scenario"
}

func (m AppModel) status() string {
	elapsed := int(m.engine.Now().Sub(m.engine.Start()) / time.Second)
	total := int(m.engine.End().Sub(m.engine.Start()) / time.Second)
	state := fmt.Sprintf("x%g", m.speed)
	switch {
	case m.err != nil:
		state = "error"
	case m.engine.Done():
		state = "done"
	case m.paused:
		state = "paused"
	}
	return fmt.Sprintf("%s / %s  %s", layout.Clock(elapsed), layout.Clock(total), state)
}

func (m AppModel) content(height int) string {
	var sections []string

	barView := m.bar.Render()
	if barView == "" {
		barView = theme.Hint.Render("no active boosts")
	}
	sections = append(sections, theme.Panel.Render(barView))

	phase := theme.Hint.Render("restore phase unknown")
	if m.plugin.Anchored() {
		phase = theme.Body.Render("restore phase synced")
	}
	login := theme.Hint.Render("logged out")
	if m.engine.LoggedIn() {
		login = theme.Body.Render("logged in")
	}
	sections = append(sections, "  "+login+"  ·  "+phase)

	if m.err != nil {
		sections = append(sections, theme.LogWarn.Render("  "+m.err.Error()))
	}

	used := 0
	for _, s := range sections {
		used += lipgloss.Height(s)
	}
	sections = append(sections, "", m.log.render(height-used-1))

	return strings.Join(sections, "\n")
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, sc *scenario.Scenario, cfg config.Config, opts Options) error {
	m, err := New(ctx, sc, cfg, opts)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
