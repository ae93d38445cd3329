package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhisek/boostbar/internal/display"
	"github.com/abhisek/boostbar/internal/infobar"
	"github.com/abhisek/boostbar/internal/scenario"
	"github.com/abhisek/boostbar/internal/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Run a scenario headless and print the info bar timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sc, err := scenario.Load(args[0])
		if err != nil {
			return err
		}
		cfg, err = cfg.WithRestorePeriod(sc.Restore.Period.Std())
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		quiet, _ := cmd.Flags().GetBool("quiet")
		out := &timeline{
			w:     os.Stdout,
			start: time.Unix(0, 0).UTC(),
			clock: cfg.ClockTimers,
			quiet: quiet,
			shown: make(map[string]bool),
		}

		engine := sim.New(sc, sim.Options{
			Start:     out.start,
			Partition: cfg.Partition(),
			Notify:    out.note,
			Logger:    logger,
		})
		out.now = engine.Now

		opts := infobar.Options{
			Config:  cfg,
			Player:  engine,
			Catalog: engine.Catalog(),
			Surface: out,
			Logger:  logger,
		}
		if journal, _ := cmd.Flags().GetBool("journal"); journal {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			opts.Journal = st.EventRepo()
		}

		plugin := infobar.New(opts)
		engine.Bind(plugin)
		plugin.Start(ctx, engine.Now())

		if err := engine.Run(ctx); err != nil {
			return fmt.Errorf("run scenario: %w", err)
		}
		plugin.Stop(ctx, engine.Now())

		fmt.Fprintln(os.Stdout)
		fmt.Fprintf(os.Stdout, "%s  %d display changes over %s\n",
			color.New(color.Bold).Sprint(sc.Name), out.changes, sc.Duration.Std())
		return nil
	},
}

func init() {
	simulateCmd.Flags().Bool("journal", false, "Record the run in the session journal")
	simulateCmd.Flags().BoolP("quiet", "q", false, "Hide timer-only updates")
}

// timeline prints host notes and display instructions against virtual time.
// Without a clock the time column is left blank.
type timeline struct {
	w     io.Writer
	start time.Time
	now   func() time.Time
	clock bool
	quiet bool

	changes int
	shown   map[string]bool
}

var (
	timeColor   = color.New(color.Faint)
	hostColor   = color.New(color.FgCyan)
	upsertColor = color.New(color.FgGreen)
	timerColor  = color.New(color.FgYellow)
	removeColor = color.New(color.FgRed)
)

func (t *timeline) stamp(at time.Time) string {
	if at.IsZero() {
		return timeColor.Sprintf("%9s", "")
	}
	return timeColor.Sprintf("%9s", at.Sub(t.start).Truncate(time.Millisecond))
}

func (t *timeline) note(n sim.Note) {
	fmt.Fprintf(t.w, "%s  %s %s\n", t.stamp(n.At), hostColor.Sprintf("%-8s", n.Kind), n.Text)
}

// Apply implements display.Surface.
func (t *timeline) Apply(in display.Instruction) {
	t.changes++
	var now time.Time
	if t.now != nil {
		now = t.now()
	}
	at := t.stamp(now)
	fresh := !t.shown[in.Slot]
	t.shown[in.Slot] = in.Op == display.OpUpsert
	switch {
	case in.Op == display.OpRemove:
		fmt.Fprintf(t.w, "%s  %s %s\n", at, removeColor.Sprint("remove  "), in.Slot)
	case in.RefreshIcon || fresh:
		label := "show    "
		if in.RefreshIcon {
			label = "icon    "
		}
		fmt.Fprintf(t.w, "%s  %s %s item=%s value=%s timer=%s\n", at,
			upsertColor.Sprint(label), in.Slot, in.Item, in.Value, t.timer(in.Timer))
	case !t.quiet:
		fmt.Fprintf(t.w, "%s  %s %s item=%s value=%s timer=%s\n", at,
			timerColor.Sprint("upsert  "), in.Slot, in.Item, in.Value, t.timer(in.Timer))
	}
}

func (t *timeline) timer(s string) string {
	if s == "" {
		return "-"
	}
	return display.FormatTimer(s, t.clock)
}
