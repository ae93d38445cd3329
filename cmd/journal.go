package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhisek/boostbar/internal/store"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recorded sessions or the events of one session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetString("session")
		prune, _ := cmd.Flags().GetInt("prune")
		kinds, _ := cmd.Flags().GetStringSlice("kind")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		repo := s.EventRepo()

		if cmd.Flags().Changed("prune") {
			if prune < 0 {
				return fmt.Errorf("--prune must not be negative")
			}
			if err := repo.PruneSessions(ctx, prune); err != nil {
				return fmt.Errorf("prune sessions: %w", err)
			}
			fmt.Printf("Kept the %d most recent sessions.\n", prune)
			return nil
		}

		if sessionID != "" {
			opts := store.QueryOpts{Limit: limit}
			for _, k := range kinds {
				kind := store.EventKind(k)
				if _, ok := kindColors[kind]; !ok {
					return fmt.Errorf("unknown kind %q (want one of %s)", k, strings.Join(sortedKinds(), ", "))
				}
				opts.Kinds = append(opts.Kinds, kind)
			}
			return printEvents(cmd, repo, sessionID, opts)
		}

		sessions, err := repo.Sessions(ctx, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %-9s  %-7s  %s\n", "ID", "Started", "Length", "Period", "Events")
		fmt.Println(strings.Repeat("─", 90))
		for _, sess := range sessions {
			length := color.GreenString("%-9s", "open")
			if !sess.Open() {
				length = fmt.Sprintf("%-9s", sess.EndedAt.Sub(sess.StartedAt).Round(time.Second))
			}
			fmt.Printf("%-36s  %-19s  %s  %-7s  %d\n",
				sess.ID,
				sess.StartedAt.Local().Format("2006-01-02 15:04:05"),
				length,
				sess.RestorePeriod,
				sess.EventCount,
			)
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().Int("limit", 20, "Maximum rows to show (0 = all)")
	journalCmd.Flags().String("session", "", "Show the events of this session")
	journalCmd.Flags().Int("prune", 0, "Delete all but the N most recent sessions")
	journalCmd.Flags().StringSlice("kind", nil, "With --session, only show these kinds: "+strings.Join(sortedKinds(), ", "))
}

var kindColors = map[store.EventKind]*color.Color{
	store.KindItemAction:     color.New(color.FgCyan),
	store.KindLevelChanged:   color.New(color.FgCyan),
	store.KindStatsRestored:  color.New(color.FgBlue),
	store.KindBoostInstalled: color.New(color.FgGreen),
	store.KindBoostDecayed:   color.New(color.FgYellow),
	store.KindBoostResolved:  color.New(color.FgMagenta),
	store.KindBoostExpired:   color.New(color.FgRed),
}

func printEvents(cmd *cobra.Command, repo store.EventRepo, sessionID string, opts store.QueryOpts) error {
	ctx := cmd.Context()
	sess, err := repo.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	events, err := repo.Events(ctx, sessionID, opts)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}

	fmt.Printf("Session %s, started %s, restore every %s\n\n",
		sess.ID, sess.StartedAt.Local().Format("2006-01-02 15:04:05"), sess.RestorePeriod)
	if len(events) == 0 {
		fmt.Println("No events.")
		return nil
	}

	fmt.Printf("%-6s  %-10s  %-20s  %s\n", "Seq", "Offset", "Kind", "Detail")
	fmt.Println(strings.Repeat("─", 80))
	for _, ev := range events {
		c, ok := kindColors[ev.Kind]
		if !ok {
			c = color.New(color.Reset)
		}
		fmt.Printf("%-6d  %-10s  %s  %s\n",
			ev.Sequence,
			ev.At.Sub(sess.StartedAt).Truncate(time.Millisecond),
			c.Sprintf("%-20s", ev.Kind),
			detail(ev, sess),
		)
	}
	return nil
}

func detail(ev store.Event, sess *store.Session) string {
	switch ev.Kind {
	case store.KindItemAction:
		s := fmt.Sprintf("item=%d code=%d ok=%v", ev.Item, ev.Value, ev.Succeeded)
		if effects, ok := store.PayloadInts(ev, "effects"); ok {
			s += fmt.Sprintf(" effects=%v", effects)
		}
		return s
	case store.KindLevelChanged:
		s := fmt.Sprintf("skill=%d new=%d base=%d ok=%v", ev.Skill, ev.Value, ev.Base, ev.Succeeded)
		if cur, ok := store.PayloadInt(ev, "current"); ok {
			s += fmt.Sprintf(" current=%d", cur)
		}
		return s
	case store.KindStatsRestored:
		return ""
	}

	s := fmt.Sprintf("skill=%d item=%d magnitude=%+d", ev.Skill, ev.Item, ev.Value)
	if ms, ok := store.PayloadInt(ev, "expires_at_ms"); ok {
		s += fmt.Sprintf(" expires=+%s", msOffset(ms, sess))
	} else {
		s += " expires=?"
	}
	if isNew, _ := store.PayloadBool(ev, "new_source"); isNew {
		s += " new-source"
	}
	return s
}

func msOffset(ms int, sess *store.Session) string {
	return fmt.Sprintf("%.1fs", float64(int64(ms)-sess.StartedAt.UnixMilli())/1000)
}

// sortedKinds lists the known event kinds for help output.
func sortedKinds() []string {
	kinds := make([]string, 0, len(kindColors))
	for k := range kindColors {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	return kinds
}
