package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhisek/boostbar/internal/display"
	"github.com/abhisek/boostbar/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run a journaled session and check the boost timeline matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sessionID, _ := cmd.Flags().GetString("session")
		show, _ := cmd.Flags().GetBool("show")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		repo := s.EventRepo()

		if sessionID == "" {
			latest, err := repo.LatestSession(ctx)
			if err != nil {
				return fmt.Errorf("find latest session: %w", err)
			}
			if latest == nil {
				fmt.Println("No sessions recorded.")
				return nil
			}
			sessionID = latest.ID
		}

		var surface display.Surface
		if show {
			tl := &timeline{
				w:     os.Stdout,
				shown: make(map[string]bool),
				clock: cfg.ClockTimers,
				quiet: true,
			}
			surface = tl
		}

		res, err := replay.New(repo, cfg, logger).Replay(ctx, sessionID, surface)
		if err != nil {
			return err
		}
		return report(res)
	},
}

func init() {
	replayCmd.Flags().String("session", "", "Session to replay (default: the latest)")
	replayCmd.Flags().Bool("show", false, "Print the replayed display changes")
}

func report(res *replay.Result) error {
	fmt.Printf("Session %s: %d host events, %d frames, %d boost transitions\n",
		res.Session.ID, res.HostEvents, res.Frames, len(res.Replayed))
	if res.Faithful() {
		fmt.Println(color.GreenString("✓ replay matches the recording"))
		return nil
	}
	for _, m := range res.Mismatches {
		fmt.Println(color.RedString("✗ %s", m))
	}
	return fmt.Errorf("%d transitions differ", len(res.Mismatches))
}
