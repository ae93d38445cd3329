package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/boostbar/internal/app"
	"github.com/abhisek/boostbar/internal/config"
	"github.com/abhisek/boostbar/internal/scenario"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Play a scenario live in the terminal overlay",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, args[0])
	},
}

func init() {
	runCmd.Flags().Float64("speed", 1, "Virtual seconds per wall second")
	runCmd.Flags().String("log-file", "", "Write logs here (default: boostbar.log in the data dir)")
	runCmd.Flags().Bool("no-journal", false, "Do not record the session")
}

// runApp loads the scenario, opens the journal and launches the TUI.
func runApp(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	logPath, _ := cmd.Flags().GetString("log-file")
	if logPath == "" {
		dir, err := config.DataDir()
		if err != nil {
			return err
		}
		logPath = filepath.Join(dir, "boostbar.log")
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger, err := fileLogger(logPath, verbose)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logger.Sync()

	speed, _ := cmd.Flags().GetFloat64("speed")
	opts := app.Options{Speed: speed, Logger: logger}

	if skip, _ := cmd.Flags().GetBool("no-journal"); !skip {
		st, err := openStore(cfg)
		if err != nil {
			warnf("Journal unavailable: %v", err)
			warnf("The session will not be recorded.")
		} else {
			defer st.Close()
			opts.Journal = st.EventRepo()
		}
	}

	logger.Info("starting overlay",
		zap.String("scenario", sc.Name),
		zap.Float64("speed", speed),
		zap.Bool("journal", opts.Journal != nil))

	return app.Run(ctx, sc, cfg, opts)
}
