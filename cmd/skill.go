package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/boostbar/internal/display"
	"github.com/abhisek/boostbar/internal/skill"
)

var skillsCmd = &cobra.Command{
	Use:   "skills [id...]",
	Short: "Show which host lookup each skill id is read through",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		part := cfg.Partition()

		var ids []skill.ID
		for _, a := range args {
			var id int
			if _, err := fmt.Sscanf(a, "%d", &id); err != nil {
				return fmt.Errorf("invalid skill id %q: %w", a, err)
			}
			ids = append(ids, skill.ID(id))
		}
		if len(ids) == 0 {
			ids = part.CombatIDs()
		}

		fmt.Printf("%-6s  %-12s  %s\n", "ID", "Lookup", "Slot")
		fmt.Println(strings.Repeat("─", 40))
		for _, id := range ids {
			fmt.Printf("%-6d  %-12s  %s\n", int(id), part.KindOf(id), display.BoostSlotID(id))
		}

		fmt.Printf("\n%d combat skills; every other id is read as non-combat\n", len(part.CombatIDs()))
		return nil
	},
}
