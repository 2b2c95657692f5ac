package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/neiii/stargate-better-auth/internal/tasks"
)

var tasksTriggerCmd = &cobra.Command{
	Use:   "trigger [NAME]",
	Short: "Run a maintenance task now",
	Long:  `Starts a background run of the named maintenance task. Without an argument the expired-record sweep is triggered.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := tasks.CleanupExpiredTaskName
		if len(args) > 0 && args[0] != "" {
			name = args[0]
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Triggering maintenance task '%s'...", name)
		if err := cli.TriggerTask(cmd.Context(), name); err != nil {
			return fmt.Errorf("triggering task '%s': %w", name, err)
		}

		logSuccess("started a run of %s", bold(name))
		log.Info().Msgf("Run '%s' to see its output.", color.CyanString("stargate tasks logs "+name))
		return nil
	},
}

func init() {
	tasksCmd.AddCommand(tasksTriggerCmd)
}
