package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/neiii/stargate-better-auth/internal/tasks"
)

var tasksLogsCmd = &cobra.Command{
	Use:   "logs [NAME]",
	Short: "Show the output of a task's latest run",
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

		entries, err := cli.GetTaskLogs(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("retrieving logs for task '%s': %w", name, err)
		}
		if len(entries) == 0 {
			log.Info().Msgf("Task '%s' has not produced any output yet.", name)
			return nil
		}

		log.Info().Msgf("Latest run of %s:", bold(name))
		for _, entry := range entries {
			var level string
			switch entry.Level {
			case "debug":
				level = faint("dbg")
			case "warn":
				level = color.YellowString("wrn")
			case "error":
				level = color.RedString("err")
			default:
				level = color.GreenString("inf")
			}
			fmt.Printf("%s %s %s\n", faint(entry.Time.Format("15:04:05")), level, entry.Message)
		}
		return nil
	},
}

func init() {
	tasksCmd.AddCommand(tasksLogsCmd)
}
