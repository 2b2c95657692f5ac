package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the server's maintenance tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving maintenance tasks...")
		list, err := cli.ListTasks(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing maintenance tasks: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Task", "State", "Runs", "Last Run", "Outcome", "Next Run"})

		for _, st := range list {
			state := faint("idle")
			if st.Running {
				state = color.BlueString("running")
			}

			lastRun := "never"
			if st.LastRun != nil {
				lastRun = time.Since(*st.LastRun).Round(time.Second).String() + " ago"
			}

			nextRun := "manual only"
			if st.NextRun != nil {
				nextRun = "in " + time.Until(*st.NextRun).Round(time.Second).String()
			}

			outcome := st.LastResult
			switch {
			case outcome == "":
				outcome = faint("n/a")
			case outcome == "success":
				outcome = greenCheck + " " + outcome
			default:
				outcome = redCross + " " + red(outcome)
			}

			t.AppendRow(table.Row{
				bold(st.Name),
				state,
				st.Runs,
				lastRun,
				outcome,
				nextRun,
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
}
