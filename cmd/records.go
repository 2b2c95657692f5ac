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

// recordsCmd lists verification records on a remote server.
var recordsCmd = &cobra.Command{
	Use:     "records",
	Aliases: []string{"rec"},
	Short:   "List verification records on the server",
	Long:    `Shows every cached star verification the server holds, including expiry and grace-period state. Requires admin credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving verification records...")
		records, correlation, err := cli.ListRecords(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to list verification records")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"User", "Starred", "Last Checked", "Expires", "Granted At", "Grace Ends"})

		now := time.Now()
		for _, rec := range records {
			starred := redCross
			if rec.HasStarred {
				starred = greenCheck
			}

			expires := rec.ExpiresAt.Format("15:04:05")
			if rec.ExpiresAt.Before(now) {
				expires = faint("expired")
			}

			grantedAt := faint("never")
			if rec.AccessGrantedAt != nil {
				grantedAt = rec.AccessGrantedAt.Format("2006-01-02 15:04")
			}

			graceEnds := faint("n/a")
			if rec.GracePeriodEndsAt != nil {
				graceEnds = color.YellowString(rec.GracePeriodEndsAt.Format("2006-01-02 15:04"))
			}

			t.AppendRow(table.Row{
				bold(truncate(rec.UserID, 24)),
				starred,
				rec.LastCheckedAt.Format("15:04:05"),
				expires,
				grantedAt,
				graceEnds,
			})
		}

		applyTableFormat(t)
		t.Render()
		fmt.Printf("%s record(s)\n", bold(len(records)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
}
