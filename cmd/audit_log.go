package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/neiii/stargate-better-auth/pkg/client"
)

var (
	auditLimit         uint
	auditCorrelationID string
	auditUserID        string
	auditAction        string
)

var auditLogCmd = &cobra.Command{
	Use:     "log",
	Aliases: []string{"logs", "ls"},
	Short:   "Show recent audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving audit log entries...")
		entries, correlation, err := cli.ListAudits(cmd.Context(), client.ListAuditsOpts{
			Limit:         auditLimit,
			CorrelationID: auditCorrelationID,
			UserID:        auditUserID,
			Action:        auditAction,
		})
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit logs")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Action", "User", "Starred", "Granted", "Reason"})

		for _, entry := range entries {
			starred := redCross
			if entry.HasStarred {
				starred = greenCheck
			}
			if entry.Cached {
				starred += faint(" (cached)")
			}

			reason := truncate(entry.Reason, 48)
			if entry.Error != "" {
				reason = red(truncate(entry.Error, 48))
			}

			t.AppendRow(table.Row{
				entry.Time.Format(time.DateTime),
				entry.Action,
				bold(truncate(entry.UserID, 24)),
				starred,
				yesNo(entry.Granted),
				reason,
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditLogCmd)

	auditLogCmd.Flags().UintVar(&auditLimit, "limit", 50, "Maximum number of entries to show")
	auditLogCmd.Flags().StringVar(&auditCorrelationID, "correlation-id", "", "Filter by correlation ID")
	auditLogCmd.Flags().StringVar(&auditUserID, "user", "", "Filter by user ID")
	auditLogCmd.Flags().StringVar(&auditAction, "action", "", "Filter by action (login.verify, status.check, cache.refresh)")
}
