package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/neiii/stargate-better-auth/internal/service"
)

var statusRefresh bool

// statusCmd shows the calling user's standing on a remote server.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show your star and access standing on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		var (
			status      *service.GateStatus
			correlation string
		)
		if statusRefresh {
			log.Info().Msg("Forcing a fresh star check...")
			status, correlation, err = cli.Refresh(cmd.Context())
		} else {
			status, correlation, err = cli.Status(cmd.Context())
		}
		if err != nil {
			return logError(err, correlation, "failed to retrieve star status")
		}

		printStatus(status)
		return nil
	},
}

func printStatus(status *service.GateStatus) {
	starMark := redCross
	if status.HasStarred {
		starMark = greenCheck
	}

	source := "live"
	if status.Cached {
		source = "cached"
	}

	fmt.Println(bold("\n── Star Gate Status ──"))
	fmt.Printf("  %s:  %s\n", faint("Repository"), status.Repository)
	fmt.Printf("  %s:     %s %t %s\n", faint("Starred"), starMark, status.HasStarred, faint("("+source+")"))
	fmt.Printf("  %s:      %s\n", faint("Access"), yesNo(status.Granted))
	fmt.Printf("  %s:      %s\n", faint("Reason"), status.Reason)
	if status.GracePeriodActive && status.GracePeriodEndsAt != nil {
		fmt.Printf("  %s:       ends %s\n", faint("Grace"),
			color.YellowString(status.GracePeriodEndsAt.Format("2006-01-02 15:04:05")))
	}
	if status.ExpiresAt != nil {
		fmt.Printf("  %s:  %s\n", faint("Re-check at"), status.ExpiresAt.Format("15:04:05"))
	}
	if status.Error != "" {
		fmt.Printf("  %s:       %s\n", faint("Error"), color.YellowString(status.Error))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusRefresh, "refresh", false, "Invalidate the cached record and re-check")
}
