package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var checkUserID string

// checkCmd runs the star gate once, locally, against the configured
// repository. Handy for verifying a config and a token without a server.
var checkCmd = &cobra.Command{
	Use:   "check ACCESS_TOKEN",
	Short: "Run a one-shot star check with a GitHub access token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accessToken := args[0]
		if accessToken == "" {
			return fmt.Errorf("access token cannot be empty")
		}

		gate, err := f.GetLocalGate()
		if err != nil {
			return err
		}

		log.Info().Msgf("Checking star status for %s...", bold(gate.Repository()))
		status, err := gate.Status(cmd.Context(), checkUserID, accessToken)
		if err != nil {
			return logError(err, "", "star check failed")
		}

		starMark := redCross
		if status.HasStarred {
			starMark = greenCheck
		}
		fmt.Println(bold("\n── Star Check ──"))
		fmt.Printf("  %s:  %s\n", faint("Repository"), status.Repository)
		fmt.Printf("  %s:     %s %t\n", faint("Starred"), starMark, status.HasStarred)
		fmt.Printf("  %s:     %s\n", faint("Granted"), yesNo(status.Granted))
		fmt.Printf("  %s:      %s\n", faint("Reason"), status.Reason)
		if status.GracePeriodActive && status.GracePeriodEndsAt != nil {
			fmt.Printf("  %s: ends %s\n", faint("Grace"), status.GracePeriodEndsAt.Format("2006-01-02 15:04:05"))
		}
		if status.Error != "" {
			fmt.Printf("  %s:       %s\n", faint("Error"), color.YellowString(status.Error))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkUserID, "user", "local", "User ID to record the check under")
	f.bindConfigFlag(checkCmd.Flags())
}
