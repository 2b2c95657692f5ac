package cmd

import (
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Administrative audit commands",
	Long:  `View decision audit logs on the server. Requires admin credentials (stargate login).`,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
