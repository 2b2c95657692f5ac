package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage background tasks",
	Long:  `List, trigger and inspect the server's background maintenance tasks. Requires admin credentials.`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
