package cmd

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// debugConfigCmd dumps the fully resolved configuration, defaults applied.
var debugConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Dump the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return err
		}
		log.Info().Msg(spew.Sdump(cfg))
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugConfigCmd)
	f.bindConfigFlag(debugConfigCmd.Flags())
}
