package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			log.Error().Err(err).Msg("Configuration is invalid.")
			return BeQuietError{}
		}
		log.Info().Msgf("Configuration is valid. Gating repository: %s", cfg.Repository)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	f.bindConfigFlag(configValidateCmd.Flags())
}
