package cmd

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neiii/stargate-better-auth/internal/cliconfig"
	"github.com/neiii/stargate-better-auth/pkg/client"
)

var loginCmd = &cobra.Command{
	Use:   "login TOKEN",
	Short: "Save credentials for a Stargate server",
	Long: `Stores a session or admin JWT for the configured server so future
commands (records, audit, tasks) authenticate automatically. The token is
issued by the host auth framework, not by Stargate itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loginToken := args[0]
		if loginToken == "" {
			return fmt.Errorf("token cannot be empty")
		}

		server := viper.GetString(StargateAddrKey)
		if server == "" {
			return fmt.Errorf("server address not configured, provide via --server or env")
		}
		u, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("parsing server URL: %w", err)
		}

		// verify the token against the server before persisting it
		cli := client.New(server, client.WithAuthToken(loginToken))
		log.Info().Msgf("Verifying credentials against %q...", u.Host)
		if _, correlation, err := cli.Status(cmd.Context()); err != nil {
			// admin tokens have no star standing of their own; only a flat-out
			// rejected session is fatal
			if errors.Is(err, client.ErrInvalidSession) {
				log.Error().Msgf("%s server rejected the token (correlation ID: %s)", redCross, correlation)
				return BeQuietError{}
			}
			log.Debug().Err(err).Msg("status probe did not resolve, saving token anyway")
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading CLI config: %w", err)
		}
		cfg.SetToken(u.Host, loginToken)
		if err := cfg.Save(); err != nil {
			return logError(err, "", "could not save credentials")
		}

		logSuccess("saved credentials for %s", bold(u.Host))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
