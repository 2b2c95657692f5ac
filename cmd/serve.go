package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/neiii/stargate-better-auth/internal/api"
	"github.com/neiii/stargate-better-auth/internal/store"
	"github.com/neiii/stargate-better-auth/internal/tasks"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Stargate server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.Session.SigningKey == "" {
			return fmt.Errorf("session.signing_key is required to run the server")
		}

		storage := store.NewMemoryStorage()

		log.Info().Msgf("Gating repository: %s", cfg.Repository)
		gate, gateCache, err := buildGate(cfg, storage)
		if err != nil {
			return err
		}

		auditor, err := buildAuditor(cfg.Audit)
		if err != nil {
			return fmt.Errorf("building auditor: %w", err)
		}
		defer func() {
			_ = auditor.Close()
		}()

		// background maintenance: sweep expired verification records. Run it
		// once up-front so a restart starts from a clean slate.
		manager := tasks.NewManager()
		tasks.RegisterCleanupExpired(manager, gateCache, 0)
		if err := manager.TriggerAndWait(tasks.CleanupExpiredTaskName); err != nil {
			return fmt.Errorf("initial cleanup: %w", err)
		}

		srv := api.NewServer(gate, manager, auditor)

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes([]byte(cfg.Session.SigningKey)),
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	f.bindConfigFlag(serveCmd.Flags())
}
