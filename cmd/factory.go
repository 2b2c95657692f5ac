package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/neiii/stargate-better-auth/internal/audit"
	"github.com/neiii/stargate-better-auth/internal/cache"
	"github.com/neiii/stargate-better-auth/internal/cliconfig"
	"github.com/neiii/stargate-better-auth/internal/config"
	"github.com/neiii/stargate-better-auth/internal/core"
	"github.com/neiii/stargate-better-auth/internal/logging"
	"github.com/neiii/stargate-better-auth/internal/service"
	"github.com/neiii/stargate-better-auth/internal/store"
	"github.com/neiii/stargate-better-auth/internal/verifier"
	"github.com/neiii/stargate-better-auth/pkg/client"
)

type Factory struct {
	// ConfigPath points at the gate configuration (repository, cache,
	// grace period). Used by commands that run the gate locally.
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

// GetClient returns an authenticated HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server := viper.GetString(StargateAddrKey)
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set STARGATE_ADDR)")
	}

	var token string
	if cfg, err := cliconfig.Load(); err == nil {
		if saved, err := cfg.TokenFor(server); err == nil { // token prio 1: saved credential
			token = saved
		}
	}

	if envToken := os.Getenv("STARGATE_TOKEN"); envToken != "" { // token prio 2: env var
		token = envToken
	}

	return client.New(server, client.WithAuthToken(token)), nil
}

func (f *Factory) LoadConfig() (*config.Config, error) {
	if f.ConfigPath == "" {
		return nil, fmt.Errorf("config file not specified (use --config)")
	}
	return config.Load(f.ConfigPath)
}

// GetLocalGate builds a gate service from the config file, backed by an
// in-memory store. Used by one-shot commands like "check" that never touch
// a running server.
func (f *Factory) GetLocalGate() (*service.GateService, error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	gate, _, err := buildGate(cfg, store.NewMemoryStorage())
	return gate, err
}

// buildGate wires storage, cache, checker and verifier into the gate service.
// The cache is returned as well so callers can hook maintenance tasks onto it.
func buildGate(cfg *config.Config, storage *store.MemoryStorage) (*service.GateService, *cache.Cache, error) {
	var cacheOpts []cache.Option
	if cfg.EnableLogging {
		cacheOpts = append(cacheOpts, cache.WithLogger(logging.NewZLogger(log.Logger)))
	}
	c := cache.New(storage, cfg.CacheTTL(), cacheOpts...)

	repo := cfg.Repository.String()
	checker := verifier.NewGitHubChecker(cfg.GitHub.ServerURL, audit.CreateUserAgent(repo))

	opts := verifier.Options{
		Repository:    repo,
		Cache:         c,
		Checker:       checker,
		OnAPIFailure:  cfg.OnAPIFailure,
		GraceStrategy: cfg.GracePeriod.Strategy,
		GraceDuration: cfg.GraceDuration(),
	}
	if cfg.EnableLogging {
		opts.Logger = logging.NewZLogger(log.Logger)
	}
	v, err := verifier.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("building verifier: %w", err)
	}

	return service.NewGateService(v, c, storage, cfg.Messages.StarRequired), c, nil
}

// buildAuditor picks the decision audit sink from config.
func buildAuditor(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return audit.NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "file":
		return audit.NewFileAuditor(cfg.Path)
	case "memory", "":
		return audit.NewInMemoryAuditor(), nil
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
	}
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "f", "", "The Stargate gate config file to use")
}
