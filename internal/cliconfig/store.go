// Package cliconfig persists the credentials saved by "stargate login",
// keyed by server host. Every remote command reads them through the factory.
package cliconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

var ErrCredentialNotFound = errors.New("no saved credential for this server")

const configDirName = ".stargate"

type Credential struct {
	Token string
}

type CLIConfig struct {
	Credentials map[string]*Credential
}

// Path is ~/.stargate/config.json.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, configDirName, "config.json"), nil
}

// Load reads the saved credentials. A missing file yields an empty config,
// not an error: most commands run fine before the first login.
func Load() (*CLIConfig, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &CLIConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CLI config '%s': %w", path, err)
	}

	var cfg CLIConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decoding CLI config '%s': %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config back, creating ~/.stargate on first use. The file
// holds tokens, hence the tight permissions.
func (c *CLIConfig) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding CLI config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("writing CLI config '%s': %w", path, err)
	}
	return nil
}

// TokenFor returns the saved token for a server URL's host.
func (c *CLIConfig) TokenFor(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parsing server URL '%s': %w", server, err)
	}
	cred, ok := c.Credentials[u.Host]
	if !ok || cred == nil || cred.Token == "" {
		return "", ErrCredentialNotFound
	}
	return cred.Token, nil
}

// SetToken stores or replaces the token for a host.
func (c *CLIConfig) SetToken(host, token string) {
	if c.Credentials == nil {
		c.Credentials = make(map[string]*Credential)
	}
	c.Credentials[host] = &Credential{Token: token}
}
