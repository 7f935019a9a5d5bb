package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/morph/config.toml"
		}
		return fmt.Errorf("server.base_url is required. Set MORPH_SERVER_URL env var or edit %s (create with 'morph config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server.base_url %q must be an absolute http(s) URL", c.Server.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.base_url scheme %q is not supported", parsed.Scheme)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.MaxFiles <= 0 {
		return errors.New("session.max_files must be positive")
	}
	if c.Session.MaxSizeMiB <= 0 {
		return errors.New("session.max_size_mib must be positive")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.ProbeIntervalMillis <= 0 {
		return errors.New("auth.probe_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}
