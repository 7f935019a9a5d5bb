package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeServer(); err != nil {
		return err
	}
	if err := c.normalizeSession(); err != nil {
		return err
	}
	if err := c.normalizeAuth(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() error {
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		if value, ok := os.LookupEnv("MORPH_SERVER_URL"); ok {
			c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaultBaseURL
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}
	return nil
}

func (c *Config) normalizeSession() error {
	if c.Session.MaxFiles <= 0 {
		c.Session.MaxFiles = defaultMaxFiles
	}
	if c.Session.MaxSizeMiB <= 0 {
		c.Session.MaxSizeMiB = defaultMaxSizeMiB
	}
	var err error
	if strings.TrimSpace(c.Session.DownloadDir) == "" {
		c.Session.DownloadDir = defaultDownloadDir
	}
	if c.Session.DownloadDir, err = expandPath(c.Session.DownloadDir); err != nil {
		return fmt.Errorf("session.download_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAuth() error {
	if c.Auth.ProbeIntervalMillis <= 0 {
		c.Auth.ProbeIntervalMillis = defaultProbeIntervalMillis
	}
	c.Auth.CookieFile = strings.TrimSpace(c.Auth.CookieFile)
	if c.Auth.CookieFile != "" {
		var err error
		if c.Auth.CookieFile, err = expandPath(c.Auth.CookieFile); err != nil {
			return fmt.Errorf("auth.cookie_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}
