package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIntake()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ShowsFile, err = expandPath(c.Paths.ShowsFile); err != nil {
		return fmt.Errorf("paths.shows_file: %w", err)
	}
	if c.Paths.DefaultWatchDir, err = expandPath(c.Paths.DefaultWatchDir); err != nil {
		return fmt.Errorf("paths.default_watch_dir: %w", err)
	}
	if c.Paths.DefaultOutputDir, err = expandPath(c.Paths.DefaultOutputDir); err != nil {
		return fmt.Errorf("paths.default_output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIntake() {
	if len(c.Intake.AllowedExtensions) == 0 {
		c.Intake.AllowedExtensions = defaultAllowedExtensions()
	}
	normalized := make([]string, 0, len(c.Intake.AllowedExtensions))
	for _, ext := range c.Intake.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	c.Intake.AllowedExtensions = normalized

	if c.Intake.DebounceSeconds <= 0 {
		c.Intake.DebounceSeconds = defaultDebounceSeconds
	}
	if c.Intake.StabilityPollMs <= 0 {
		c.Intake.StabilityPollMs = defaultStabilityPollMs
	}
	if c.Intake.RescanSeconds < 0 {
		c.Intake.RescanSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
