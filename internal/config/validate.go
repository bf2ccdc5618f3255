package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ShowsFile) == "" {
		problems = append(problems, "paths.shows_file must be set")
	}
	if len(c.Intake.AllowedExtensions) == 0 {
		problems = append(problems, "intake.allowed_extensions must not be empty")
	}
	for _, ext := range c.Intake.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			problems = append(problems, fmt.Sprintf("intake.allowed_extensions entry %q is not a file extension", ext))
		}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
