package main

import (
	"strings"
	"sync"

	"airlift/internal/config"
	"airlift/internal/engine"
	"airlift/internal/logging"
	"airlift/internal/notifications"
	"airlift/internal/queue"
	"airlift/internal/shows"
)

// commandContext lazily resolves configuration and shared collaborators for
// CLI commands. Commands operate on the queue database directly; the store's
// conditional state transitions keep this safe alongside a running daemon.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*queue.Store, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// newEngine builds an engine without watchers for one-shot operations such
// as retry, add, and process.
func (c *commandContext) newEngine(store *queue.Store, cfg *config.Config) *engine.Engine {
	source := shows.NewFileSource(cfg.Paths.ShowsFile)
	return engine.New(cfg, store, source, notifications.NewService(cfg), logging.NewNop())
}

func (c *commandContext) showSource() (shows.Source, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return shows.NewFileSource(cfg.Paths.ShowsFile), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
