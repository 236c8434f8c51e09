package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"audiosurvey/internal/catalog"
	"audiosurvey/internal/config"
	"audiosurvey/internal/content"
	"audiosurvey/internal/logging"
	"audiosurvey/internal/scoring"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	requestID  string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	storeOnce sync.Once
	store     *content.Store
	catalog   *catalog.Store
	storeErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		requestID:  uuid.NewString(),
	}
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
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

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// contentStore opens the catalog and builds the content store on first use.
func (c *commandContext) contentStore() (*content.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		logger, err := c.ensureLogger()
		if err != nil {
			c.storeErr = err
			return
		}
		cat, err := catalog.Open(cfg)
		if err != nil {
			c.storeErr = fmt.Errorf("open catalog: %w", err)
			return
		}
		c.catalog = cat
		c.store = content.NewStore(cfg, nil, logger, content.WithRecorder(cat))
	})
	return c.store, c.storeErr
}

func (c *commandContext) manager() (*scoring.Manager, error) {
	store, err := c.contentStore()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return scoring.NewManager(store, logger), nil
}

func (c *commandContext) withCatalog(fn func(*catalog.Store) error) error {
	if _, err := c.contentStore(); err != nil {
		return err
	}
	return fn(c.catalog)
}

func (c *commandContext) close() error {
	if c.catalog == nil {
		return nil
	}
	err := c.catalog.Close()
	c.catalog = nil
	return err
}

// annotate stamps the invocation's request id onto the command context so
// every log line of one CLI run shares a correlation id.
func (c *commandContext) annotate(cmd *cobra.Command) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(services.WithRequestID(base, c.requestID))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// parseIdentity turns CLI arguments into a validated survey identity.
func parseIdentity(surveyArg, stageArg string) (survey.Identity, error) {
	kind, err := survey.ParseKind(surveyArg)
	if err != nil {
		return survey.Identity{}, services.Wrap(services.ErrInvalidInput, "cli", "parse", err.Error(), nil)
	}
	stage, err := survey.ParseStage(stageArg)
	if err != nil {
		return survey.Identity{}, services.Wrap(services.ErrInvalidInput, "cli", "parse", err.Error(), nil)
	}
	id, err := survey.NewIdentity(kind, stage)
	if err != nil {
		return survey.Identity{}, services.Wrap(services.ErrInvalidInput, "cli", "parse", err.Error(), nil)
	}
	return id, nil
}

var errNoAnswers = errors.New("no answers supplied")
