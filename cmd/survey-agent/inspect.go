package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/agent"
	"github.com/nbenliogludev/survey-agent/internal/browser"
	"github.com/nbenliogludev/survey-agent/internal/config"
	"github.com/nbenliogludev/survey-agent/internal/observability"
)

func newInspectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the question and controls of each page you walk through by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.inspect(cmd.Context())
		},
	}
}

// inspect needs no reasoning service, so only the browser, survey and page
// load settings are validated.
func (c *cli) inspect(ctx context.Context) error {
	logger := observability.GetLogger()

	cfg, err := config.Unmarshal(c.v)
	if err != nil {
		return err
	}
	if err := cfg.Browser.Validate(); err != nil {
		return err
	}
	if err := cfg.Survey.Validate(); err != nil {
		return err
	}
	if cfg.Agent.LoadTimeout <= 0 {
		return &config.ConfigurationError{Field: "agent.load_timeout", Err: errors.New("must be positive")}
	}
	if err := config.RequireSessionFile(cfg.Browser.StorageState); err != nil {
		return err
	}

	session, err := browser.Open(cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("Failed to close browser session", zap.Error(cerr))
		}
	}()

	page := session.Page()
	logger.Info("Session loaded. Navigating to surveys...", zap.String("url", cfg.Survey.EntryURL))
	navCtx, cancel := context.WithTimeout(ctx, cfg.Survey.NavigationTimeout)
	err = page.Goto(navCtx, cfg.Survey.EntryURL)
	cancel()
	if err != nil {
		return fmt.Errorf("could not navigate to %s: %w", cfg.Survey.EntryURL, err)
	}

	op := agent.NewConsoleOperator(c.stdin, c.stdout)
	return agent.NewInspector(page, op, c.stdout, cfg.Agent.LoadTimeout, logger).Run(ctx)
}
