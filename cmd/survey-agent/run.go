package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/agent"
	"github.com/nbenliogludev/survey-agent/internal/browser"
	"github.com/nbenliogludev/survey-agent/internal/config"
	"github.com/nbenliogludev/survey-agent/internal/llm"
	"github.com/nbenliogludev/survey-agent/internal/observability"
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start a survey and answer it page by page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSurvey(cmd.Context())
		},
	}
}

// runSurvey checks every precondition before the browser starts, then walks
// the survey. The session is closed on every exit path.
func (c *cli) runSurvey(ctx context.Context) error {
	logger := observability.GetLogger()

	cfg, err := config.NewConfigFromViper(c.v)
	if err != nil {
		return err
	}
	if err := config.RequireSessionFile(cfg.Browser.StorageState); err != nil {
		return err
	}
	persona, err := config.LoadPersona(cfg.Persona.Path)
	if err != nil {
		return err
	}
	client, err := llm.NewClient(ctx, cfg.LLM, logger)
	if err != nil {
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
	op := agent.NewConsoleOperator(c.stdin, c.stdout)
	if err := agent.StartSurvey(ctx, page, cfg.Survey, op, logger); err != nil {
		return err
	}

	dispatcher := agent.New(page, client, persona, cfg.Agent, logger)
	runner := agent.NewRunner(page, dispatcher, cfg.Agent, agent.NewReporter(c.stdout), logger)
	report := runner.Run(ctx)

	fmt.Fprintln(c.stdout, "\nBot has finished its run.")
	if !report.OK() {
		return errRunFailed
	}
	return nil
}
