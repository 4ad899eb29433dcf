package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/browser"
	"github.com/nbenliogludev/survey-agent/internal/config"
)

const startPollInterval = 250 * time.Millisecond

var (
	startEarningButton = browser.RoleQuery("button", "Start earning")
	surveyCard         = browser.CSSQuery("a.survey-card")
)

// ErrNoStartControl means neither survey start control became visible.
var ErrNoStartControl = errors.New("no startup element found")

const manualStartPrompt = "Press Enter once you are on a survey page."

// StartSurvey opens the survey list and starts a survey, preferring the
// "Start earning" button over the first survey card. When neither works the
// operator is asked to navigate manually. Only a failed navigation or an
// unanswered prompt is an error.
func StartSurvey(ctx context.Context, page browser.Page, cfg config.SurveyConfig, op Operator, logger *zap.Logger) error {
	logger = logger.Named("entry")

	logger.Info("Session loaded. Navigating to surveys...", zap.String("url", cfg.EntryURL))
	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigationTimeout)
	err := page.Goto(navCtx, cfg.EntryURL)
	cancel()
	if err != nil {
		return browserErr("navigate to "+cfg.EntryURL, err)
	}

	if err := autoStart(ctx, page, cfg, logger); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Could not auto-start a survey. Please navigate to one manually.", zap.Error(err))
		if _, err := op.Prompt(ctx, manualStartPrompt); err != nil {
			return err
		}
	}
	return nil
}

func autoStart(ctx context.Context, page browser.Page, cfg config.SurveyConfig, logger *zap.Logger) error {
	logger.Info("Looking for a survey to start...")
	if err := sleepCtx(ctx, cfg.StartupPause); err != nil {
		return err
	}

	node, name, err := waitForStartControl(ctx, page, cfg.StartTimeout)
	if err != nil {
		return err
	}
	logger.Info("Clicking survey start control", zap.String("control", name))

	clickCtx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	err = node.Click(clickCtx)
	cancel()
	if err != nil {
		return browserErr("click "+name, err)
	}
	return settle(ctx, page, cfg.SettleTimeout)
}

// waitForStartControl polls until one of the start controls is visible. The
// button wins when both are.
func waitForStartControl(ctx context.Context, page browser.Page, timeout time.Duration) (browser.Node, string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(startPollInterval)
	defer ticker.Stop()

	candidates := []struct {
		name string
		q    browser.Query
	}{
		{"Start earning button", startEarningButton},
		{"first survey card", surveyCard},
	}
	for {
		for _, c := range candidates {
			node, err := firstVisible(waitCtx, page, c.q)
			if err == nil {
				return node, c.name, nil
			}
			if !isNotFound(err) && waitCtx.Err() == nil {
				return nil, "", err
			}
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			return nil, "", ErrNoStartControl
		case <-ticker.C:
		}
	}
}
