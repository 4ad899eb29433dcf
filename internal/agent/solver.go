package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/browser"
	"github.com/nbenliogludev/survey-agent/internal/config"
	"github.com/nbenliogludev/survey-agent/internal/llm"
)

// Solver is the generic pipeline: snapshot and enumerate the page, ask the
// reasoning service for an index, then activate that element.
type Solver struct {
	page     browser.Page
	client   llm.Client
	persona  *config.Persona
	executor *Executor
	cfg      config.AgentConfig
	logger   *zap.Logger
}

func NewSolver(page browser.Page, client llm.Client, persona *config.Persona, cfg config.AgentConfig, logger *zap.Logger) *Solver {
	logger = logger.Named("solver")
	return &Solver{
		page:     page,
		client:   client,
		persona:  persona,
		executor: NewExecutor(page, cfg.ClickTimeout, cfg.SettleTimeout, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Solver) Name() string { return "generic" }

func (s *Solver) Handle(ctx context.Context) (Result, error) {
	if err := sleepCtx(ctx, s.cfg.SnapshotPause); err != nil {
		return Result{}, err
	}

	shotCtx, cancel := context.WithTimeout(ctx, s.cfg.ScreenshotTimeout)
	screenshot, err := s.page.Screenshot(shotCtx, s.cfg.FullPageScreenshot)
	cancel()
	if err != nil {
		return Result{}, browserErr("screenshot", err)
	}

	inv, err := Enumerate(ctx, s.page, s.logger)
	if err != nil {
		return Result{}, err
	}

	raw, err := s.decide(ctx, BuildRequest(s.persona, inv, screenshot))
	if err != nil {
		return Result{}, err
	}

	d, err := ParseDecision(raw)
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("AI decision", zap.Int("element", int(d)), zap.Int("inventory_size", inv.Len()))

	el, err := s.executor.Execute(ctx, d, inv)
	idx := int(d)
	return Result{Decision: &idx, Label: el.Label}, err
}

func (s *Solver) decide(ctx context.Context, req llm.Request) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.ReasoningTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.client.Decide(reqCtx, req)
	if err != nil {
		if isTimeout(err) {
			return "", &NetworkTimeout{Op: "reasoning", Err: err}
		}
		return "", &ReasoningError{Err: err}
	}
	s.logger.Debug("Reasoning response", zap.String("raw", raw), zap.Duration("duration", time.Since(start)))
	return raw, nil
}
