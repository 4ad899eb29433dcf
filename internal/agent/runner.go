package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/browser"
	"github.com/nbenliogludev/survey-agent/internal/config"
)

// Reason says why a run ended.
type Reason string

const (
	ReasonBoundExhausted Reason = "bound_exhausted"
	ReasonPageFailed     Reason = "page_failed"
	ReasonCanceled       Reason = "canceled"
)

// State is the run loop's position in the page cycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateClassified
	StateSpecializedHandled
	StateGenericSolved
	StateSettled
	StateTerminated
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateLoading:            "loading",
	StateClassified:         "classified",
	StateSpecializedHandled: "specialized_handled",
	StateGenericSolved:      "generic_solved",
	StateSettled:            "settled",
	StateTerminated:         "terminated",
}

func (s State) String() string { return stateNames[s] }

// PageDispatcher classifies the current page and solves it. *Agent
// implements it.
type PageDispatcher interface {
	Classify(ctx context.Context) (PageKind, error)
	Handle(ctx context.Context, kind PageKind) (string, Result, error)
}

// Report summarizes a finished run.
type Report struct {
	RunID    string
	Outcomes []Outcome
	Reason   Reason
	Duration time.Duration
}

// OK reports whether the run ended by exhausting its page bound.
func (r *Report) OK() bool { return r.Reason == ReasonBoundExhausted }

// Err returns the error of the failed page, if any.
func (r *Report) Err() error {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// Runner drives the dispatcher over at most cfg.MaxPages pages and stops at
// the first failed page. Failures are never retried or skipped.
type Runner struct {
	page       browser.Page
	dispatcher PageDispatcher
	cfg        config.AgentConfig
	reporter   *Reporter
	logger     *zap.Logger

	runID string
	state State
}

func NewRunner(page browser.Page, dispatcher PageDispatcher, cfg config.AgentConfig, reporter *Reporter, logger *zap.Logger) *Runner {
	runID := uuid.NewString()
	return &Runner{
		page:       page,
		dispatcher: dispatcher,
		cfg:        cfg,
		reporter:   reporter,
		logger:     logger.Named("runner").With(zap.String("run_id", runID)),
		runID:      runID,
		state:      StateIdle,
	}
}

// Run executes the loop and prints the report.
func (r *Runner) Run(ctx context.Context) *Report {
	start := time.Now()
	report := &Report{RunID: r.runID}

	for n := 1; n <= r.cfg.MaxPages; n++ {
		if ctx.Err() != nil {
			report.Reason = ReasonCanceled
			break
		}

		r.reporter.PageStarted(n)
		out := r.solvePage(ctx, n)
		report.Outcomes = append(report.Outcomes, out)
		r.reporter.PageFinished(out)

		if !out.OK() {
			r.transition(StateTerminated)
			report.Reason = ReasonPageFailed
			if ctx.Err() != nil {
				report.Reason = ReasonCanceled
			}
			r.logger.Error("Failed to solve page. Stopping.", zap.Int("page", n), zap.Error(out.Err))
			break
		}

		if n < r.cfg.MaxPages {
			if err := sleepCtx(ctx, r.cfg.SettlePause); err != nil {
				report.Reason = ReasonCanceled
				break
			}
		}
		r.transition(StateSettled)
	}

	if report.Reason == "" {
		report.Reason = ReasonBoundExhausted
	}
	if report.Reason == ReasonCanceled {
		r.transition(StateTerminated)
	}
	report.Duration = time.Since(start)

	r.logger.Info("Run finished",
		zap.String("reason", string(report.Reason)),
		zap.Int("pages", len(report.Outcomes)),
		zap.Duration("duration", report.Duration),
	)
	r.reporter.Finished(report)
	return report
}

func (r *Runner) solvePage(ctx context.Context, n int) Outcome {
	start := time.Now()
	out := Outcome{Page: n, Kind: UnclassifiedPage}
	finish := func(err error) Outcome {
		out.Err = err
		out.Duration = time.Since(start)
		return out
	}

	r.transition(StateLoading)
	loadCtx, cancel := context.WithTimeout(ctx, r.cfg.LoadTimeout)
	err := r.page.WaitForLoad(loadCtx, browser.LoadStateDomcontentloaded)
	cancel()
	if err != nil {
		return finish(browserErr("page load", err))
	}

	kind, err := r.dispatcher.Classify(ctx)
	if err != nil {
		return finish(err)
	}
	out.Kind = kind
	r.transition(StateClassified)

	handler, res, err := r.dispatcher.Handle(ctx, kind)
	out.Handler = handler
	out.Decision = res.Decision
	out.Label = res.Label
	if err != nil {
		return finish(err)
	}

	if kind == DateOfBirthPage {
		r.transition(StateSpecializedHandled)
	} else {
		r.transition(StateGenericSolved)
	}
	return finish(nil)
}

func (r *Runner) transition(next State) {
	r.logger.Debug("State transition", zap.Stringer("from", r.state), zap.Stringer("to", next))
	r.state = next
}
