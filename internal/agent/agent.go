package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/browser"
	"github.com/nbenliogludev/survey-agent/internal/config"
	"github.com/nbenliogludev/survey-agent/internal/llm"
)

// Result describes what a handler did on a page. Decision is nil for
// handlers that do not consult the reasoning service.
type Result struct {
	Decision *int
	Label    string
}

// PageHandler solves one page shape.
type PageHandler interface {
	Name() string
	Handle(ctx context.Context) (Result, error)
}

// Outcome is the result of one page iteration.
type Outcome struct {
	Page     int
	Kind     PageKind
	Handler  string
	Decision *int
	Label    string
	Err      error
	Duration time.Duration
}

// OK reports whether the page was solved.
func (o Outcome) OK() bool { return o.Err == nil }

// ErrNoHandler means neither the page's own handler nor the generic one is
// registered.
var ErrNoHandler = errors.New("no page handler registered")

// Agent classifies the current page and dispatches it to the matching handler.
type Agent struct {
	page     browser.Page
	handlers map[PageKind]PageHandler
	logger   *zap.Logger
}

// New wires the date-of-birth handler and the generic solver.
func New(page browser.Page, client llm.Client, persona *config.Persona, cfg config.AgentConfig, logger *zap.Logger) *Agent {
	logger = logger.Named("agent")
	return NewWithHandlers(page, map[PageKind]PageHandler{
		DateOfBirthPage: NewDateOfBirthHandler(page, persona, cfg, logger),
		GenericPage:     NewSolver(page, client, persona, cfg, logger),
	}, logger)
}

// NewWithHandlers builds an Agent from explicit handlers. Pages without a
// matching handler go to the GenericPage one.
func NewWithHandlers(page browser.Page, handlers map[PageKind]PageHandler, logger *zap.Logger) *Agent {
	return &Agent{page: page, handlers: handlers, logger: logger}
}

// Classify probes the current page and returns its kind.
func (a *Agent) Classify(ctx context.Context) (PageKind, error) {
	sig, err := Probe(ctx, a.page)
	if err != nil {
		return UnclassifiedPage, err
	}
	return Classify(sig), nil
}

// Handle runs the handler registered for kind, falling back to the generic
// one, and reports which handler ran.
func (a *Agent) Handle(ctx context.Context, kind PageKind) (string, Result, error) {
	handler := a.handlers[kind]
	if handler == nil {
		handler = a.handlers[GenericPage]
	}
	if handler == nil {
		return "", Result{}, fmt.Errorf("%w for %s page", ErrNoHandler, kind)
	}
	a.logger.Info("Routing page", zap.Stringer("kind", kind), zap.String("handler", handler.Name()))
	res, err := handler.Handle(ctx)
	return handler.Name(), res, err
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrControlNotFound)
}
