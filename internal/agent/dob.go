package agent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/browser"
	"github.com/nbenliogludev/survey-agent/internal/config"
)

// submitCandidates are tried in order for the control that submits the
// date-of-birth form.
var submitCandidates = []browser.Query{
	browser.CSSQuery(`button[type="submit"]`),
	{CSS: "button", Text: "Next"},
	{CSS: "button", Text: "→"},
	browser.RoleQuery("button", "Continue"),
}

// DateOfBirthHandler fills the date-of-birth widget from the persona without
// consulting the reasoning service.
type DateOfBirthHandler struct {
	page          browser.Page
	persona       *config.Persona
	clickTimeout  time.Duration
	settleTimeout time.Duration
	logger        *zap.Logger
}

func NewDateOfBirthHandler(page browser.Page, persona *config.Persona, cfg config.AgentConfig, logger *zap.Logger) *DateOfBirthHandler {
	return &DateOfBirthHandler{
		page:          page,
		persona:       persona,
		clickTimeout:  cfg.ClickTimeout,
		settleTimeout: cfg.SettleTimeout,
		logger:        logger.Named("dob_handler"),
	}
}

func (h *DateOfBirthHandler) Name() string { return "date_of_birth" }

// Handle picks the month, fills the day, picks the year and submits.
func (h *DateOfBirthHandler) Handle(ctx context.Context) (Result, error) {
	dob := h.persona.BirthDate()
	year := strconv.Itoa(dob.Year())
	month := dob.Month().String()
	day := strconv.Itoa(dob.Day())

	h.logger.Info("Handling date of birth page",
		zap.String("year", year),
		zap.String("month", month),
		zap.String("day", day),
	)

	steps := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"open month selector", h.click(browser.PlaceholderQuery(monthPlaceholder))},
		{"select month " + month, h.click(browser.RoleQuery("option", month))},
		{"fill day", h.fill(browser.PlaceholderQuery(dayPlaceholder), day)},
		{"open year selector", h.click(browser.PlaceholderQuery(yearPlaceholder))},
		{"select year " + year, h.click(browser.TextQuery(year, true))},
		{"submit", h.submit},
	}
	for _, step := range steps {
		stepCtx, cancel := context.WithTimeout(ctx, h.clickTimeout)
		err := step.run(stepCtx)
		cancel()
		if err != nil {
			return Result{}, &HandlerError{Step: step.name, Err: err}
		}
		h.logger.Debug("Handler step done", zap.String("step", step.name))
	}

	if err := settle(ctx, h.page, h.settleTimeout); err != nil {
		return Result{}, err
	}
	return Result{Label: fmt.Sprintf("%s %s %s", month, day, year)}, nil
}

func (h *DateOfBirthHandler) click(q browser.Query) func(context.Context) error {
	return func(ctx context.Context) error {
		node, err := firstVisible(ctx, h.page, q)
		if err != nil {
			return err
		}
		return browserErr("click "+q.String(), node.Click(ctx))
	}
}

func (h *DateOfBirthHandler) fill(q browser.Query, value string) func(context.Context) error {
	return func(ctx context.Context) error {
		node, err := firstVisible(ctx, h.page, q)
		if err != nil {
			return err
		}
		return browserErr("fill "+q.String(), node.Fill(ctx, value))
	}
}

func (h *DateOfBirthHandler) submit(ctx context.Context) error {
	for _, q := range submitCandidates {
		node, err := firstVisible(ctx, h.page, q)
		if err == nil {
			return browserErr("click "+q.String(), node.Click(ctx))
		}
		if !isNotFound(err) {
			return err
		}
	}
	return fmt.Errorf("%w: submit control", ErrControlNotFound)
}

// firstVisible returns the first visible node matching q, or an error
// wrapping ErrControlNotFound.
func firstVisible(ctx context.Context, page browser.Page, q browser.Query) (browser.Node, error) {
	nodes, err := page.Find(ctx, q)
	if err != nil {
		return nil, browserErr("find "+q.String(), err)
	}
	for _, n := range nodes {
		visible, err := n.IsVisible(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, browserErr("find "+q.String(), err)
			}
			continue
		}
		if visible {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrControlNotFound, q)
}
