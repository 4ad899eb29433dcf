package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/browser"
)

// Executor activates the element a Decision selects and waits for the page
// to settle.
type Executor struct {
	page          browser.Page
	clickTimeout  time.Duration
	settleTimeout time.Duration
	logger        *zap.Logger
}

func NewExecutor(page browser.Page, clickTimeout, settleTimeout time.Duration, logger *zap.Logger) *Executor {
	return &Executor{
		page:          page,
		clickTimeout:  clickTimeout,
		settleTimeout: settleTimeout,
		logger:        logger.Named("executor"),
	}
}

// Execute clicks the element at d. A decision outside inv fails with
// InvalidSelectionError before anything is touched.
func (e *Executor) Execute(ctx context.Context, d Decision, inv *Inventory) (Element, error) {
	el, ok := inv.Get(int(d))
	if !ok {
		return Element{}, &InvalidSelectionError{Index: int(d), Size: inv.Len()}
	}

	e.logger.Info("Executing action",
		zap.Int("element", el.Index),
		zap.String("tag", el.Tag),
		zap.String("label", el.Label),
	)

	clickCtx, cancel := context.WithTimeout(ctx, e.clickTimeout)
	err := el.node.Click(clickCtx)
	cancel()
	if err != nil {
		return el, browserErr("click", err)
	}

	if err := settle(ctx, e.page, e.settleTimeout); err != nil {
		return el, err
	}
	return el, nil
}

// settle waits for network activity to quiesce.
func settle(ctx context.Context, page browser.Page, timeout time.Duration) error {
	settleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return browserErr("settle", page.WaitForLoad(settleCtx, browser.LoadStateNetworkidle))
}
