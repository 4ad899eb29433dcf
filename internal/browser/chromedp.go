package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/config"
)

const (
	loadPollInterval = 100 * time.Millisecond
	networkQuietFor  = 500 * time.Millisecond
)

// ChromedpManager drives Chrome through the DevTools protocol. The session is
// restored by importing cookies and localStorage from the storage-state file.
type ChromedpManager struct {
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	page        *chromedpPage
	logger      *zap.Logger
}

// NewChromedpManager starts Chrome and restores the persisted session.
func NewChromedpManager(cfg config.BrowserConfig, logger *zap.Logger) (*ChromedpManager, error) {
	state, err := LoadStorageState(cfg.StorageState)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	actions := []chromedp.Action{network.Enable()}
	if cookies := state.CookieParams(); len(cookies) > 0 {
		actions = append(actions, network.SetCookies(cookies))
	}
	script, err := state.LocalStorageScript()
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("encode local storage: %w", err)
	}
	if script != "" {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}))
	}

	startCtx, startCancel := context.WithTimeout(tabCtx, cfg.DefaultTimeout)
	defer startCancel()
	if err := chromedp.Run(startCtx, actions...); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to restore session from %s: %w", cfg.StorageState, err)
	}

	logger.Info("Browser session restored",
		zap.String("driver", config.DriverChromedp),
		zap.Int("cookies", len(state.Cookies)),
		zap.String("storage_state", cfg.StorageState),
	)

	return &ChromedpManager{
		allocCancel: allocCancel,
		tabCancel:   tabCancel,
		page:        &chromedpPage{tab: tabCtx, defaultTimeout: cfg.DefaultTimeout},
		logger:      logger,
	}, nil
}

// Page returns the managed tab.
func (m *ChromedpManager) Page() Page { return m.page }

// Close closes the tab and kills the browser process.
func (m *ChromedpManager) Close() error {
	if m.tabCancel != nil {
		m.tabCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	return nil
}

type chromedpPage struct {
	tab            context.Context
	defaultTimeout time.Duration
	generation     atomic.Int64
}

// bounded derives a tab context that ends with the caller's deadline or
// cancellation, or after the default timeout.
func (p *chromedpPage) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(p.tab, deadline)
	} else {
		runCtx, cancel = context.WithTimeout(p.tab, p.defaultTimeout)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromedpPage) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	runCtx, cancel := p.bounded(ctx)
	defer cancel()
	return timeoutErr(op, chromedp.Run(runCtx, actions...))
}

func (p *chromedpPage) Goto(ctx context.Context, url string) error {
	return p.run(ctx, "goto "+url, chromedp.Navigate(url))
}

func (p *chromedpPage) URL() string {
	var loc string
	if err := p.run(context.Background(), "location", chromedp.Location(&loc)); err != nil {
		return ""
	}
	return loc
}

type loadProbe struct {
	ReadyState string `json:"readyState"`
	Resources  int    `json:"resources"`
}

// WaitForLoad polls document readiness. Network idle is approximated by the
// resource-timing count staying unchanged for networkQuietFor.
func (p *chromedpPage) WaitForLoad(ctx context.Context, state LoadState) error {
	runCtx, cancel := p.bounded(ctx)
	defer cancel()

	ticker := time.NewTicker(loadPollInterval)
	defer ticker.Stop()

	lastCount := -1
	var quietSince time.Time
	for {
		var probe loadProbe
		err := chromedp.Run(runCtx, chromedp.Evaluate(loadProbeJS, &probe))
		switch {
		case err != nil && runCtx.Err() != nil:
			return timeoutErr("wait for "+string(state), runCtx.Err())
		case err != nil:
			// The execution context goes away while a navigation commits.
			lastCount = -1
		case state == LoadStateDomcontentloaded:
			if probe.ReadyState == "interactive" || probe.ReadyState == "complete" {
				return nil
			}
		case state == LoadStateLoad:
			if probe.ReadyState == "complete" {
				return nil
			}
		case probe.ReadyState == "complete":
			if probe.Resources != lastCount {
				lastCount = probe.Resources
				quietSince = time.Now()
			} else if time.Since(quietSince) >= networkQuietFor {
				return nil
			}
		}

		select {
		case <-runCtx.Done():
			return timeoutErr("wait for "+string(state), runCtx.Err())
		case <-ticker.C:
		}
	}
}

func (p *chromedpPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := p.run(ctx, "screenshot", action); err != nil {
		return nil, err
	}
	return buf, nil
}

type jsQuery struct {
	CSS         string `json:"css,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Role        string `json:"role,omitempty"`
	Name        string `json:"name,omitempty"`
	Text        string `json:"text,omitempty"`
	Exact       bool   `json:"exact,omitempty"`
}

type nodeInfo struct {
	Marker  string            `json:"marker"`
	Tag     string            `json:"tag"`
	Visible bool              `json:"visible"`
	Text    string            `json:"text"`
	Attrs   map[string]string `json:"attrs"`
}

func findExpression(q Query, token string) (string, error) {
	arg, err := json.Marshal(jsQuery(q))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)(%s, %s)", findNodesJS, arg, jsString(token)), nil
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (p *chromedpPage) Find(ctx context.Context, q Query) ([]Node, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	token := "n" + strconv.FormatInt(p.generation.Add(1), 10)
	expr, err := findExpression(q, token)
	if err != nil {
		return nil, err
	}

	var infos []nodeInfo
	if err := p.run(ctx, fmt.Sprintf("find %s", q), chromedp.Evaluate(expr, &infos)); err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(infos))
	for _, info := range infos {
		nodes = append(nodes, &chromedpNode{page: p, info: info})
	}
	return nodes, nil
}

// chromedpNode serves tag, text and common attributes from the values
// captured by Find; actions address the node again through its marker.
type chromedpNode struct {
	page *chromedpPage
	info nodeInfo
}

func (n *chromedpNode) selector() string {
	return fmt.Sprintf(`[%s=%q]`, nodeMarkerAttr, n.info.Marker)
}

func (n *chromedpNode) TagName(context.Context) (string, error) { return n.info.Tag, nil }

func (n *chromedpNode) IsVisible(context.Context) (bool, error) { return n.info.Visible, nil }

func (n *chromedpNode) InnerText(context.Context) (string, error) { return n.info.Text, nil }

func (n *chromedpNode) Attribute(ctx context.Context, name string) (string, error) {
	if v, ok := n.info.Attrs[name]; ok {
		return v, nil
	}
	var val *string
	expr := fmt.Sprintf("(%s)(%s, %s)", attributeJS, jsString(n.selector()), jsString(name))
	if err := n.page.run(ctx, "attribute "+name, chromedp.Evaluate(expr, &val)); err != nil {
		return "", err
	}
	if val == nil {
		return "", fmt.Errorf("attribute %s: node %s is detached", name, n.info.Marker)
	}
	return *val, nil
}

func (n *chromedpNode) Click(ctx context.Context) error {
	return n.page.run(ctx, "click", chromedp.Click(n.selector(), chromedp.ByQuery, chromedp.NodeVisible))
}

func (n *chromedpNode) Fill(ctx context.Context, value string) error {
	var ok bool
	expr := fmt.Sprintf("(%s)(%s, %s)", fillNodeJS, jsString(n.selector()), jsString(value))
	if err := n.page.run(ctx, "fill", chromedp.Evaluate(expr, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("fill: node %s is detached", n.info.Marker)
	}
	return nil
}
