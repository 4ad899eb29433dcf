package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

type playwrightPage struct {
	page           playwright.Page
	defaultTimeout time.Duration
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(timeoutMillis(ctx, p.defaultTimeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return pwErr("goto "+url, err)
}

func (p *playwrightPage) URL() string { return p.page.URL() }

func (p *playwrightPage) WaitForLoad(ctx context.Context, state LoadState) error {
	s := playwright.LoadState(state)
	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   &s,
		Timeout: playwright.Float(timeoutMillis(ctx, p.defaultTimeout)),
	})
	return pwErr("wait for "+string(state), err)
}

func (p *playwrightPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	buf, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
		Timeout:  playwright.Float(timeoutMillis(ctx, p.defaultTimeout)),
	})
	if err != nil {
		return nil, pwErr("screenshot", err)
	}
	return buf, nil
}

func (p *playwrightPage) Find(ctx context.Context, q Query) ([]Node, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, timeoutErr("find", err)
	}

	locators, err := p.locator(q).All()
	if err != nil {
		return nil, pwErr(fmt.Sprintf("find %s", q), err)
	}

	nodes := make([]Node, 0, len(locators))
	for _, loc := range locators {
		nodes = append(nodes, &playwrightNode{loc: loc, defaultTimeout: p.defaultTimeout})
	}
	return nodes, nil
}

func (p *playwrightPage) locator(q Query) playwright.Locator {
	switch {
	case q.Placeholder != "":
		return p.page.GetByPlaceholder(q.Placeholder, playwright.PageGetByPlaceholderOptions{
			Exact: playwright.Bool(q.Exact),
		})
	case q.Role != "":
		opts := playwright.PageGetByRoleOptions{}
		if q.Name != "" {
			opts.Name = q.Name
			opts.Exact = playwright.Bool(q.Exact)
		}
		return p.page.GetByRole(playwright.AriaRole(q.Role), opts)
	case q.CSS != "":
		opts := playwright.PageLocatorOptions{}
		if q.Text != "" {
			opts.HasText = q.Text
		}
		return p.page.Locator(q.CSS, opts)
	default:
		return p.page.GetByText(q.Text, playwright.PageGetByTextOptions{
			Exact: playwright.Bool(q.Exact),
		})
	}
}

type playwrightNode struct {
	loc            playwright.Locator
	defaultTimeout time.Duration
}

func (n *playwrightNode) timeout(ctx context.Context) *float64 {
	return playwright.Float(timeoutMillis(ctx, n.defaultTimeout))
}

func (n *playwrightNode) TagName(ctx context.Context) (string, error) {
	res, err := n.loc.Evaluate("node => node.tagName.toLowerCase()", nil, playwright.LocatorEvaluateOptions{
		Timeout: n.timeout(ctx),
	})
	if err != nil {
		return "", pwErr("tag name", err)
	}
	tag, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("expected string tag name, got %T", res)
	}
	return tag, nil
}

func (n *playwrightNode) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, timeoutErr("visibility", err)
	}
	visible, err := n.loc.IsVisible()
	return visible, pwErr("visibility", err)
}

func (n *playwrightNode) InnerText(ctx context.Context) (string, error) {
	text, err := n.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: n.timeout(ctx)})
	return text, pwErr("inner text", err)
}

func (n *playwrightNode) Attribute(ctx context.Context, name string) (string, error) {
	val, err := n.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: n.timeout(ctx)})
	return val, pwErr("attribute "+name, err)
}

func (n *playwrightNode) Click(ctx context.Context) error {
	return pwErr("click", n.loc.Click(playwright.LocatorClickOptions{Timeout: n.timeout(ctx)}))
}

func (n *playwrightNode) Fill(ctx context.Context, value string) error {
	return pwErr("fill", n.loc.Fill(value, playwright.LocatorFillOptions{Timeout: n.timeout(ctx)}))
}

// pwErr maps playwright timeouts onto ErrTimeout.
func pwErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return timeoutErr(op, err)
}
