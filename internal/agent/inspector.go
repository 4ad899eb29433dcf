package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/browser"
)

// InspectSelector lists the controls the inspector reports.
const InspectSelector = `label, button, a, input[type="radio"], input[type="checkbox"], textarea`

// questionSelectors are tried in order to find the question heading.
var questionSelectors = []string{
	"h1", "h2", "h3",
	`div[class*="question"]`, `p[class*="question"]`, `span[class*="question-text"]`,
}

const (
	questionNotFound  = "Question not found"
	inspectPrompt     = "\nPress Enter to scrape the page, or type 'quit' to exit: "
	inspectQuitAnswer = "quit"
	inspectRule       = "============================================================"
)

const inspectInstructions = `
INSTRUCTIONS:
1. Start a survey in the browser window.
2. Once a question is displayed, press Enter here to scrape its details.
3. Answer the question manually in the browser to proceed.
4. Repeat for as many pages as you want to analyze.
5. Type 'quit' and press Enter to exit.
`

// Inspector prints the question and the visible controls of the page each
// time the operator asks for it. It never acts on the page.
type Inspector struct {
	page        browser.Page
	op          Operator
	out         io.Writer
	loadTimeout time.Duration
	logger      *zap.Logger
}

func NewInspector(page browser.Page, op Operator, out io.Writer, loadTimeout time.Duration, logger *zap.Logger) *Inspector {
	return &Inspector{page: page, op: op, out: out, loadTimeout: loadTimeout, logger: logger.Named("inspector")}
}

// Run loops until the operator types quit or the input ends.
func (in *Inspector) Run(ctx context.Context) error {
	fmt.Fprint(in.out, inspectInstructions)
	for {
		answer, err := in.op.Prompt(ctx, inspectPrompt)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if strings.EqualFold(strings.TrimSpace(answer), inspectQuitAnswer) {
			break
		}
		if err := in.Inspect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			in.logger.Warn("An error occurred during scraping", zap.Error(err))
			fmt.Fprintf(in.out, "An error occurred during scraping: %v\n", err)
		}
	}
	fmt.Fprintln(in.out, "\nScraper finished.")
	return nil
}

// Inspect prints the current page once.
func (in *Inspector) Inspect(ctx context.Context) error {
	fmt.Fprintln(in.out, "\n"+inspectRule)
	fmt.Fprintln(in.out, "Scraping current page for details...")

	loadCtx, cancel := context.WithTimeout(ctx, in.loadTimeout)
	err := in.page.WaitForLoad(loadCtx, browser.LoadStateDomcontentloaded)
	cancel()
	if err != nil {
		return browserErr("page load", err)
	}

	question, err := in.question(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "\nDiscovered Question: %s\n", question)

	elements, err := scan(ctx, in.page, InspectSelector, 1, in.logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(in.out, "\n[Interactive Elements Found]")
	for _, el := range elements {
		fmt.Fprintf(in.out, "- <%s>: %s\n", el.Tag, el.Label)
	}
	fmt.Fprintln(in.out, inspectRule)
	return nil
}

func (in *Inspector) question(ctx context.Context) (string, error) {
	for _, sel := range questionSelectors {
		nodes, err := in.page.Find(ctx, browser.CSSQuery(sel))
		if err != nil {
			return "", browserErr("find question", err)
		}
		if len(nodes) == 0 {
			continue
		}
		// Only the first match of each selector counts.
		visible, err := nodes[0].IsVisible(ctx)
		if err != nil || !visible {
			continue
		}
		text, err := nodes[0].InnerText(ctx)
		if err != nil {
			continue
		}
		return normalizeLabel(text), nil
	}
	return questionNotFound, nil
}
