package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/survey-agent/internal/browser"
	"github.com/nbenliogludev/survey-agent/internal/config"
	"github.com/nbenliogludev/survey-agent/internal/llm"
)

// -- Fake browser --

type fakePage struct {
	mu         sync.Mutex
	nodes      map[browser.Query][]*fakeNode
	findErr    map[browser.Query]error
	loadErr    map[browser.LoadState]error
	gotoErr    error
	screenshot []byte
	shotErr    error

	visited []string
	waits   []browser.LoadState
	actions []string
}

func newFakePage() *fakePage {
	return &fakePage{
		nodes:      make(map[browser.Query][]*fakeNode),
		findErr:    make(map[browser.Query]error),
		loadErr:    make(map[browser.LoadState]error),
		screenshot: []byte("png-bytes"),
	}
}

// add registers nodes as the result of q and returns them.
func (p *fakePage) add(q browser.Query, nodes ...*fakeNode) []*fakeNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range nodes {
		n.page = p
	}
	p.nodes[q] = append(p.nodes[q], nodes...)
	return nodes
}

func (p *fakePage) record(action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, action)
}

func (p *fakePage) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

func (p *fakePage) waited() []browser.LoadState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.LoadState(nil), p.waits...)
}

func (p *fakePage) Goto(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = append(p.visited, url)
	return p.gotoErr
}

func (p *fakePage) URL() string { return "https://survey.test/page" }

func (p *fakePage) WaitForLoad(ctx context.Context, state browser.LoadState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, state)
	return p.loadErr[state]
}

func (p *fakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.screenshot, p.shotErr
}

func (p *fakePage) Find(ctx context.Context, q browser.Query) ([]browser.Node, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.findErr[q]; err != nil {
		return nil, err
	}
	out := make([]browser.Node, 0, len(p.nodes[q]))
	for _, n := range p.nodes[q] {
		out = append(out, n)
	}
	return out, nil
}

type fakeNode struct {
	page *fakePage

	tag     string
	text    string
	attrs   map[string]string
	hidden  bool
	probErr error

	clickErr error
	fillErr  error
}

func button(text string) *fakeNode { return &fakeNode{tag: "BUTTON", text: text} }

func (n *fakeNode) name() string {
	if n.text != "" {
		return n.text
	}
	if v := n.attrs["placeholder"]; v != "" {
		return v
	}
	return n.attrs["aria-label"]
}

func (n *fakeNode) TagName(context.Context) (string, error) { return n.tag, n.probErr }

func (n *fakeNode) IsVisible(context.Context) (bool, error) { return !n.hidden, nil }

func (n *fakeNode) InnerText(context.Context) (string, error) { return n.text, n.probErr }

func (n *fakeNode) Attribute(_ context.Context, name string) (string, error) {
	return n.attrs[name], n.probErr
}

func (n *fakeNode) Click(context.Context) error {
	if n.clickErr != nil {
		return n.clickErr
	}
	n.page.record("click " + n.name())
	return nil
}

func (n *fakeNode) Fill(_ context.Context, value string) error {
	if n.fillErr != nil {
		return n.fillErr
	}
	n.page.record("fill " + n.name() + "=" + value)
	return nil
}

// surveyPage registers a generic page with the given visible buttons.
func surveyPage(labels ...string) (*fakePage, []*fakeNode) {
	p := newFakePage()
	nodes := make([]*fakeNode, 0, len(labels))
	for _, l := range labels {
		nodes = append(nodes, button(l))
	}
	p.add(browser.CSSQuery(CandidateSelector), nodes...)
	return p, nodes
}

// dobPage registers the date-of-birth widget.
func dobPage() *fakePage {
	p := newFakePage()
	p.add(browser.Query{CSS: "div", Text: "Date of birth"}, &fakeNode{tag: "div", text: "Date of birth"})
	p.add(browser.PlaceholderQuery("MM"), &fakeNode{tag: "input", attrs: map[string]string{"placeholder": "MM"}})
	p.add(browser.PlaceholderQuery("DD"), &fakeNode{tag: "input", attrs: map[string]string{"placeholder": "DD"}})
	p.add(browser.PlaceholderQuery("YYYY"), &fakeNode{tag: "input", attrs: map[string]string{"placeholder": "YYYY"}})
	p.add(browser.RoleQuery("option", "May"), &fakeNode{tag: "li", text: "May"})
	p.add(browser.TextQuery("1990", true), &fakeNode{tag: "li", text: "1990"})
	p.add(browser.CSSQuery(`button[type="submit"]`), button("Continue →"))
	return p
}

// -- Fake reasoning client --

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Decide(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// -- Fixtures --

func testPersona(t *testing.T) *config.Persona {
	t.Helper()
	p, err := config.NewPersona(map[string]any{
		"name": "Alex",
		"about_you": map[string]any{
			"date_of_birth": "1990-05-14",
			"country":       "US",
		},
	}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return p
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxPages:          20,
		LoadTimeout:       time.Second,
		ClickTimeout:      time.Second,
		SettleTimeout:     time.Second,
		ScreenshotTimeout: time.Second,
		ReasoningTimeout:  time.Second,
	}
}

var errBoom = errors.New("boom")
