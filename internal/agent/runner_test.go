package agent

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/nbenliogludev/survey-agent/internal/browser"
	"github.com/nbenliogludev/survey-agent/internal/config"
	"github.com/nbenliogludev/survey-agent/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRunner(t *testing.T, page *fakePage, client llm.Client, cfg config.AgentConfig) (*Runner, *bytes.Buffer) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	var out bytes.Buffer
	a := New(page, client, testPersona(t), cfg, logger)
	return NewRunner(page, a, cfg, NewReporter(&out), logger), &out
}

func TestRunner_ScenarioA_ValidDecisionProceeds(t *testing.T) {
	page, _ := surveyPage("Under 18", "18-24", "25-34", "35-44", "45+")
	client := new(mockLLM)
	client.On("Decide", mock.Anything, mock.Anything).Return("2", nil)

	cfg := testAgentConfig()
	cfg.MaxPages = 2
	runner, out := newTestRunner(t, page, client, cfg)

	report := runner.Run(context.Background())

	assert.Equal(t, ReasonBoundExhausted, report.Reason)
	assert.True(t, report.OK())
	require.Len(t, report.Outcomes, 2)
	first := report.Outcomes[0]
	assert.True(t, first.OK())
	assert.Equal(t, GenericPage, first.Kind)
	assert.Equal(t, "generic", first.Handler)
	require.NotNil(t, first.Decision)
	assert.Equal(t, 2, *first.Decision)
	assert.Equal(t, "25-34", first.Label)

	assert.Equal(t, []string{"click 25-34", "click 25-34"}, page.recorded())
	client.AssertNumberOfCalls(t, "Decide", 2)
	assert.Contains(t, out.String(), "FINAL STATUS: SUCCESS")
}

func TestRunner_ScenarioB_InvalidDecisionStopsRun(t *testing.T) {
	page, _ := surveyPage("Under 18", "18-24", "25-34", "35-44", "45+")
	client := new(mockLLM)
	client.On("Decide", mock.Anything, mock.Anything).Return("9", nil)

	runner, out := newTestRunner(t, page, client, testAgentConfig())
	report := runner.Run(context.Background())

	assert.Equal(t, ReasonPageFailed, report.Reason)
	assert.False(t, report.OK())
	require.Len(t, report.Outcomes, 1)
	var sel *InvalidSelectionError
	require.ErrorAs(t, report.Err(), &sel)
	assert.Equal(t, 9, sel.Index)
	assert.Equal(t, 5, sel.Size)

	assert.Empty(t, page.recorded())
	client.AssertNumberOfCalls(t, "Decide", 1)
	assert.Contains(t, out.String(), "FINAL STATUS: ERROR")
}

func TestRunner_ParseErrorNeverActivates(t *testing.T) {
	page, _ := surveyPage("Yes", "No")
	client := new(mockLLM)
	client.On("Decide", mock.Anything, mock.Anything).Return("I choose the button", nil)

	runner, _ := newTestRunner(t, page, client, testAgentConfig())
	report := runner.Run(context.Background())

	var parseErr *ParseError
	require.ErrorAs(t, report.Err(), &parseErr)
	assert.Equal(t, ReasonPageFailed, report.Reason)
	assert.Empty(t, page.recorded())
	assert.NotContains(t, page.waited(), browser.LoadStateNetworkidle)
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	page, _ := surveyPage("Yes", "No")
	client := new(mockLLM)
	client.On("Decide", mock.Anything, mock.Anything).Return("1", nil).Twice()
	client.On("Decide", mock.Anything, mock.Anything).Return("x", nil).Once()

	runner, _ := newTestRunner(t, page, client, testAgentConfig())
	report := runner.Run(context.Background())

	require.Len(t, report.Outcomes, 3)
	assert.True(t, report.Outcomes[0].OK())
	assert.True(t, report.Outcomes[1].OK())
	assert.False(t, report.Outcomes[2].OK())
	client.AssertNumberOfCalls(t, "Decide", 3)
}

func TestRunner_NeverExceedsBound(t *testing.T) {
	for _, bound := range []int{1, 3, 20} {
		page, _ := surveyPage("Yes", "No")
		client := new(mockLLM)
		client.On("Decide", mock.Anything, mock.Anything).Return("0", nil)

		cfg := testAgentConfig()
		cfg.MaxPages = bound
		runner, _ := newTestRunner(t, page, client, cfg)
		report := runner.Run(context.Background())

		assert.Len(t, report.Outcomes, bound)
		assert.Equal(t, ReasonBoundExhausted, report.Reason)
	}
}

func TestRunner_DateOfBirthPageSkipsReasoning(t *testing.T) {
	page := dobPage()
	client := new(mockLLM)

	cfg := testAgentConfig()
	cfg.MaxPages = 1
	runner, _ := newTestRunner(t, page, client, cfg)
	report := runner.Run(context.Background())

	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].OK())
	assert.Equal(t, DateOfBirthPage, report.Outcomes[0].Kind)
	assert.Equal(t, "date_of_birth", report.Outcomes[0].Handler)
	client.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestRunner_LoadTimeoutFailsPage(t *testing.T) {
	page, _ := surveyPage("Yes", "No")
	page.loadErr[browser.LoadStateDomcontentloaded] = browser.ErrTimeout
	client := new(mockLLM)

	runner, _ := newTestRunner(t, page, client, testAgentConfig())
	report := runner.Run(context.Background())

	var timeout *NetworkTimeout
	require.ErrorAs(t, report.Err(), &timeout)
	assert.Equal(t, "page load", timeout.Op)
	assert.Equal(t, ReasonPageFailed, report.Reason)
	assert.Equal(t, UnclassifiedPage, report.Outcomes[0].Kind)
	client.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestRunner_ClassificationFailureIsUnclassified(t *testing.T) {
	page, _ := surveyPage("Yes", "No")
	page.findErr[browser.Query{CSS: "div", Text: "Date of birth"}] = errBoom
	client := new(mockLLM)

	runner, out := newTestRunner(t, page, client, testAgentConfig())
	report := runner.Run(context.Background())

	var actionErr *ActionError
	require.ErrorAs(t, report.Err(), &actionErr)
	assert.Equal(t, "classify", actionErr.Op)
	assert.Equal(t, UnclassifiedPage, report.Outcomes[0].Kind)
	assert.Contains(t, out.String(), "KIND=unclassified | HANDLER=-")
	assert.NotContains(t, out.String(), "KIND=generic")
	client.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestAgent_HandleWithoutGenericHandler(t *testing.T) {
	page := newFakePage()
	a := NewWithHandlers(page, map[PageKind]PageHandler{}, zaptest.NewLogger(t))

	var name string
	var err error
	require.NotPanics(t, func() {
		name, _, err = a.Handle(context.Background(), DateOfBirthPage)
	})
	assert.ErrorIs(t, err, ErrNoHandler)
	assert.Empty(t, name)
}

func TestRunner_ReasoningFailures(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		page, _ := surveyPage("Yes", "No")
		client := new(mockLLM)
		client.On("Decide", mock.Anything, mock.Anything).Return("", &llm.APIError{Provider: "test", StatusCode: 500, Err: errBoom})

		runner, _ := newTestRunner(t, page, client, testAgentConfig())
		report := runner.Run(context.Background())

		var reasoning *ReasoningError
		require.ErrorAs(t, report.Err(), &reasoning)
		assert.Empty(t, page.recorded())
	})

	t.Run("deadline", func(t *testing.T) {
		page, _ := surveyPage("Yes", "No")
		client := new(mockLLM)
		client.On("Decide", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded)

		runner, _ := newTestRunner(t, page, client, testAgentConfig())
		report := runner.Run(context.Background())

		var timeout *NetworkTimeout
		require.ErrorAs(t, report.Err(), &timeout)
		assert.Equal(t, "reasoning", timeout.Op)
	})
}

func TestRunner_Canceled(t *testing.T) {
	page, _ := surveyPage("Yes", "No")
	client := new(mockLLM)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, out := newTestRunner(t, page, client, testAgentConfig())
	report := runner.Run(ctx)

	assert.Equal(t, ReasonCanceled, report.Reason)
	assert.Empty(t, report.Outcomes)
	assert.NotEmpty(t, report.RunID)
	assert.Contains(t, out.String(), "(no pages attempted)")
}

func TestRunner_CanceledDuringPage(t *testing.T) {
	page, _ := surveyPage("Yes", "No")
	ctx, cancel := context.WithCancel(context.Background())
	client := new(mockLLM)
	client.On("Decide", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled)

	runner, _ := newTestRunner(t, page, client, testAgentConfig())
	report := runner.Run(ctx)

	assert.Equal(t, ReasonCanceled, report.Reason)
	require.Len(t, report.Outcomes, 1)
}

func TestReporter_TraceLine(t *testing.T) {
	idx := 2
	line := traceLine(Outcome{Page: 3, Kind: GenericPage, Handler: "generic", Decision: &idx, Label: "Yes"})
	assert.Equal(t, `PAGE 3 | KIND=generic | HANDLER=generic | ACTION=click[2] "Yes" | TIME=0s | STATUS=ok`, line)

	failed := traceLine(Outcome{Page: 1, Err: errBoom})
	assert.Contains(t, failed, "HANDLER=- | ACTION=- ")
	assert.Contains(t, failed, "STATUS=FAILED | ERR=boom")
}
