package agent

import (
	"context"

	"github.com/nbenliogludev/survey-agent/internal/browser"
)

// PageKind tags the page shapes the agent distinguishes.
type PageKind int

const (
	GenericPage PageKind = iota
	DateOfBirthPage

	// UnclassifiedPage marks a page that failed before classification.
	UnclassifiedPage PageKind = -1
)

func (k PageKind) String() string {
	switch k {
	case DateOfBirthPage:
		return "date_of_birth"
	case UnclassifiedPage:
		return "unclassified"
	default:
		return "generic"
	}
}

const (
	dobPromptText       = "Date of birth"
	monthPlaceholder    = "MM"
	dayPlaceholder      = "DD"
	yearPlaceholder     = "YYYY"
	dobPromptContainers = "div"
)

// Signature records the structural features the classifier looks at.
type Signature struct {
	DateOfBirthPrompt bool
	MonthInput        bool
	DayInput          bool
	YearInput         bool
}

// Classify is a pure function of the signature: a date-of-birth prompt with
// month, day and year inputs is a DateOfBirthPage, anything else generic.
func Classify(sig Signature) PageKind {
	if sig.DateOfBirthPrompt && sig.MonthInput && sig.DayInput && sig.YearInput {
		return DateOfBirthPage
	}
	return GenericPage
}

// Probe reads the signature of the current page.
func Probe(ctx context.Context, page browser.Page) (Signature, error) {
	var sig Signature
	checks := []struct {
		q   browser.Query
		dst *bool
	}{
		{browser.Query{CSS: dobPromptContainers, Text: dobPromptText}, &sig.DateOfBirthPrompt},
		{browser.PlaceholderQuery(monthPlaceholder), &sig.MonthInput},
		{browser.PlaceholderQuery(dayPlaceholder), &sig.DayInput},
		{browser.PlaceholderQuery(yearPlaceholder), &sig.YearInput},
	}
	for _, c := range checks {
		nodes, err := page.Find(ctx, c.q)
		if err != nil {
			return Signature{}, browserErr("classify", err)
		}
		*c.dst = len(nodes) > 0
		if !*c.dst {
			// Later features cannot change the outcome.
			break
		}
	}
	return sig, nil
}
