package agent

import (
	"strconv"
	"strings"
)

// Decision is the element index chosen by the reasoning service.
type Decision int

// ParseDecision strips whitespace and quote characters from raw and parses
// the remainder as an integer.
func ParseDecision(raw string) (Decision, error) {
	cleaned := normalizeResponse(raw)
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, &ParseError{Raw: raw, Err: err}
	}
	return Decision(n), nil
}

func normalizeResponse(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer("'", "", `"`, "", "`", "").Replace(s)
	return strings.TrimSpace(s)
}
