package agent

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Reporter prints operator-facing progress and the final execution report.
type Reporter struct {
	out io.Writer
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) PageStarted(n int) {
	fmt.Fprintf(r.out, "\n--- Attempting Page %d ---\n", n)
}

func (r *Reporter) PageFinished(o Outcome) {
	if o.OK() {
		fmt.Fprintf(r.out, "Page %d solved by %s handler: %s\n", o.Page, o.Handler, describe(o))
		return
	}
	fmt.Fprintf(r.out, "Page %d failed: %v\n", o.Page, o.Err)
}

func (r *Reporter) Finished(rep *Report) {
	fmt.Fprintln(r.out, "\n===== EXECUTION REPORT =====")
	fmt.Fprintf(r.out, "Run: %s\n", rep.RunID)
	fmt.Fprintf(r.out, "Duration: %s\n", rep.Duration.Truncate(time.Millisecond))
	fmt.Fprintf(r.out, "Exit reason: %s\n\n", humanizeReason(rep.Reason))

	fmt.Fprintln(r.out, "--- PAGE TRACE ---")
	if len(rep.Outcomes) == 0 {
		fmt.Fprintln(r.out, "(no pages attempted)")
	}
	for _, o := range rep.Outcomes {
		fmt.Fprintln(r.out, traceLine(o))
	}

	if err := rep.Err(); err != nil {
		fmt.Fprintf(r.out, "\nFINAL STATUS: ERROR: %v\n", err)
	} else {
		fmt.Fprintln(r.out, "\nFINAL STATUS: SUCCESS")
	}
	fmt.Fprintln(r.out, "===== END OF REPORT =====")
}

func traceLine(o Outcome) string {
	status := "ok"
	if !o.OK() {
		status = "FAILED"
	}
	parts := []string{
		fmt.Sprintf("PAGE %d", o.Page),
		"KIND=" + o.Kind.String(),
		"HANDLER=" + orDash(o.Handler),
		"ACTION=" + describe(o),
		"TIME=" + o.Duration.Truncate(time.Millisecond).String(),
		"STATUS=" + status,
	}
	if o.Err != nil {
		parts = append(parts, "ERR="+o.Err.Error())
	}
	return strings.Join(parts, " | ")
}

func describe(o Outcome) string {
	if o.Decision != nil {
		return fmt.Sprintf("click[%d] %q", *o.Decision, o.Label)
	}
	if o.Label != "" {
		return fmt.Sprintf("%q", o.Label)
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func humanizeReason(reason Reason) string {
	switch reason {
	case ReasonBoundExhausted:
		return "page limit reached"
	case ReasonPageFailed:
		return "stopped at first failed page"
	case ReasonCanceled:
		return "execution was interrupted (signal or cancellation)"
	default:
		return string(reason)
	}
}
