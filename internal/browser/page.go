package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoadState is a page lifecycle milestone a caller can wait for.
type LoadState string

const (
	LoadStateLoad             LoadState = "load"
	LoadStateDomcontentloaded LoadState = "domcontentloaded"
	LoadStateNetworkidle      LoadState = "networkidle"
)

// ErrTimeout marks any driver operation that exceeded its deadline.
var ErrTimeout = errors.New("browser operation timed out")

// Page is the live page the agent drives. Every blocking call honours the
// context deadline.
type Page interface {
	Goto(ctx context.Context, url string) error
	URL() string
	WaitForLoad(ctx context.Context, state LoadState) error
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// Find returns every node matching q in document order.
	Find(ctx context.Context, q Query) ([]Node, error)
}

// Node references a DOM node of the page as it was when Find ran.
type Node interface {
	TagName(ctx context.Context) (string, error)
	IsVisible(ctx context.Context) (bool, error)
	InnerText(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
}

// Session owns the browser process and its single page.
type Session interface {
	Page() Page
	Close() error
}

// Query addresses nodes. Exactly one of CSS, Placeholder, Role or Text selects
// the base set; Text additionally filters a CSS selection by contained text.
type Query struct {
	CSS         string
	Placeholder string
	Role        string
	// Name is the accessible name used with Role.
	Name string
	Text string
	// Exact requires full-string text/name matches instead of substrings.
	Exact bool
}

// CSSQuery selects by CSS selector.
func CSSQuery(selector string) Query { return Query{CSS: selector} }

// PlaceholderQuery selects inputs by placeholder.
func PlaceholderQuery(placeholder string) Query { return Query{Placeholder: placeholder} }

// RoleQuery selects by ARIA role and accessible name.
func RoleQuery(role, name string) Query { return Query{Role: role, Name: name} }

// TextQuery selects by text content.
func TextQuery(text string, exact bool) Query { return Query{Text: text, Exact: exact} }

func (q Query) String() string {
	var parts []string
	if q.CSS != "" {
		parts = append(parts, "css="+q.CSS)
	}
	if q.Placeholder != "" {
		parts = append(parts, "placeholder="+q.Placeholder)
	}
	if q.Role != "" {
		parts = append(parts, "role="+q.Role)
	}
	if q.Name != "" {
		parts = append(parts, fmt.Sprintf("name=%q", q.Name))
	}
	if q.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", q.Text))
	}
	if q.Exact {
		parts = append(parts, "exact")
	}
	return strings.Join(parts, " ")
}

// Validate rejects queries with no selector or an ambiguous base selector.
func (q Query) Validate() error {
	bases := 0
	for _, s := range []string{q.CSS, q.Placeholder, q.Role} {
		if s != "" {
			bases++
		}
	}
	if bases == 0 && q.Text == "" {
		return fmt.Errorf("empty query")
	}
	if bases > 1 {
		return fmt.Errorf("ambiguous query %s", q)
	}
	return nil
}

// timeoutMillis converts the context deadline to a driver timeout in
// milliseconds, falling back to def when the context has none.
func timeoutMillis(ctx context.Context, def time.Duration) float64 {
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining < time.Millisecond {
			remaining = time.Millisecond
		}
		return float64(remaining.Milliseconds())
	}
	return float64(def.Milliseconds())
}

// timeoutErr wraps err with ErrTimeout when it stems from a deadline.
func timeoutErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
