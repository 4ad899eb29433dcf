package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/browser"
)

// CandidateSelector lists the tag categories scanned for interactive elements.
const CandidateSelector = "button, a, input, textarea, select, label"

// minLabelRunes is the shortest label an element may carry to be offered.
const minLabelRunes = 2

const (
	listingHeader = "[START of Interactive Elements]"
	listingFooter = "[END of Interactive Elements]"
)

// Element is one visible, labelled control of the page snapshot that
// produced it. The node reference is invalid after navigation.
type Element struct {
	Index   int
	Tag     string
	Label   string
	Visible bool

	node browser.Node
}

// Inventory maps contiguous indices from 0 to the elements of a single page
// snapshot. It is rebuilt for every page and never reused.
type Inventory struct {
	elements []Element
}

// Len returns the number of elements.
func (inv *Inventory) Len() int { return len(inv.elements) }

// Get returns the element with index i.
func (inv *Inventory) Get(i int) (Element, bool) {
	if i < 0 || i >= len(inv.elements) {
		return Element{}, false
	}
	return inv.elements[i], true
}

// Elements returns a copy of the elements in index order.
func (inv *Inventory) Elements() []Element {
	out := make([]Element, len(inv.elements))
	copy(out, inv.elements)
	return out
}

// Listing renders the inventory for the reasoning prompt, one
// "[index] <tag> label" line per element.
func (inv *Inventory) Listing() string {
	var sb strings.Builder
	sb.WriteString(listingHeader + "\n")
	for _, el := range inv.elements {
		fmt.Fprintf(&sb, "[%d] <%s> %s\n", el.Index, el.Tag, el.Label)
	}
	sb.WriteString(listingFooter)
	return sb.String()
}

// Enumerate scans the page for visible interactive elements and assigns
// indices in document order. Nodes that detach while being probed are
// skipped. An empty inventory is a valid result.
func Enumerate(ctx context.Context, page browser.Page, logger *zap.Logger) (*Inventory, error) {
	elements, err := scan(ctx, page, CandidateSelector, minLabelRunes, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Enumerated interactive elements", zap.Int("count", len(elements)))
	return &Inventory{elements: elements}, nil
}

func scan(ctx context.Context, page browser.Page, selector string, minRunes int, logger *zap.Logger) ([]Element, error) {
	nodes, err := page.Find(ctx, browser.CSSQuery(selector))
	if err != nil {
		return nil, browserErr("element scan", err)
	}

	elements := make([]Element, 0, len(nodes))
	for pos, node := range nodes {
		el, ok, err := probe(ctx, node)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, browserErr("element scan", ctxErr)
			}
			logger.Debug("Skipping element", zap.Int("position", pos), zap.Error(err))
			continue
		}
		if !ok || utf8.RuneCountInString(el.Label) < minRunes {
			continue
		}
		el.Index = len(elements)
		elements = append(elements, el)
	}
	return elements, nil
}

// probe reads one node. ok is false for invisible nodes.
func probe(ctx context.Context, node browser.Node) (Element, bool, error) {
	visible, err := node.IsVisible(ctx)
	if err != nil || !visible {
		return Element{}, false, err
	}
	tag, err := node.TagName(ctx)
	if err != nil {
		return Element{}, false, err
	}
	label, err := resolveLabel(ctx, node)
	if err != nil {
		return Element{}, false, err
	}
	return Element{Tag: strings.ToLower(tag), Label: label, Visible: true, node: node}, true, nil
}

// resolveLabel walks the label fallback chain: visible text, then
// aria-label, then placeholder.
func resolveLabel(ctx context.Context, node browser.Node) (string, error) {
	text, err := node.InnerText(ctx)
	if err != nil {
		return "", err
	}
	if label := normalizeLabel(text); label != "" {
		return label, nil
	}
	for _, attr := range []string{"aria-label", "placeholder"} {
		v, err := node.Attribute(ctx, attr)
		if err != nil {
			return "", err
		}
		if label := normalizeLabel(v); label != "" {
			return label, nil
		}
	}
	return "", nil
}

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
