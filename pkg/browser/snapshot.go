package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/imagegen-mcp/pkg/logging"
)

// DefaultSnapshotText bounds the visible text kept in a Snapshot.
const DefaultSnapshotText = 1500

// Snapshot is a compact text view of a page, logged when the UI does not
// look the way the automation expects.
type Snapshot struct {
	URL       string
	Title     string
	Buttons   []string
	Inputs    []string
	Text      string
	Truncated bool
}

// TakeSnapshot reads the page's DOM and condenses it.
func TakeSnapshot(page Page, maxText int) (*Snapshot, error) {
	content, err := page.Content()
	if err != nil {
		return nil, err
	}
	snap, err := ParseSnapshot(content, maxText)
	if err != nil {
		return nil, err
	}
	snap.URL = page.URL()
	return snap, nil
}

// ParseSnapshot condenses raw HTML, dropping scripts, styles and embedded
// documents.
func ParseSnapshot(rawHTML string, maxText int) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if maxText <= 0 {
		maxText = DefaultSnapshotText
	}

	w := &snapshotWalker{max: maxText, snap: &Snapshot{}}
	w.walk(doc)
	w.snap.Text = strings.TrimSpace(w.text.String())
	return w.snap, nil
}

type snapshotWalker struct {
	snap *Snapshot
	text strings.Builder
	max  int
}

func (w *snapshotWalker) walk(n *html.Node) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		w.addText(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) {
			return
		}
		switch {
		case tag == "title":
			w.snap.Title = strings.TrimSpace(nodeText(n))
			return
		case tag == "button" || attr(n, "role") == "button":
			if label := buttonLabel(n); label != "" {
				w.snap.Buttons = append(w.snap.Buttons, label)
			}
		case tag == "input" || tag == "textarea" || tag == "select":
			if desc := describeInput(tag, n); desc != "" {
				w.snap.Inputs = append(w.snap.Inputs, desc)
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *snapshotWalker) addText(s string) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" || w.snap.Truncated {
		return
	}

	if w.text.Len() > 0 {
		s = " " + s
	}
	if w.text.Len()+len(s) > w.max {
		s = s[:w.max-w.text.Len()]
		w.snap.Truncated = true
	}
	w.text.WriteString(s)
}

// isSkippedElement returns true for elements that never carry visible text
func isSkippedElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "iframe", "embed", "object", "svg", "template":
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && isSkippedElement(strings.ToLower(n.Data)) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func buttonLabel(n *html.Node) string {
	if label := nodeText(n); label != "" {
		return label
	}
	return attr(n, "aria-label")
}

// describeInput renders a form control as tag[type] name "placeholder".
// Hidden inputs are dropped and values are never included.
func describeInput(tag string, n *html.Node) string {
	typ := strings.ToLower(attr(n, "type"))
	if typ == "hidden" {
		return ""
	}

	var b strings.Builder
	b.WriteString(tag)
	if typ != "" {
		fmt.Fprintf(&b, "[%s]", typ)
	}
	if name := attr(n, "name"); name != "" {
		fmt.Fprintf(&b, " %s", name)
	}
	if hint := attr(n, "placeholder"); hint != "" {
		fmt.Fprintf(&b, " %q", hint)
	} else if label := attr(n, "aria-label"); label != "" {
		fmt.Fprintf(&b, " %q", label)
	}
	return b.String()
}

// String renders the snapshot on a few lines for the log.
func (s *Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "url=%s title=%q\n", s.URL, s.Title)
	fmt.Fprintf(&b, "buttons: %s\n", strings.Join(s.Buttons, " | "))
	fmt.Fprintf(&b, "inputs: %s\n", strings.Join(s.Inputs, " | "))
	b.WriteString("text: ")
	b.WriteString(s.Text)
	if s.Truncated {
		b.WriteString("...")
	}
	return b.String()
}

// LogSnapshot writes a snapshot of page to log at warn level. Failures to
// capture one are logged at debug level and otherwise ignored.
func LogSnapshot(log *logging.Logger, page Page, reason string) {
	snap, err := TakeSnapshot(page, DefaultSnapshotText)
	if err != nil {
		log.Debugf("no page snapshot for %s: %v", reason, err)
		return
	}
	log.Warnf("page snapshot (%s):\n%s", reason, snap)
}
