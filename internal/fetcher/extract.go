package fetcher

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// selector is a minimal CSS-like matcher: tag, #id, .class or [role=...]
type selector struct {
	tag   atom.Atom
	id    string
	class string
	role  string
}

// contentSelectors are tried in order; the first one with any match wins.
var contentSelectors = []selector{
	{tag: atom.Main},
	{tag: atom.Article},
	{role: "main"},
	{id: "content"},
	{class: "content"},
	{id: "main-content"},
	{class: "main-content"},
	{class: "post-content"},
	{class: "entry-content"},
}

// elements whose text never counts as page content
var skipText = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
}

func (s selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != 0 && n.DataAtom != s.tag {
		return false
	}
	if s.id != "" && attr(n, "id") != s.id {
		return false
	}
	if s.role != "" && !strings.EqualFold(attr(n, "role"), s.role) {
		return false
	}
	if s.class != "" && !hasClass(n, s.class) {
		return false
	}
	return true
}

func findTitle(doc *html.Node) string {
	if n := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Title && n.Namespace == ""
	}); n != nil {
		if title := textOf(n); title != "" {
			return title
		}
	}
	if n := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.H1
	}); n != nil {
		return textOf(n)
	}
	return ""
}

func findDescription(doc *html.Node) string {
	var description, ogDescription string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.Meta {
			return true
		}
		content := cleanText(attr(n, "content"))
		switch {
		case description == "" && strings.EqualFold(attr(n, "name"), "description"):
			description = content
		case ogDescription == "" && strings.EqualFold(attr(n, "property"), "og:description"):
			ogDescription = content
		}
		return true
	})
	if description != "" {
		return description
	}
	return ogDescription
}

func findContent(doc *html.Node) string {
	for _, sel := range contentSelectors {
		var parts []string
		walk(doc, func(n *html.Node) bool {
			if sel.matches(n) {
				if text := textOf(n); text != "" {
					parts = append(parts, text)
				}
				// nested matches are already covered by this node's text
				return false
			}
			return true
		})
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return ""
}

// textOf returns the whitespace-normalized visible text under n
func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && skipText[c.DataAtom] {
			return false
		}
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return cleanText(b.String())
}

// walk visits n and its descendants depth-first. Returning false from visit
// skips the node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findFirst(doc *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(doc, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
