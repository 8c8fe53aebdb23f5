package normalize

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML extracts the visible text of an HTML fragment, skipping script
// and style subtrees and collapsing whitespace. Plain text passes through
// with only whitespace normalization.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapseWhitespace(fragment)
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return collapseWhitespace(fragment)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseWhitespace(buf.String())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
