// Package htmlutil holds helpers for walking parsed html.
package htmlutil

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// GetTextLines returns the text nodes under node in document order, text that was
// visually split by tags ends up on separate lines. Text nodes containing newlines
// are split further.
func GetTextLines(node *html.Node) []string {
	var lines []string
	collectText(node, &lines)
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func collectText(node *html.Node, lines *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		*lines = append(*lines, strings.Split(node.Data, "\n")...)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, lines)
	}
}

// ResolveUrl turns the protocol relative (//host/x) and root relative (/x) forms of
// a link into absolute urls against origin. Anything else is returned unchanged.
func ResolveUrl(origin *url.URL, link string) string {
	switch {
	case link == "":
		return ""
	case strings.HasPrefix(link, "//"):
		return origin.Scheme + ":" + link
	case strings.HasPrefix(link, "/"):
		return origin.Scheme + "://" + origin.Host + link
	}
	return link
}
