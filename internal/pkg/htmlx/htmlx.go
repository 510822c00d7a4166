// Package htmlx holds small helpers over golang.org/x/net/html used by
// the scrapers.
package htmlx

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of the named attribute, or "".
func Attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether the element carries the CSS class.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// HasAllClasses reports whether the element carries every listed class.
func HasAllClasses(n *html.Node, classes ...string) bool {
	for _, c := range classes {
		if !HasClass(n, c) {
			return false
		}
	}
	return true
}

// Walk visits n and its descendants depth-first until fn returns false.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// FindAll collects every element node matching pred.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Find returns the first element node matching pred, or nil.
func Find(root *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindByClass returns the first element with the given tag (any tag when
// empty) carrying the class.
func FindByClass(root *html.Node, tag, class string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		if tag != "" && n.Data != tag {
			return false
		}
		return HasClass(n, class)
	})
}

// FindAllByClass returns every element with the given tag (any tag when
// empty) carrying the class.
func FindAllByClass(root *html.Node, tag, class string) []*html.Node {
	return FindAll(root, func(n *html.Node) bool {
		if tag != "" && n.Data != tag {
			return false
		}
		return HasClass(n, class)
	})
}

// FindByID returns the element with the given id attribute, or nil.
func FindByID(root *html.Node, id string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		return Attr(n, "id") == id
	})
}

// Text collects the text under n with fields separated by sep, skipping
// subtrees whose tag is listed in skipTags.
func Text(n *html.Node, sep string, skipTags ...string) string {
	skip := make(map[string]bool, len(skipTags))
	for _, t := range skipTags {
		skip[t] = true
	}
	var parts []string
	Walk(n, func(node *html.Node) bool {
		if node.Type == html.ElementNode && skip[node.Data] {
			return false
		}
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				parts = append(parts, t)
			}
		}
		return true
	})
	return strings.Join(parts, sep)
}
