package extractor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// skipTags are never part of visible text.
var skipTags = map[atom.Atom]struct{}{
	atom.Script:   {},
	atom.Style:    {},
	atom.Noscript: {},
	atom.Template: {},
	atom.Svg:      {},
	atom.Head:     {},
}

// blockTags start a new line when flattened.
var blockTags = map[atom.Atom]struct{}{
	atom.Address: {}, atom.Article: {}, atom.Aside: {}, atom.Blockquote: {},
	atom.Br: {}, atom.Dd: {}, atom.Div: {}, atom.Dl: {}, atom.Dt: {},
	atom.Figcaption: {}, atom.Figure: {}, atom.Footer: {}, atom.Form: {},
	atom.H1: {}, atom.H2: {}, atom.H3: {}, atom.H4: {}, atom.H5: {}, atom.H6: {},
	atom.Header: {}, atom.Hr: {}, atom.Li: {}, atom.Main: {}, atom.Nav: {},
	atom.Ol: {}, atom.P: {}, atom.Pre: {}, atom.Section: {}, atom.Table: {},
	atom.Tbody: {}, atom.Td: {}, atom.Th: {}, atom.Thead: {}, atom.Tr: {},
	atom.Ul: {}, atom.Button: {},
}

// Flatten renders the visible text of sel, one line per block element.
// Script, style and similar non-visible subtrees are skipped.
func Flatten(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		flattenNode(&b, n)
	}
	return b.String()
}

func flattenNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if _, skip := skipTags[n.DataAtom]; skip {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	_, block := blockTags[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flattenNode(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// Collapse trims s and replaces every whitespace run with a single space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TextOf is the collapsed visible text of sel.
func TextOf(sel *goquery.Selection) string {
	return Collapse(Flatten(sel))
}

// Fold lower-cases s and strips diacritics, so "Características" and
// "caracteristicas" compare equal. A transform.Chain carries buffers, so
// each call builds its own.
func Fold(s string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(chain, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// RuneLen counts characters, not bytes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
