package extractor

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

var sectionHeadings = compile(`h1, h2, h3, h4`)[0]

// sectionContainers finds headings whose folded text matches label and
// returns, per heading, the elements most likely to hold the section
// body: the heading's own following siblings, the heading's parent's next
// sibling, then the parent itself.
func sectionContainers(doc *Document, label *regexp.Regexp) []*goquery.Selection {
	var out []*goquery.Selection
	sectionHeadings.find(doc.Root.Selection).Each(func(_ int, h *goquery.Selection) {
		if !label.MatchString(Fold(TextOf(h))) {
			return
		}
		parent := h.Parent()
		for _, c := range []*goquery.Selection{h.NextAll(), parent.Next(), parent} {
			if c.Length() > 0 {
				out = append(out, c)
			}
		}
	})
	return out
}
