package extractor

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/shelfscan/models"
)

// reHighlightsHeading is matched against folded heading text.
var reHighlightsHeading = regexp.MustCompile(`o que voce precisa saber|what you need to know|destaques|highlights`)

var featureItems = compile(`ul[class*="features-list"] li`, `li`)

// Generic selectors ordered from most to least specific. Broad selectors
// demand several matches so a stray menu list does not win.
var bulletSelectors = []struct {
	css      string
	minCount int
}{
	{`[class*="highlight"] li`, 1},
	{`li[class*="highlight"]`, 1},
	{`span[class*="highlight"]`, 1},
	{`.ui-pdp-features li`, 1},
	{`div[class*="feature"] li`, 1},
	{`ul.andes-list li`, 3},
	{`li[role="listitem"]`, 3},
	{`main ul li`, 3},
}

var bulletStrategies = buildBulletStrategies()

func buildBulletStrategies() []strategy[[]string] {
	out := []strategy[[]string]{{"highlights-heading", bulletsFromHeading}}
	for _, bs := range bulletSelectors {
		c := compile(bs.css)[0]
		minCount := bs.minCount
		out = append(out, strategy[[]string]{
			name: c.css,
			fn: func(doc *Document) ([]string, bool) {
				return bulletsFrom(c.find(doc.Root.Selection), minCount)
			},
		})
	}
	return out
}

func bulletsFromHeading(doc *Document) ([]string, bool) {
	for _, container := range sectionContainers(doc, reHighlightsHeading) {
		for _, c := range featureItems {
			if items, ok := bulletsFrom(c.find(container), 1); ok {
				return items, true
			}
		}
	}
	return nil, false
}

// bulletsFrom keeps items inside the length band, dropping exact
// duplicates while preserving document order.
func bulletsFrom(items *goquery.Selection, minCount int) ([]string, bool) {
	if items.Length() < minCount {
		return nil, false
	}
	seen := make(map[string]struct{}, items.Length())
	out := make([]string, 0, items.Length())
	items.Each(func(_ int, s *goquery.Selection) {
		text := TextOf(s)
		n := RuneLen(text)
		if n < models.MinBulletLen || n > models.MaxBulletLen {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	})
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
