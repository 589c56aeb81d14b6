package extractor

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// compiled is a precompiled CSS selector paired with its source text for
// trace lines.
type compiled struct {
	css string
	m   goquery.Matcher
}

// compile parses every selector once at package init. A bad selector is a
// programming error and panics at startup.
func compile(selectors ...string) []compiled {
	out := make([]compiled, len(selectors))
	for i, s := range selectors {
		out[i] = compiled{css: s, m: cascadia.MustCompile(s)}
	}
	return out
}

func (c compiled) find(sel *goquery.Selection) *goquery.Selection {
	return sel.FindMatcher(c.m)
}
