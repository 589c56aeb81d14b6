package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/shelfscan/models"
)

var reSpecsHeading = regexp.MustCompile(`caracteristica|especifica|specification|characteristic|ficha tecnica`)

var (
	specRows      = compile(`tr`)[0]
	specCells     = compile(`th, td`)[0]
	specKeyValues = compile(`[class*="key-value"], [class*="attribute-row"], [data-spec-name]`)[0]
	specColonText = compile(`li, p, span, dd, div[class*="spec"]`)[0]
	specSpans     = compile(`span`)[0]

	// Page-level containers used when no labelled heading exists.
	specFallbackContainers = compile(`.ui-pdp-specs, table.andes-table, [class*="specs"], [class*="attributes"]`)[0]
)

var specStrategies = []strategy[map[string]string]{
	{"heading/table-rows", fromSpecSection(pairsFromRows)},
	{"heading/key-value", fromSpecSection(pairsFromKeyValue)},
	{"heading/colon-text", fromSpecSection(pairsFromColonText)},
	{"page/table-rows", fromSpecFallback(pairsFromRows)},
	{"page/key-value", fromSpecFallback(pairsFromKeyValue)},
}

type pairFinder func(container *goquery.Selection, into map[string]string)

// fromSpecSection applies find to each labelled section container and
// returns the pairs of the first container that yields any.
func fromSpecSection(find pairFinder) func(*Document) (map[string]string, bool) {
	return func(doc *Document) (map[string]string, bool) {
		return firstPairs(sectionContainers(doc, reSpecsHeading), find)
	}
}

func fromSpecFallback(find pairFinder) func(*Document) (map[string]string, bool) {
	return func(doc *Document) (map[string]string, bool) {
		var containers []*goquery.Selection
		specFallbackContainers.find(doc.Root.Selection).Each(func(_ int, s *goquery.Selection) {
			containers = append(containers, s)
		})
		return firstPairs(containers, find)
	}
}

func firstPairs(containers []*goquery.Selection, find pairFinder) (map[string]string, bool) {
	for _, c := range containers {
		pairs := map[string]string{}
		find(c, pairs)
		if len(pairs) > 0 {
			return pairs, true
		}
	}
	return nil, false
}

func pairsFromRows(container *goquery.Selection, into map[string]string) {
	rows := specRows.find(container).AddSelection(container.FilterMatcher(specRows.m))
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenMatcher(specCells.m)
		if cells.Length() < 2 {
			return
		}
		addSpec(into, TextOf(cells.Eq(0)), TextOf(cells.Eq(1)))
	})
}

func pairsFromKeyValue(container *goquery.Selection, into map[string]string) {
	specKeyValues.find(container).Each(func(_ int, kv *goquery.Selection) {
		parts := specSpans.find(kv)
		if parts.Length() < 2 {
			parts = kv.Children()
		}
		if parts.Length() < 2 {
			return
		}
		addSpec(into, TextOf(parts.Eq(0)), TextOf(parts.Eq(1)))
	})
}

func pairsFromColonText(container *goquery.Selection, into map[string]string) {
	items := specColonText.find(container).AddSelection(container.FilterMatcher(specColonText.m))
	items.Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		key, value, found := strings.Cut(TextOf(s), ":")
		if !found {
			return
		}
		addSpec(into, key, value)
	})
}

// addSpec validates one pair and stores it; a later duplicate key
// overwrites an earlier one.
func addSpec(into map[string]string, key, value string) bool {
	key = strings.TrimSpace(strings.TrimRightFunc(key, func(r rune) bool {
		return r == ':' || r == '：' || unicode.IsSpace(r)
	}))
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return false
	}
	if RuneLen(key) > models.MaxSpecKeyLen || RuneLen(value) > models.MaxSpecValueLen {
		return false
	}
	into[key] = value
	return true
}
