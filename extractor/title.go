package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/shelfscan/models"
)

const (
	minTitleLineLen = 15
	maxTitleLineLen = 200
)

var titleStrategies = []strategy[string]{
	{"h1", titleFromHeading},
	{"category-line", titleFromCategoryLine},
	{"keyword-line", titleFromKeywordLine},
	{"og:title", titleFromOpenGraph},
}

func titleFromHeading(doc *Document) (string, bool) {
	var title string
	doc.Root.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title = strings.TrimSpace(s.Text())
		return title == ""
	})
	if title == "" {
		return "", false
	}
	return Truncate(title, models.MaxTitleLen), true
}

// reCategoryLine matches a line that opens with a capitalised product
// category, as marketplace titles usually do ("Panificadora Britânia ...").
var reCategoryLine = regexp.MustCompile(`^(?:Panificadora|Cafeteira|Liquidificador|Batedeira|Fritadeira|Air Fryer|Micro-?ondas|Forno|Sanduicheira|Torradeira|Chaleira|Bread Maker|Coffee Maker|Blender|Toaster|Kettle)\b`)

func titleFromCategoryLine(doc *Document) (string, bool) {
	for _, line := range doc.Lines() {
		if !reCategoryLine.MatchString(line) {
			continue
		}
		if n := RuneLen(line); n >= minTitleLineLen && n <= maxTitleLineLen {
			return line, true
		}
	}
	return "", false
}

// reTitleKeyword is matched against folded text, so keywords are written
// without accents.
var reTitleKeyword = regexp.MustCompile(`\b(?:britania|mondial|philco|oster|electrolux|arno|cadence|multilaser|black\+decker|panificadora|cafeteira|liquidificador|fritadeira|air fryer|bread maker|coffee maker)\b`)

func titleFromKeywordLine(doc *Document) (string, bool) {
	for _, line := range doc.Lines() {
		n := RuneLen(line)
		if n < minTitleLineLen || n > maxTitleLineLen {
			continue
		}
		if reTitleKeyword.MatchString(Fold(line)) {
			return line, true
		}
	}
	return "", false
}

func titleFromOpenGraph(doc *Document) (string, bool) {
	content, ok := doc.Root.Find(`meta[property="og:title"]`).First().Attr("content")
	if !ok {
		return "", false
	}
	content = Collapse(content)
	if content == "" {
		return "", false
	}
	return Truncate(content, models.MaxTitleLen), true
}
