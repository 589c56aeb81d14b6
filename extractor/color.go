package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/shelfscan/models"
)

// Rendered pages expose the selected variation as structured markup;
// plain pages are searched for a "Cor:" label in the flattened text.
var colorStrategies = []strategy[string]{
	{"structural", colorFromMarkup},
	{"label-text", colorFromText},
}

var colorSelectors = compile(
	`[class*="color"] span`,
	`span[class*="color"]`,
	`span[class*="Color"]`,
	`li[class*="color"] span`,
	`[data-attribute-name="color"] span`,
	`button[class*="color"]`,
	`div[class*="attribute"] span:nth-child(2)`,
)

// reColorWord is the closed color vocabulary, matched against folded text.
var reColorWord = regexp.MustCompile(`\b(?:branc[oa]|pret[oa]|prata|cinza|vermelh[oa]|azul|verde|amarel[oa]|rosa|rox[oa]|lilas|laranja|marrom|bege|dourad[oa]|inox|grafite|chumbo|vinho|creme|cobre|bronze|transparente|white|black|silver|gr[ae]y|red|blue|green|yellow|pink|purple|orange|brown|beige|gold|stainless|graphite)\b`)

var reColorLabelPrefix = regexp.MustCompile(`(?i)^\s*(?:cor|colou?r)\s*:\s*`)

// reColorLabel captures the phrase after a color label, stopping at
// punctuation, a line break, or the next attribute label.
var reColorLabel = regexp.MustCompile(`(?i)\b(?:cor|colou?r)\s*:\s*([\p{L} ]+?)\s*(?:[,.;:|()\n\t]|\b(?:voltagem|potência|potencia|tensão|tensao|marca|voltage|power|brand)\b|$)`)

var colorPlaceholders = []string{"escolha", "selecione", "opcoes", "produtos", "veja", "choose", "select", "options"}

// hasPriceMarker reports text that reads like a discount or price badge.
func hasPriceMarker(s string) bool {
	return strings.ContainsAny(s, "%$€£¥")
}

func colorFromMarkup(doc *Document) (string, bool) {
	if doc.Mode != ModeRendered {
		return "", false
	}
	var color string
	for _, c := range colorSelectors {
		c.find(doc.Root.Selection).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := reColorLabelPrefix.ReplaceAllString(TextOf(s), "")
			if acceptColor(text) && reColorWord.MatchString(Fold(text)) {
				color = text
				return false
			}
			return true
		})
		if color != "" {
			return color, true
		}
	}
	return "", false
}

func colorFromText(doc *Document) (string, bool) {
	if doc.Mode != ModePlain {
		return "", false
	}
	for _, m := range reColorLabel.FindAllStringSubmatch(doc.Text(), -1) {
		phrase := Collapse(m[1])
		if !acceptColor(phrase) || isPlaceholder(phrase) {
			continue
		}
		return phrase, true
	}
	return "", false
}

func acceptColor(s string) bool {
	return s != "" && RuneLen(s) <= models.MaxColorLen && !hasPriceMarker(s)
}

func isPlaceholder(s string) bool {
	folded := Fold(s)
	for _, w := range colorPlaceholders {
		if strings.Contains(folded, w) {
			return true
		}
	}
	return false
}
