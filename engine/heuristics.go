package engine

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// minPlainText is the visible-text floor below which a plain fetch is
// assumed to be an unrendered shell.
const minPlainText = 200

var (
	reNoscriptJS   = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?|ative|habilite)\s+(o\s+)?javascript`)
	reEmptySPARoot = regexp.MustCompile(`<div id="(root|app|__next)">\s*</div>`)
)

// needsRendering guesses whether plain markup needs a browser to show
// product content: almost no visible text, an empty SPA root, a
// JavaScript-required notice, or a script-heavy page with little text.
func needsRendering(body string) (bool, string) {
	text := visibleText(body)
	if len(text) < minPlainText {
		return true, "little visible text"
	}

	lower := strings.ToLower(body)
	if reEmptySPARoot.MatchString(lower) {
		return true, "empty application root"
	}
	if reNoscriptJS.MatchString(lower) {
		return true, "javascript required notice"
	}
	if strings.Count(lower, "<script") > 10 && len(text) < 500 {
		return true, "script-heavy page"
	}
	return false, ""
}

// visibleText extracts the text inside <body>, skipping script, style and
// noscript content. Used for heuristics only.
func visibleText(body string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
