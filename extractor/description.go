package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/shelfscan/models"
)

const (
	minDescriptionLen = 30 // exclusive
	minFrameTextLen   = 20 // exclusive
)

var descriptionStrategies = []strategy[string]{
	{"heading", descriptionFromHeading},
	{"frames", descriptionFromFrames},
	{"selectors", descriptionFromSelectors},
	{"readability", descriptionFromReadability},
}

var reDescriptionHeading = regexp.MustCompile(`descricao|description`)

var reDescriptionLabel = regexp.MustCompile(`(?i)^\s*(?:descrição|descricao|description)\s*:?\s*`)

var descriptionBodies = compile(`div, p, section`)[0]

var descriptionSelectors = compile(
	`.ui-pdp-description`,
	`.ui-pdp-long-description`,
	`[data-description]`,
	`article[class*="description"]`,
	`section[class*="description"]`,
	`div[class*="description"]`,
)

// acceptDescription applies the length floor and the hard cut.
func acceptDescription(text string, floor int) (string, bool) {
	if RuneLen(text) <= floor {
		return "", false
	}
	return Truncate(text, models.MaxDescriptionLen), true
}

func descriptionFromHeading(doc *Document) (string, bool) {
	var (
		found string
		ok    bool
	)
	sectionHeadings.find(doc.Root.Selection).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !reDescriptionHeading.MatchString(Fold(TextOf(h))) {
			return true
		}
		found, ok = descriptionAfter(h)
		return !ok
	})
	return found, ok
}

// descriptionAfter reads the body following heading h. When nothing beyond
// the heading exists, the heading's container text minus the label is
// tried instead.
func descriptionAfter(h *goquery.Selection) (string, bool) {
	container := h.Parent()
	containerText := TextOf(container)

	candidates := []*goquery.Selection{h.NextAllMatcher(descriptionBodies.m).First(), container.Next()}
	for _, c := range candidates {
		if c.Length() == 0 {
			continue
		}
		text := TextOf(c)
		if text == "" || text == containerText {
			continue
		}
		if v, ok := acceptDescription(text, minDescriptionLen); ok {
			return v, true
		}
	}

	rest := strings.TrimSpace(strings.TrimPrefix(containerText, TextOf(h)))
	return acceptDescription(rest, minDescriptionLen)
}

func descriptionFromFrames(doc *Document) (string, bool) {
	for _, body := range doc.Frames {
		if v, ok := acceptDescription(Collapse(body), minFrameTextLen); ok {
			return v, true
		}
	}
	return "", false
}

func descriptionFromSelectors(doc *Document) (string, bool) {
	for _, c := range descriptionSelectors {
		var found string
		c.find(doc.Root.Selection).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := reDescriptionLabel.ReplaceAllString(TextOf(s), "")
			if v, ok := acceptDescription(text, minDescriptionLen); ok {
				found = v
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}
