package extractor

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// descriptionFromReadability is the last resort: the Readability excerpt
// of the whole page (usually the meta description or the lead paragraph).
func descriptionFromReadability(doc *Document) (string, bool) {
	parsedURL, err := nurl.Parse(doc.URL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", doc.URL, "error", err)
		return "", false
	}

	rawHTML, err := doc.Root.Html()
	if err != nil {
		return "", false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", doc.URL, "error", err)
		return "", false
	}

	return acceptDescription(Collapse(article.Excerpt), minDescriptionLen)
}
