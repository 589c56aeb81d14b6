package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Mode records how a document was fetched.
type Mode string

const (
	ModePlain    Mode = "plain"
	ModeRendered Mode = "rendered"
)

// Document is a fetched, parsed product page. It is owned by a single
// extraction call and discarded when that call returns.
type Document struct {
	Root *goquery.Document

	// URL is the final URL after redirects.
	URL  string
	Mode Mode

	// RawLength is the size of the fetched markup in bytes.
	RawLength int

	// TextLength is the visible text length in characters. Rendered
	// fetches report the browser's innerText length; plain fetches use
	// flattened body text with whitespace runs collapsed.
	TextLength int

	// Frames holds the body text of each embedded frame, in document
	// order. Only rendered fetches populate it.
	Frames []string

	text    string
	hasText bool
}

// Parse builds a Document from decoded markup.
func Parse(rawHTML, pageURL string, mode Mode) (*Document, error) {
	root, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extractor: parse html: %w", err)
	}
	d := &Document{
		Root:      root,
		URL:       pageURL,
		Mode:      mode,
		RawLength: len(rawHTML),
	}
	d.TextLength = RuneLen(Collapse(d.Text()))
	return d, nil
}

// Text returns the flattened page text with one line per block element.
// The result is computed once.
func (d *Document) Text() string {
	if !d.hasText {
		body := d.Root.Find("body")
		if body.Length() == 0 {
			body = d.Root.Selection
		}
		d.text = Flatten(body)
		d.hasText = true
	}
	return d.text
}

// Lines returns the non-empty, whitespace-collapsed lines of Text.
func (d *Document) Lines() []string {
	raw := strings.Split(d.Text(), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if c := Collapse(l); c != "" {
			lines = append(lines, c)
		}
	}
	return lines
}
