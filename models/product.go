package models

// NotAvailable is the sentinel stored in scalar fields that no strategy
// could fill.
const NotAvailable = "N/A"

// Field bounds, in runes.
const (
	MaxTitleLen       = 200
	MinBulletLen      = 10
	MaxBulletLen      = 500
	MaxSpecKeyLen     = 100
	MaxSpecValueLen   = 200
	MaxColorLen       = 50
	MaxDescriptionLen = 500
)

// Screenshot labels, in capture order.
const (
	ShotFullPage       = "full_page"
	ShotProductSection = "product_section"
	ShotSpecifications = "specifications"
	ShotDescription    = "description"
	ShotFooter         = "footer"
)

// ScreenshotLabels lists every label a capture run may produce.
var ScreenshotLabels = []string{
	ShotFullPage,
	ShotProductSection,
	ShotSpecifications,
	ShotDescription,
	ShotFooter,
}

// ProductRecord is the structured result of one extraction run.
//
// Scalar fields carry NotAvailable when unfilled; collections are empty,
// never nil, so they always serialize as [] and {}.
type ProductRecord struct {
	Title          string            `json:"title"`
	BulletPoints   []string          `json:"bullet_points"`
	Specifications map[string]string `json:"specifications"`
	Color          string            `json:"color"`
	Description    string            `json:"description"`

	// Screenshots maps a label to a file path or a base64 data URI.
	Screenshots map[string]string `json:"screenshots"`

	// DiagnosticTrace is an ordered, timestamped log of what happened
	// during the run. It is always present, even on success.
	DiagnosticTrace []string `json:"diagnostic_trace"`
}

// NewProductRecord returns a record with every field at its sentinel value.
func NewProductRecord() *ProductRecord {
	return &ProductRecord{
		Title:           NotAvailable,
		BulletPoints:    []string{},
		Specifications:  map[string]string{},
		Color:           NotAvailable,
		Description:     NotAvailable,
		Screenshots:     map[string]string{},
		DiagnosticTrace: []string{},
	}
}

// FilledFields counts how many of the five extracted fields moved off
// their sentinel value.
func (p *ProductRecord) FilledFields() int {
	n := 0
	if p.Title != NotAvailable {
		n++
	}
	if len(p.BulletPoints) > 0 {
		n++
	}
	if len(p.Specifications) > 0 {
		n++
	}
	if p.Color != NotAvailable {
		n++
	}
	if p.Description != NotAvailable {
		n++
	}
	return n
}
