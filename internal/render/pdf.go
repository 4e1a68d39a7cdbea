// Package render draws laid-out report content into a PDF file using fpdf.
package render

import (
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"expensetracker/internal/layout"
)

const family = "Helvetica"

// ascent is the distance from the top of a line to its baseline, as a
// fraction of the font size.
const ascent = 0.8

// PDF is a layout.Canvas backed by an in-memory fpdf document. Pages are only
// broken by the layout engine; fpdf's own page breaking is disabled.
type PDF struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

// Options configure the document metadata.
type Options struct {
	Title       string
	Creator     string
	Compression bool
}

// NewPDF returns an empty document sized to cfg.
func NewPDF(cfg *layout.Config, opts Options) *PDF {
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: cfg.PageWidth, Ht: cfg.PageHeight},
	})
	doc.SetMargins(cfg.Margin, cfg.Margin, cfg.Margin)
	doc.SetAutoPageBreak(false, cfg.Margin)
	doc.SetCompression(opts.Compression)
	if opts.Title != "" {
		doc.SetTitle(opts.Title, true)
	}
	if opts.Creator != "" {
		doc.SetCreator(opts.Creator, true)
	}
	return &PDF{
		doc: doc,
		tr:  doc.UnicodeTranslatorFromDescriptor(""),
	}
}

func (p *PDF) AddPage() {
	p.doc.AddPage()
}

func (p *PDF) Text(x, y float64, st layout.Style, text string) {
	p.apply(st)
	p.doc.SetTextColor(st.Color.R, st.Color.G, st.Color.B)
	p.doc.Text(x, y+st.Size*ascent, p.tr(text))
}

func (p *PDF) Rule(x1, x2, y float64) {
	p.doc.SetDrawColor(0, 0, 0)
	p.doc.SetLineWidth(0.5)
	p.doc.Line(x1, y, x2, y)
}

func (p *PDF) Width(st layout.Style, text string) float64 {
	p.apply(st)
	return p.doc.GetStringWidth(p.tr(text))
}

// Wrap splits text into lines no wider than width. The returned lines are
// untranslated; Text translates them when drawing.
func (p *PDF) Wrap(st layout.Style, text string, width float64) []string {
	p.apply(st)
	var out []string
	var line string
	for _, w := range strings.Fields(text) {
		next := w
		if line != "" {
			next = line + " " + w
		}
		if line != "" && p.doc.GetStringWidth(p.tr(next)) > width {
			out = append(out, line)
			line = w
			continue
		}
		line = next
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}

func (p *PDF) apply(st layout.Style) {
	style := ""
	if st.Bold {
		style += "B"
	}
	if st.Underline {
		style += "U"
	}
	p.doc.SetFont(family, style, st.Size)
}

// Pages returns the number of pages added so far.
func (p *PDF) Pages() int {
	return p.doc.PageCount()
}

// Err returns the first error fpdf recorded, if any.
func (p *PDF) Err() error {
	return p.doc.Error()
}

// Output serializes the finished document to w.
func (p *PDF) Output(w io.Writer) error {
	return p.doc.Output(w)
}
