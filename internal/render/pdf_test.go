package render

import (
	"bytes"
	"testing"

	"github.com/ledongthuc/pdf"

	"expensetracker/internal/layout"
)

func TestPDFPageCount(t *testing.T) {
	cfg := layout.DefaultConfig()
	doc := NewPDF(cfg, Options{Title: "Test"})
	e := layout.New(doc, cfg)

	e.WriteLine("first", cfg.Body())
	e.AdvancePage()
	e.WriteLine("second", cfg.Body())

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if doc.Pages() != 2 {
		t.Errorf("Pages() = %d, want 2", doc.Pages())
	}

	r, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if got := r.NumPage(); got != 2 {
		t.Errorf("NumPage = %d, want 2", got)
	}
}

func TestPDFWritesText(t *testing.T) {
	cfg := layout.DefaultConfig()
	doc := NewPDF(cfg, Options{})
	e := layout.New(doc, cfg)
	e.WriteLine("Financial Summary", cfg.Heading())

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatal("missing PDF header")
	}
	if !bytes.Contains(buf.Bytes(), []byte("(Financial Summary)")) {
		t.Error("text not found in uncompressed content stream")
	}
}

func TestWrapFitsWidth(t *testing.T) {
	cfg := layout.DefaultConfig()
	doc := NewPDF(cfg, Options{})
	doc.AddPage()
	st := cfg.Body()

	text := "Consider reducing discretionary spending on dining out and entertainment to improve your monthly savings rate."
	lines := doc.Wrap(st, text, 150)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %q", lines)
	}
	for _, l := range lines {
		if w := doc.Width(st, l); w > 150 {
			t.Errorf("line %q is %v wide", l, w)
		}
	}
}

func TestWrapEmpty(t *testing.T) {
	doc := NewPDF(layout.DefaultConfig(), Options{})
	doc.AddPage()
	if got := doc.Wrap(layout.DefaultConfig().Body(), "   ", 100); len(got) != 0 {
		t.Errorf("Wrap(blank) = %q", got)
	}
}
