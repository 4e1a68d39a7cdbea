// Package layouttest provides a Canvas that records draw calls instead of
// rendering them.
package layouttest

import (
	"strings"

	"expensetracker/internal/layout"
)

// Op is one recorded text draw.
type Op struct {
	Page  int
	X, Y  float64
	Style layout.Style
	Text  string
}

// Recorder implements layout.Canvas. Text width is approximated as half the
// font size per character.
type Recorder struct {
	Pages int
	Ops   []Op
	Rules int
}

func (r *Recorder) AddPage() { r.Pages++ }

func (r *Recorder) Text(x, y float64, st layout.Style, text string) {
	r.Ops = append(r.Ops, Op{Page: r.Pages, X: x, Y: y, Style: st, Text: text})
}

func (r *Recorder) Rule(x1, x2, y float64) { r.Rules++ }

func (r *Recorder) Width(st layout.Style, text string) float64 {
	return float64(len(text)) * st.Size / 2
}

// Wrap breaks on spaces so that each line fits width.
func (r *Recorder) Wrap(st layout.Style, text string, width float64) []string {
	var out []string
	var line string
	for _, w := range strings.Fields(text) {
		next := w
		if line != "" {
			next = line + " " + w
		}
		if line != "" && r.Width(st, next) > width {
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

// Texts returns the drawn strings in order.
func (r *Recorder) Texts() []string {
	out := make([]string, len(r.Ops))
	for i, op := range r.Ops {
		out[i] = op.Text
	}
	return out
}

// Find returns the first op whose text equals s.
func (r *Recorder) Find(s string) (Op, bool) {
	for _, op := range r.Ops {
		if op.Text == s {
			return op, true
		}
	}
	return Op{}, false
}

// Index returns the position of the first op whose text equals s, or -1.
func (r *Recorder) Index(s string) int {
	for i, op := range r.Ops {
		if op.Text == s {
			return i
		}
	}
	return -1
}
