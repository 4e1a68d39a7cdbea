package layout

// Canvas is the drawing surface the engine writes to. Coordinates are in the
// config's unit with the origin at the top-left corner; y is the top of the
// line being drawn.
type Canvas interface {
	AddPage()
	Text(x, y float64, st Style, text string)
	Rule(x1, x2, y float64)
	Width(st Style, text string) float64
	Wrap(st Style, text string, width float64) []string
}

// Cursor is the pagination state: which page is open and where the next
// write lands.
type Cursor struct {
	Page       int
	Y          float64
	PageHeight float64
	Margin     float64
}

// Bottom is the lowest y content may reach on a page.
func (c Cursor) Bottom() float64 {
	return c.PageHeight - c.Margin
}

// Fits reports whether content of height h fits on the current page.
func (c Cursor) Fits(h float64) bool {
	return c.Y+h <= c.Bottom()
}

// Column is one cell of a table row. A nil Color uses the row style color.
type Column struct {
	Text  string
	X     float64
	Color *Color
}

// Engine owns the cursor for one document. It is not safe for concurrent use;
// each report gets its own engine.
type Engine struct {
	canvas Canvas
	cfg    *Config
	cur    Cursor

	// section is the heading repeated after an automatic page break.
	section   string
	repeating bool
}

// New opens the first page of canvas and returns an engine positioned at
// its top margin.
func New(canvas Canvas, cfg *Config) *Engine {
	e := &Engine{
		canvas: canvas,
		cfg:    cfg,
		cur:    Cursor{PageHeight: cfg.PageHeight, Margin: cfg.Margin},
	}
	e.openPage()
	return e
}

// Cursor returns a copy of the current pagination state.
func (e *Engine) Cursor() Cursor {
	return e.cur
}

// Config returns the layout the engine was built with.
func (e *Engine) Config() *Config {
	return e.cfg
}

// AdvancePage commits the current page and moves to the top of a new one.
func (e *Engine) AdvancePage() {
	e.openPage()
}

func (e *Engine) openPage() {
	e.canvas.AddPage()
	e.cur.Page++
	e.cur.Y = e.cfg.Margin
}

// ensure breaks the page before content of height h that would overflow it.
// Content taller than a whole page is written at the top of a fresh page.
func (e *Engine) ensure(h float64) {
	if e.cur.Fits(h) {
		return
	}
	e.openPage()
	if e.section != "" && !e.repeating {
		e.repeating = true
		e.heading(e.section + " (continued)")
		e.repeating = false
	}
}

// SpaceBefore adds vertical whitespace. Space that runs past the bottom of
// the page is dropped by the next write's page break.
func (e *Engine) SpaceBefore(amount float64) {
	if amount <= 0 {
		return
	}
	e.cur.Y += amount
}

// MoveDown adds n lines of whitespace measured in style st.
func (e *Engine) MoveDown(n float64, st Style) {
	e.SpaceBefore(n * e.cfg.LineHeight(st))
}

// WriteLine writes one line of text and advances the cursor by its height.
func (e *Engine) WriteLine(text string, st Style) {
	h := e.cfg.LineHeight(st)
	e.ensure(h)
	x := e.cfg.Margin
	if st.Align == AlignCenter {
		x = (e.cfg.PageWidth - e.canvas.Width(st, text)) / 2
	}
	e.canvas.Text(x, e.cur.Y, st, text)
	e.cur.Y += h
}

// WriteRow writes every column at the same vertical position, then advances
// by one row height.
func (e *Engine) WriteRow(cols []Column, st Style) {
	h := e.cfg.RowHeight
	if lh := e.cfg.LineHeight(st); lh > h {
		h = lh
	}
	e.ensure(h)
	for _, c := range cols {
		cs := st
		if c.Color != nil {
			cs.Color = *c.Color
		}
		e.canvas.Text(c.X, e.cur.Y, cs, c.Text)
	}
	e.cur.Y += h
}

// Rule draws a horizontal separator at the cursor.
func (e *Engine) Rule(x1, x2 float64) {
	const gap = 6
	e.ensure(gap)
	e.canvas.Rule(x1, x2, e.cur.Y)
	e.cur.Y += gap
}

// WriteParagraph writes prose wrapped to the content width. Blank lines in
// text become one line of whitespace.
func (e *Engine) WriteParagraph(text string, st Style) {
	for _, para := range splitLines(text) {
		if para == "" {
			e.MoveDown(1, st)
			continue
		}
		for _, line := range e.canvas.Wrap(st, para, e.cfg.ContentWidth()) {
			e.WriteLine(line, st)
		}
	}
}

// Section starts a labeled section, on a fresh page when freshPage is set.
// Its heading is repeated, marked as continued, after automatic breaks.
func (e *Engine) Section(title string, freshPage bool) {
	if freshPage {
		e.AdvancePage()
	}
	// A break caused by the heading itself must not repeat any heading.
	e.section = ""
	e.heading(title)
	e.section = title
}

func (e *Engine) heading(title string) {
	st := e.cfg.Heading()
	e.WriteLine(title, st)
	e.MoveDown(1, st)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, trimCR(s[start:i]))
			start = i + 1
		}
	}
	return append(out, trimCR(s[start:]))
}

func trimCR(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\r' {
		return s[:n-1]
	}
	return s
}
