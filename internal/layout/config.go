// Package layout implements the pagination engine that decides where every
// piece of report content lands on which page.
package layout

// Color is an RGB triple.
type Color struct {
	R, G, B int
}

// Align positions a line horizontally within the page margins.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Style describes how a line of text is rendered.
type Style struct {
	Size      float64
	Bold      bool
	Underline bool
	Color     Color
	Align     Align
}

// FontSizes used by the report, in points.
type FontSizes struct {
	H1, H2, H3, Body, Small float64
}

// Palette of the report.
type Palette struct {
	Primary, Secondary, Success, Danger Color
}

// Columns are the x offsets of the breakdown table.
type Columns struct {
	Category, Amount, Budget, Status, End float64
}

// Config holds layout settings. It is built once per process and shared by
// pointer; nothing mutates it after construction.
type Config struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64

	Fonts   FontSizes
	Colors  Palette
	Columns Columns

	// LineSpacing multiplies a font size into a line height.
	LineSpacing float64
	// RowHeight is the vertical advance of one table row.
	RowHeight float64
	// GroupGap is the extra gap, in body lines, between date groups.
	GroupGap float64
	// ItemGap is the gap, in body lines, after each list item.
	ItemGap float64
}

// DefaultConfig returns the A4 layout, in points.
func DefaultConfig() *Config {
	return &Config{
		PageWidth:  595.28,
		PageHeight: 841.89,
		Margin:     40,
		Fonts: FontSizes{
			H1:    20,
			H2:    15,
			H3:    14,
			Body:  12,
			Small: 11,
		},
		Colors: Palette{
			Primary:   Color{0, 0, 0},
			Secondary: Color{128, 128, 128},
			Success:   Color{0, 128, 0},
			Danger:    Color{255, 0, 0},
		},
		Columns: Columns{
			Category: 50,
			Amount:   260,
			Budget:   360,
			Status:   460,
			End:      550,
		},
		LineSpacing: 1.2,
		RowHeight:   20,
		GroupGap:    0.75,
		ItemGap:     0.5,
	}
}

// LineHeight is the vertical advance of one line in style st.
func (c *Config) LineHeight(st Style) float64 {
	return st.Size * c.LineSpacing
}

// ContentWidth is the usable width between the margins.
func (c *Config) ContentWidth() float64 {
	return c.PageWidth - 2*c.Margin
}

// Heading is the underlined section title style.
func (c *Config) Heading() Style {
	return Style{Size: c.Fonts.H2, Underline: true, Color: c.Colors.Primary}
}

// Body is the default text style.
func (c *Config) Body() Style {
	return Style{Size: c.Fonts.Body, Color: c.Colors.Primary}
}
