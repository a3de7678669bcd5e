package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Alignment represents column alignment options
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Cell is one table cell with an optional color. The zero color leaves
// the text unstyled.
type Cell struct {
	Text  string
	Color Color
}

// BorderStyle defines table border characters
type BorderStyle struct {
	TopLeft     string
	TopRight    string
	BottomLeft  string
	BottomRight string
	Horizontal  string
	Vertical    string
	Cross       string
	TopTee      string
	BottomTee   string
	LeftTee     string
	RightTee    string
}

var (
	asciiBorder = BorderStyle{
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
		Horizontal:  "-",
		Vertical:    "|",
		Cross:       "+",
		TopTee:      "+",
		BottomTee:   "+",
		LeftTee:     "+",
		RightTee:    "+",
	}

	roundedBorder = BorderStyle{
		TopLeft:     "╭",
		TopRight:    "╮",
		BottomLeft:  "╰",
		BottomRight: "╯",
		Horizontal:  "─",
		Vertical:    "│",
		Cross:       "┼",
		TopTee:      "┬",
		BottomTee:   "┴",
		LeftTee:     "├",
		RightTee:    "┤",
	}
)

// Table renders a bordered table for the run summary. Columns size
// themselves to their content and shrink to the terminal width.
type Table struct {
	headers    []string
	rows       [][]Cell
	alignments map[int]Alignment
	border     BorderStyle
	colors     *ColorSystem
	maxWidth   int
	padding    int
}

// NewTable creates a table bound to a color system. Interactive
// terminals get box-drawing borders, pipes and logs plain ASCII.
func NewTable(colors *ColorSystem) *Table {
	border := asciiBorder
	if colors.Enabled() {
		border = roundedBorder
	}

	return &Table{
		alignments: make(map[int]Alignment),
		border:     border,
		colors:     colors,
		maxWidth:   terminalWidth(),
		padding:    1,
	}
}

// SetHeaders sets the table headers.
func (t *Table) SetHeaders(headers ...string) {
	t.headers = headers
}

// AddRow appends a row of plain cells.
func (t *Table) AddRow(cells ...string) {
	row := make([]Cell, len(cells))
	for i, text := range cells {
		row[i] = Cell{Text: text}
	}
	t.rows = append(t.rows, row)
}

// AddStyledRow appends a row of cells with their own colors.
func (t *Table) AddStyledRow(cells ...Cell) {
	t.rows = append(t.rows, cells)
}

// AlignRight right-aligns columns, for numeric cells.
func (t *Table) AlignRight(columns ...int) {
	for _, col := range columns {
		t.alignments[col] = AlignRight
	}
}

// SetMaxWidth overrides the detected terminal width.
func (t *Table) SetMaxWidth(width int) {
	t.maxWidth = width
}

// Render returns the formatted table as a string.
func (t *Table) Render() string {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return ""
	}

	widths := t.fitColumnWidths()

	var out strings.Builder
	out.WriteString(t.renderBorder(widths, t.border.TopLeft, t.border.TopTee, t.border.TopRight))
	out.WriteString("\n")

	if len(t.headers) > 0 {
		header := make([]Cell, len(t.headers))
		for i, text := range t.headers {
			header[i] = Cell{Text: text, Color: t.colors.Theme().Primary}
		}
		out.WriteString(t.renderRow(header, widths))
		out.WriteString("\n")
		out.WriteString(t.renderBorder(widths, t.border.LeftTee, t.border.Cross, t.border.RightTee))
		out.WriteString("\n")
	}

	for _, row := range t.rows {
		out.WriteString(t.renderRow(row, widths))
		out.WriteString("\n")
	}

	out.WriteString(t.renderBorder(widths, t.border.BottomLeft, t.border.BottomTee, t.border.BottomRight))
	out.WriteString("\n")

	return out.String()
}

// RenderTo writes the formatted table to the writer.
func (t *Table) RenderTo(writer io.Writer) {
	fmt.Fprint(writer, t.Render())
}

// fitColumnWidths sizes columns to their widest cell, then shrinks the
// widest column until the table fits the terminal.
func (t *Table) fitColumnWidths() []int {
	numCols := t.columnCount()
	widths := make([]int, numCols)

	for i, header := range t.headers {
		widths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < numCols && utf8.RuneCountInString(cell.Text) > widths[i] {
				widths[i] = utf8.RuneCountInString(cell.Text)
			}
		}
	}

	for i := range widths {
		widths[i] += t.padding * 2
	}

	if t.maxWidth <= 0 {
		return widths
	}

	minWidth := t.padding*2 + 3
	for t.totalWidth(widths) > t.maxWidth {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minWidth {
			break
		}
		widths[widest]--
	}

	return widths
}

// totalWidth includes one border rune per column plus the closing one.
func (t *Table) totalWidth(widths []int) int {
	total := len(widths) + 1
	for _, w := range widths {
		total += w
	}
	return total
}

func (t *Table) columnCount() int {
	maxCols := len(t.headers)
	for _, row := range t.rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	return maxCols
}

func (t *Table) renderBorder(widths []int, left, tee, right string) string {
	var out strings.Builder

	out.WriteString(left)
	for i, width := range widths {
		out.WriteString(strings.Repeat(t.border.Horizontal, width))
		if i < len(widths)-1 {
			out.WriteString(tee)
		}
	}
	out.WriteString(right)

	return out.String()
}

func (t *Table) renderRow(row []Cell, widths []int) string {
	var out strings.Builder

	out.WriteString(t.border.Vertical)
	for i, width := range widths {
		var cell Cell
		if i < len(row) {
			cell = row[i]
		}

		alignment := AlignLeft
		if align, exists := t.alignments[i]; exists {
			alignment = align
		}

		out.WriteString(t.formatCell(cell, width, alignment))
		out.WriteString(t.border.Vertical)
	}

	return out.String()
}

// formatCell pads and truncates one cell. Color applies after the width
// math so ANSI escapes never count against the column width.
func (t *Table) formatCell(cell Cell, width int, alignment Alignment) string {
	content := cell.Text

	contentWidth := width - t.padding*2
	if contentWidth < 0 {
		contentWidth = 0
	}

	if utf8.RuneCountInString(content) > contentWidth {
		runes := []rune(content)
		if contentWidth > 3 {
			content = string(runes[:contentWidth-3]) + "..."
		} else {
			content = string(runes[:contentWidth])
		}
	}

	gap := contentWidth - utf8.RuneCountInString(content)
	var leftPad, rightPad int
	if alignment == AlignRight {
		leftPad = gap
	} else {
		rightPad = gap
	}
	leftPad += t.padding
	rightPad += t.padding

	if cell.Color != ColorReset {
		content = t.colors.Colorize(content, cell.Color)
	}

	return strings.Repeat(" ", leftPad) + content + strings.Repeat(" ", rightPad)
}

// terminalWidth returns the current terminal width.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 120
	}
	return width
}
