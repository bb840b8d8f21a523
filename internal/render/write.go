package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/moby/term"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"
)

const reset = "\x1b[0m"

type rgb struct{ r, g, b int }

var medals = map[int]rgb{
	1: {255, 215, 0},
	2: {192, 192, 192},
	3: {205, 127, 50},
}

var flowers = rgb{255, 182, 108}

func (c rgb) fg(bold bool) string {
	prefix := "\x1b["
	if bold {
		prefix += "1;"
	}
	return fmt.Sprintf("%s38;2;%d;%d;%dm", prefix, c.r, c.g, c.b)
}

// rankStyle is gold, silver and bronze for the podium, the flower colour for
// places four to six and dim for the rest.
func rankStyle(rank int) string {
	if c, ok := medals[rank]; ok {
		return c.fg(true)
	}
	if rank >= 4 && rank <= 6 {
		return flowers.fg(false)
	}
	if rank > 0 {
		return "\x1b[2m"
	}
	return ""
}

// deltaStyle shades gains green and losses red, brighter for larger values.
func deltaStyle(d int) string {
	if d == 0 {
		return ""
	}
	level := min(abs(d), 10)
	shade := 110 + level*14
	if d > 0 {
		return rgb{60, shade, 60}.fg(false)
	}
	return rgb{shade, 60, 60}.fg(false)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ColorEnabled reports whether w is a terminal that should get ANSI colours.
// noColor forces plain output, as the NO_COLOR convention asks.
func ColorEnabled(w io.Writer, noColor bool) bool {
	if noColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	_, isTerminal := term.GetFdInfo(f)
	return isTerminal
}

func widths(t Table) []int {
	w := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		w[i] = utf8.RuneCountInString(c.Name)
	}
	for _, r := range t.Rows {
		for i, c := range r.Cells {
			if i < len(w) {
				w[i] = max(w[i], utf8.RuneCountInString(c.Text))
			}
		}
	}
	return w
}

func pad(s string, width int, right bool) string {
	n := width - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}

// Text writes t as aligned columns separated by two spaces.
func Text(w io.Writer, t Table, color bool) error {
	bw := bufio.NewWriter(w)
	if t.Title != "" {
		fmt.Fprintln(bw, t.Title)
		fmt.Fprintln(bw)
	}
	ws := widths(t)

	head := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		head[i] = pad(c.Name, ws[i], c.Right)
	}
	line := strings.TrimRight(strings.Join(head, "  "), " ")
	if color {
		line = "\x1b[1m" + line + reset
	}
	fmt.Fprintln(bw, line)

	for _, r := range t.Rows {
		style := ""
		if color {
			style = rankStyle(r.Rank)
		}
		parts := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			right := i < len(t.Columns) && t.Columns[i].Right
			width := 0
			if i < len(ws) {
				width = ws[i]
			}
			cell := pad(c.Text, width, right)
			if color {
				cs := style
				if c.HasDelta {
					cs = deltaStyle(c.Delta)
				}
				if cs != "" {
					cell = cs + cell + reset
				}
			}
			parts[i] = cell
		}
		fmt.Fprintln(bw, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	if len(t.Notes) > 0 {
		fmt.Fprintln(bw)
		for _, n := range t.Notes {
			fmt.Fprintln(bw, n)
		}
	}
	return bw.Flush()
}

// TSV writes the header and rows tab-separated, without title or notes.
func TSV(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)
	head := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		head[i] = tsvField(c.Name)
	}
	fmt.Fprintln(bw, strings.Join(head, "\t"))
	for _, r := range t.Rows {
		fields := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			fields[i] = tsvField(strings.TrimSpace(c.Text))
		}
		fmt.Fprintln(bw, strings.Join(fields, "\t"))
	}
	return bw.Flush()
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}

// Markdown writes t as a pipe table under a bold title.
func Markdown(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)
	if t.Title != "" {
		fmt.Fprintf(bw, "**%s**\n\n", mdField(t.Title))
	}
	head := make([]string, len(t.Columns))
	sep := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		head[i] = mdField(c.Name)
		sep[i] = "---"
		if c.Right {
			sep[i] = "---:"
		}
	}
	fmt.Fprintf(bw, "| %s |\n", strings.Join(head, " | "))
	fmt.Fprintf(bw, "|%s|\n", strings.Join(sep, "|"))
	for _, r := range t.Rows {
		fields := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			fields[i] = mdField(strings.TrimSpace(c.Text))
		}
		fmt.Fprintf(bw, "| %s |\n", strings.Join(fields, " | "))
	}
	if len(t.Notes) > 0 {
		fmt.Fprintln(bw)
		for _, n := range t.Notes {
			fmt.Fprintf(bw, "_%s_\n", mdField(n))
		}
	}
	return bw.Flush()
}

func mdField(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// XLSX writes t to a single-sheet workbook: the title in A1, the header on
// row 3, rows below it.
func XLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	if err := f.SetCellValue(sheet, "A1", t.Title); err != nil {
		return fmt.Errorf("writing title: %w", err)
	}
	head := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		head[i] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A3", &head); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for n, r := range t.Rows {
		cells := make([]any, len(r.Cells))
		for i, c := range r.Cells {
			cells[i] = strings.TrimSpace(c.Text)
		}
		axis, err := excelize.CoordinatesToCellName(1, n+4)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return fmt.Errorf("writing row %d: %w", n+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// ErrNothingToPlot is returned by Chart when no row has a value.
var ErrNothingToPlot = errors.New("no values to plot")

// chartBars caps the bar chart; longer tables are cut after the first rows.
const chartBars = 30

// Chart writes a PNG bar chart of each row's primary value, labelled by the
// second column (the athlete or team name).
func Chart(w io.Writer, t Table) error {
	var bars []chart.Value
	for _, r := range t.Rows {
		if !r.HasValue || len(r.Cells) < 2 {
			continue
		}
		bars = append(bars, chart.Value{Value: r.Value, Label: strings.TrimSpace(r.Cells[1].Text)})
		if len(bars) == chartBars {
			break
		}
	}
	if len(bars) == 0 {
		return ErrNothingToPlot
	}
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo, hi = min(lo, b.Value), max(hi, b.Value)
	}
	if hi == lo {
		hi = lo + 1
	}
	graph := chart.BarChart{
		Title:    t.ValueLabel,
		Width:    max(400, 60*len(bars)),
		Height:   480,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		XAxis:        chart.Style{TextRotationDegrees: 45.0},
		YAxis:        chart.YAxis{Range: &chart.ContinuousRange{Min: lo, Max: hi}},
		UseBaseValue: true,
		Bars:         bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}
