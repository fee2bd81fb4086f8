package formatter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/util"
	"golang.org/x/term"
)

const (
	minColumnWidth = 4
	maxColumnWidth = 40
)

type TableFormatter struct {
	maxWidth int // total line width budget, 0 means unlimited
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// WithMaxWidth fixes the line width budget instead of probing the terminal
func (f *TableFormatter) WithMaxWidth(width int) *TableFormatter {
	f.maxWidth = width
	return f
}

func (f *TableFormatter) Format(w io.Writer, in *Input) error {
	budget := f.maxWidth
	if budget == 0 {
		budget = terminalWidth(w)
	}

	for i, table := range in.Tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%s rows)\n", table.Name, util.FormatNumber(table.Len()))
		f.writeTable(w, table, budget)
	}
	return nil
}

func (f *TableFormatter) writeTable(w io.Writer, table model.Table, budget int) {
	rows := make([][]string, len(table.Rows))
	for i, r := range table.Rows {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = Cell(v)
		}
	}

	widths := f.calculateColumnWidths(table.Columns, rows, budget)

	f.printBorder(w, widths, "top")
	f.printRow(w, table.Columns, widths, nil)
	f.printBorder(w, widths, "middle")
	for i, row := range rows {
		f.printRow(w, row, widths, table.Rows[i])
	}
	f.printBorder(w, widths, "bottom")
}

// calculateColumnWidths sizes each column to its widest cell, capped, then shrinks the
// widest columns until the line fits the budget.
func (f *TableFormatter) calculateColumnWidths(headers []string, rows [][]string, budget int) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = util.GetDisplayWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := util.GetDisplayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}

	if budget <= 0 {
		return widths
	}
	// 3 columns of border and padding per cell plus the leading border
	for lineWidth(widths) > budget {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColumnWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

func lineWidth(widths []int) int {
	total := 1
	for _, w := range widths {
		total += w + 3
	}
	return total
}

// printBorder prints table borders (top, middle, bottom)
func (f *TableFormatter) printBorder(w io.Writer, widths []int, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	var b strings.Builder
	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	fmt.Fprintln(w, b.String())
}

// printRow prints one row. Numeric cells are right-aligned, everything else left-aligned.
func (f *TableFormatter) printRow(w io.Writer, values []string, widths []int, raw []any) {
	var b strings.Builder
	b.WriteString("│")
	for i, value := range values {
		value = util.TruncateString(value, widths[i])
		leftAlign := true
		if raw != nil {
			switch raw[i].(type) {
			case int, int64, float64:
				leftAlign = false
			}
		}
		b.WriteString(" ")
		b.WriteString(util.PadString(value, widths[i], leftAlign))
		b.WriteString(" │")
	}
	fmt.Fprintln(w, b.String())
}

// terminalWidth returns the width of w when it is a terminal, 0 otherwise
func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0
	}
	return width
}
