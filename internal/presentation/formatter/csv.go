package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
)

type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// Format writes each table as a header line plus one record per row.
// Several tables are separated by an empty line.
func (f *CSVFormatter) Format(w io.Writer, in *Input) error {
	for i, table := range in.Tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}

		cw := csv.NewWriter(w)
		if err := cw.Write(table.Columns); err != nil {
			return err
		}
		record := make([]string, len(table.Columns))
		for _, row := range table.Rows {
			for j, v := range row {
				record[j] = Cell(v)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
	}
	return nil
}
