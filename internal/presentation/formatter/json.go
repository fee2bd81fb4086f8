package formatter

import (
	"bytes"
	"io"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes {"<table>": [{...}, ...], ...}. Keys of each row object follow the column order.
func (f *JSONFormatter) Format(w io.Writer, in *Input) error {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, table := range in.Tables {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		if err := writeJSON(&buf, table.Name); err != nil {
			return err
		}
		buf.WriteString(": ")
		if err := WriteRows(&buf, table); err != nil {
			return err
		}
	}
	buf.WriteString("\n}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteRows writes a table as a JSON array of objects whose keys keep the column order.
func WriteRows(buf *bytes.Buffer, table model.Table) error {
	buf.WriteString("[")
	for i, row := range table.Rows {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("{")
		for j, col := range table.Columns {
			if j > 0 {
				buf.WriteString(",")
			}
			if err := writeJSON(buf, col); err != nil {
				return err
			}
			buf.WriteString(":")
			if err := writeJSON(buf, row[j]); err != nil {
				return err
			}
		}
		buf.WriteString("}")
	}
	buf.WriteString("]")
	return nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
