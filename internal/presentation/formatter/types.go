package formatter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/data/normalizer"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

// Input is what a formatter renders. Tables holds the selected tables in output order.
type Input struct {
	Tables   []model.Table
	Visits   model.VisitTable
	Journeys model.JourneyTable
	Report   *normalizer.Report
	Files    int
	Years    []int // year filter in effect, empty for all
}

// Formatter writes an Input in one output format.
type Formatter interface {
	Format(w io.Writer, in *Input) error
}

// New returns the formatter for an output name.
func New(output string) (Formatter, error) {
	switch output {
	case "table", "":
		return NewTableFormatter(), nil
	case "csv":
		return NewCSVFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "summary":
		return NewSummaryFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", output)
	}
}

// Cell renders one table value as text. Missing values render empty.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return util.FormatFloat(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
