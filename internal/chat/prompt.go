package chat

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/penwyp/go-timeline-chat/internal/presentation/formatter"
	"github.com/penwyp/go-timeline-chat/internal/store"
)

const sampleRows = 3

const systemPromptTemplate = `You answer questions about one person's Google location history.
The data lives in an SQLite database with these tables:
{{ range .Tables }}
Table {{ .Name }} ({{ .Rows }} rows):
{{- range .Columns }}
  - {{ .Name }}{{ if .Type }} {{ .Type }}{{ end }} (was {{ .Source | quote }})
{{- end }}
{{ end }}
{{- range .Samples }}
Sample rows from {{ .Table }}:
{{ join " | " .Columns }}
{{- range .Rows }}
{{ join " | " . }}
{{- end }}
{{ end }}
Timestamps are RFC 3339 text. Durations in minutes are numbers. The home and work columns are "yes" or "no".
{{- if .Home }}
Visits to {{ .Home | quote }} are marked home and renamed "Home".
{{- end }}
{{- if .Work }}
Visits to {{ .Work | quote }} are marked work.
{{- end }}
Today is {{ .Today | date "Monday 2 January 2006" }}.

To look something up, reply with exactly one SQLite SELECT statement in a fenced block:
` + "```sql" + `
SELECT ...
` + "```" + `
You will receive at most {{ .MaxRows }} result rows as CSV. Aggregate in SQL rather than listing rows.
When you know the answer, reply with a line starting with "ANSWER:" followed by a short answer for the user.
Never invent places or numbers that are not in the query results.`

var promptTemplate = template.Must(
	template.New("system").Funcs(sprig.TxtFuncMap()).Parse(systemPromptTemplate),
)

type promptSample struct {
	Table   string
	Columns []string
	Rows    [][]string
}

type promptData struct {
	Tables  []store.TableInfo
	Samples []promptSample
	Home    string
	Work    string
	MaxRows int
	Today   time.Time
}

// systemPrompt describes the loaded tables with a few sample rows
func (a *Agent) systemPrompt(ctx context.Context) (string, error) {
	data := promptData{
		Tables:  a.store.Tables(),
		Home:    a.opts.Home,
		Work:    a.opts.Work,
		MaxRows: a.opts.MaxRows,
		Today:   a.now(),
	}
	for _, t := range data.Tables {
		if t.Rows == 0 {
			continue
		}
		res, err := a.store.Query(ctx, fmt.Sprintf(`SELECT * FROM "%s" LIMIT %d`, t.Name, sampleRows), 0)
		if err != nil {
			return "", fmt.Errorf("sampling %s: %w", t.Name, err)
		}
		sample := promptSample{Table: t.Name, Columns: res.Columns}
		for _, row := range res.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = formatter.Cell(v)
			}
			sample.Rows = append(sample.Rows, cells)
		}
		data.Samples = append(data.Samples, sample)
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return buf.String(), nil
}
