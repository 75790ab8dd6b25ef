package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/aalemi-dev/shardkit/shardpool"
	"github.com/aalemi-dev/shardkit/topology"
)

const maxDataWidth = 60

// TableFormatter writes kubectl-style tab separated tables.
type TableFormatter struct {
	options *Options
}

func (f *TableFormatter) Outcomes(w io.Writer, outcomes []shardpool.Outcome) error {
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No results")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"TARGET", "STATUS", "RESULT"}
	if f.options.Wide {
		headers = append(headers, "DATA")
	}
	f.setHeader(table, headers, colors)

	for _, o := range outcomes {
		row, err := f.outcomeRow(o, colors)
		if err != nil {
			return err
		}
		table.Append(row)
	}
	table.Render()

	summary := Summarize(outcomes)
	failed := fmt.Sprintf("%d failed", summary.Failed)
	if summary.Failed > 0 {
		failed = colors.Error(failed)
	}
	fmt.Fprintf(w, "\nSummary: %s, %s\n", colors.Success("%d successful", summary.Successful), failed)
	return nil
}

func (f *TableFormatter) outcomeRow(o shardpool.Outcome, colors *ColorScheme) ([]string, error) {
	status, result, data := "OK", "", ""

	switch v := o.(type) {
	case *shardpool.ExecutionResult:
		if v.Count != nil {
			result = strconv.FormatInt(*v.Count, 10) + " affected"
		} else {
			result = strconv.Itoa(len(v.Rows)) + " rows"
		}
		if f.options.Wide {
			raw, err := json.Marshal(v.Data())
			if err != nil {
				return nil, err
			}
			data = truncate(string(raw), maxDataWidth)
		}
	case *shardpool.ErrorRecord:
		status = "FAILED"
		if v.Cause != nil {
			result = v.Cause.Error()
		}
	}

	row := []string{
		colors.Target("%s", o.Path().String()),
		colors.StatusColor(o.Err() != nil)("%s", status),
		result,
	}
	if f.options.Wide {
		row = append(row, data)
	}
	return row, nil
}

func (f *TableFormatter) Targets(w io.Writer, targets []topology.Target) error {
	if len(targets) == 0 {
		fmt.Fprintln(w, "No targets")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeader(table, []string{"ENV", "CATEGORY", "ZONE", "SHARD"}, colors)
	for _, t := range targets {
		table.Append([]string{t.Env, t.Category, t.Zone, t.Shard})
	}
	table.Render()
	return nil
}

func (f *TableFormatter) Statuses(w io.Writer, statuses []shardpool.EntryStatus) error {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No pools")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeader(table, []string{"TARGET", "STATUS", "OPEN", "IN USE", "ERROR"}, colors)
	for _, s := range statuses {
		status := "LIVE"
		if !s.Live {
			status = "FAILED"
		}
		table.Append([]string{
			colors.Target("%s", s.Target.String()),
			colors.StatusColor(!s.Live)("%s", status),
			strconv.Itoa(s.OpenConnections),
			strconv.Itoa(s.InUse),
			s.Error,
		})
	}
	table.Render()
	return nil
}

func (f *TableFormatter) setHeader(table *tablewriter.Table, headers []string, colors *ColorScheme) {
	if f.options.NoHeaders {
		return
	}
	if !colors.Disabled {
		colored := make([]string, len(headers))
		for i, h := range headers {
			colored[i] = colors.Header("%s", h)
		}
		headers = colored
	}
	table.SetHeader(headers)
}

func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
