package app

import (
	"context"
	"fmt"
	"path"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/vk/caniput/internal/ctxlog"
	"github.com/vk/caniput/internal/ingest"
	"github.com/vk/caniput/internal/value"
)

// Inspect ingests fsPath without sending anything and writes one table row
// per file node: its path inside the tree, its kind and a summary.
func (a *App) Inspect(ctx context.Context, fsPath string, sortEntries bool) error {
	ctx = a.context(ctx)
	f, err := ingest.Ingest(ctx, fsPath, ingest.Options{SortEntries: sortEntries})
	if err != nil {
		return err
	}
	rows := inspectRows(nil, ".", f)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Inspected path.", "path", fsPath, "nodes", len(rows))
	if logger.Enabled(ctx, LevelTrace) {
		logger.Log(ctx, LevelTrace, "Ingested tree.", "tree", value.FormatFile(f))
	}

	_, err = fmt.Fprintln(a.outW, renderTable([]string{"Path", "Kind", "Summary"}, rows))
	return err
}

func inspectRows(rows [][]string, name string, f value.File) [][]string {
	rows = append(rows, []string{name, value.FileKind(f), value.Summary(f)})
	if d, ok := f.(value.Directory); ok {
		for _, e := range d.Entries {
			rows = inspectRows(rows, path.Join(name, e.Name), e.File)
		}
	}
	return rows
}

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, len(headers))
	for i := range headers {
		columnConfigs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
