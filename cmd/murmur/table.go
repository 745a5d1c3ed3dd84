package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"murmur/internal/coordinator"
	"murmur/internal/operation"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderOperations(ops []operation.Operation, queuePositions map[string]int) string {
	headers := []string{"ID", "Type", "Target", "Priority", "Status", "Queue", "Runtime", "Detail"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		queue := ""
		if pos, ok := queuePositions[op.ID]; ok {
			queue = strconv.Itoa(pos)
		}
		runtime := ""
		if elapsed, ok := op.ExecutionTime(); ok {
			runtime = formatDuration(elapsed)
		}
		detail := op.ErrorDescription
		if detail == "" && op.Progress != nil {
			detail = fmt.Sprintf("%s %s", formatPercent(op.Progress.Percentage), op.Progress.CurrentStep)
		}
		rows = append(rows, []string{
			shortID(op.ID),
			categoryLabel(op.Type),
			op.Target(),
			op.Priority.String(),
			statusLabel(op.Status),
			queue,
			runtime,
			detail,
		})
	}
	return renderTable(headers, rows, aligns)
}

func renderMetrics(m coordinator.Metrics) string {
	rows := [][]string{
		{"Total", strconv.Itoa(m.Total)},
		{"Pending", strconv.Itoa(m.Pending)},
		{"Active", fmt.Sprintf("%d / %d", m.Active, m.MaxConcurrent)},
		{"Completed", strconv.Itoa(m.Completed)},
		{"Failed", strconv.Itoa(m.Failed)},
		{"Cancelled", strconv.Itoa(m.Cancelled)},
		{"Queued", strconv.Itoa(m.Queued)},
		{"Success rate", formatPercent(m.SuccessRate)},
		{"Avg execution", fmt.Sprintf("%.2fs", m.AverageExecutionTime)},
		{"Load", formatPercent(m.Load)},
		{"Memory pressure", yesNo(m.UnderPressure)},
	}
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
