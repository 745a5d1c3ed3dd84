package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"murmur/internal/operation"
)

var titleCaser = cases.Title(language.English)

func categoryLabel(typ operation.Type) string {
	label := titleCaser.String(string(typ.Category))
	if typ.Category == operation.CategoryAnalysis && typ.AnalysisKind != "" {
		kind := strings.ReplaceAll(string(typ.AnalysisKind), "_", " ")
		label = fmt.Sprintf("%s (%s)", label, titleCaser.String(kind))
	}
	return label
}

func statusLabel(status operation.Status) string {
	if status == "" {
		return "New"
	}
	return titleCaser.String(string(status))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(time.Millisecond).String()
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
