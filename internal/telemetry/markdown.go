// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Markdown renders both reports as a Markdown document for the
// diagnostics screen and the telemetry command.
func Markdown(errs ErrorReport, perf PerformanceReport) string {
	var b strings.Builder

	b.WriteString("# Diagnostics\n\n")
	fmt.Fprintf(&b, "_Generated %s_\n\n", errs.Timestamp.Format(time.DateTime))

	b.WriteString("## Errors\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| In the last window | %d |\n", errs.CurrentErrors)
	fmt.Fprintf(&b, "| Stored | %d |\n", errs.StoredErrors)
	fmt.Fprintf(&b, "| Total | %d |\n", errs.TotalErrors)
	if errs.Storming {
		b.WriteString("\n> **Error storm in progress.** New errors are recorded but not shown.\n")
	}
	writeCounts(&b, "Error types", errs.ErrorTypes)
	if len(errs.RecentErrors) > 0 {
		b.WriteString("\n### Recent errors\n\n")
		for _, e := range errs.RecentErrors {
			fmt.Fprintf(&b, "- `%s` %s: %s (%s)\n",
				e.Timestamp.Format(time.TimeOnly), e.Type, mdEscape(e.Message()), e.Context.URL)
		}
	}

	b.WriteString("\n## Performance\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	if v, ok := perf.PageLoad["totalLoadTime"]; ok {
		fmt.Fprintf(&b, "| Startup | %.0f ms |\n", v)
	}
	fmt.Fprintf(&b, "| Store calls | %d |\n", perf.APICalls)
	fmt.Fprintf(&b, "| Store errors | %d |\n", perf.Errors)
	fmt.Fprintf(&b, "| Average call | %.2f ms |\n", perf.AverageAPITime)
	fmt.Fprintf(&b, "| Stored samples | %d |\n", perf.TotalStoredMetrics)
	if m := perf.Memory; m != nil {
		fmt.Fprintf(&b, "| Heap in use | %.1f MiB |\n", float64(m.HeapAlloc)/(1<<20))
		fmt.Fprintf(&b, "| Goroutines | %d |\n", m.Goroutines)
		fmt.Fprintf(&b, "| GC cycles | %d |\n", m.NumGC)
	}
	writeCounts(&b, "Sample types", perf.MetricTypes)

	return b.String()
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %d\n", k, counts[k])
	}
}

var mdReplacer = strings.NewReplacer("|", "\\|", "*", "\\*", "_", "\\_", "`", "'", "\n", " ")

func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}
