package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-provider request statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}

		stats, err := a.client.Statistics(cmd.Context())
		if err != nil {
			return fmt.Errorf("unable to fetch statistics: %w", err)
		}
		renderStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

// renderStats prints one row per provider, busiest first, and a total.
func renderStats(w io.Writer, stats []gateway.Statistics) {
	if len(stats) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No requests recorded yet."))
		return
	}

	sorted := append([]gateway.Statistics(nil), stats...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalRequests > sorted[j].TotalRequests
	})

	var total, success, failure int64
	rows := make([][]string, 0, len(sorted))
	for _, s := range sorted {
		total += s.TotalRequests
		success += s.SuccessCount
		failure += s.FailureCount
		rows = append(rows, []string{
			s.ProviderName,
			humanize.Comma(s.TotalRequests),
			humanize.Comma(s.SuccessCount),
			humanize.Comma(s.FailureCount),
			fmt.Sprintf("%.1f%%", s.SuccessRate),
			fmt.Sprintf("%.0fms", s.AvgLatencyMs),
		})
	}

	t := newTable().
		Headers("PROVIDER", "REQUESTS", "SUCCESS", "FAILURE", "SUCCESS RATE", "AVG LATENCY").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())

	rate := 0.0
	if total > 0 {
		rate = float64(success) / float64(total) * 100
	}
	fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("%s requests, %s failed, %.1f%% success",
		humanize.Comma(total), humanize.Comma(failure), rate)))
}
