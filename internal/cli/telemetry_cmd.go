// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jeranaias/tidedesk/internal/telemetry"
)

// =============================================================================
// TELEMETRY COMMANDS
// =============================================================================

func newTelemetryCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Show stored error and performance diagnostics",
		Long: `telemetry prints the persisted error log and performance samples as a
Markdown report. Subcommands print one report, archive a snapshot or
clear the stored entries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			errs, perf := s.Errors.Report(ctx), s.Perf.Report(ctx)
			return o.emit(cmd, func() (any, error) {
				return map[string]any{"errors": errs, "performance": perf}, nil
			}, func(w io.Writer, _ any) error {
				_, err := fmt.Fprint(w, renderMarkdown(telemetry.Markdown(errs, perf)))
				return err
			})
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "errors",
			Short: "Print the error report",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(s *session) (any, error) {
					return s.Errors.Report(cmd.Context()), nil
				}, func(w io.Writer, data any) error {
					r := data.(telemetry.ErrorReport)
					fmt.Fprintln(w, TitleStyle.Render("Errors"))
					fmt.Fprintln(w, RenderField("Stored", fmt.Sprint(r.StoredErrors)))
					fmt.Fprintln(w, RenderField("Total", fmt.Sprint(r.TotalErrors)))
					for _, e := range r.RecentErrors {
						fmt.Fprintf(w, "%s %s %s\n", DimStyle.Render(e.Timestamp.Format(time.DateTime)), e.Type, e.Message())
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "performance",
			Aliases: []string{"perf"},
			Short:   "Print the performance report",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(s *session) (any, error) {
					return s.Perf.Report(cmd.Context()), nil
				}, func(w io.Writer, data any) error {
					r := data.(telemetry.PerformanceReport)
					fmt.Fprintln(w, TitleStyle.Render("Performance"))
					fmt.Fprintln(w, RenderField("Stored samples", fmt.Sprint(r.TotalStoredMetrics)))
					fmt.Fprintln(w, RenderField("Store calls", fmt.Sprint(r.APICalls)))
					fmt.Fprintln(w, RenderField("Average call", fmt.Sprintf("%.2f ms", r.AverageAPITime)))
					types := make([]string, 0, len(r.MetricTypes))
					for typ := range r.MetricTypes {
						types = append(types, typ)
					}
					sort.Strings(types)
					for _, typ := range types {
						fmt.Fprintln(w, RenderField("  "+typ, fmt.Sprint(r.MetricTypes[typ])))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "export",
			Short: "Archive both reports as a snapshot file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(s *session) (any, error) {
					id, err := s.Snapshot(cmd.Context())
					if err != nil {
						return nil, err
					}
					return map[string]string{"id": id, "dir": s.Archive.Dir()}, nil
				}, func(w io.Writer, data any) error {
					m := data.(map[string]string)
					_, err := fmt.Fprintf(w, "%s snapshot %s saved in %s\n", RenderStatus("ok"), m["id"], m["dir"])
					return err
				})
			},
		},
		newTelemetryClearCommand(o),
	)
	return cmd
}

func newTelemetryClearCommand(o *options) *cobra.Command {
	var (
		yes       bool
		olderThan time.Duration
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored errors, samples and old snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm("Delete stored diagnostics", yes, o.jsonOut)
			if err != nil {
				return err
			}
			if !ok {
				notice(cmd, "cancelled")
				return nil
			}
			return o.withApp(cmd, func(s *session) (any, error) {
				ctx := cmd.Context()
				if err := errors.Join(s.Errors.Clear(ctx), s.Perf.Clear(ctx)); err != nil {
					return nil, err
				}
				removed := 0
				if olderThan > 0 {
					removed, err = s.Archive.DeleteBefore(s.Clock.Now().Add(-olderThan))
					if err != nil {
						return nil, err
					}
				}
				return map[string]int{"snapshotsRemoved": removed}, nil
			}, func(w io.Writer, data any) error {
				_, err := fmt.Fprintf(w, "%s diagnostics cleared, %d snapshots removed\n",
					RenderStatus("ok"), data.(map[string]int)["snapshotsRemoved"])
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().DurationVar(&olderThan, "snapshots-older-than", 0, "also delete snapshots older than this (e.g. 720h)")
	return cmd
}

// withApp opens the app for the duration of one emit.
func (o *options) withApp(cmd *cobra.Command, handler func(*session) (any, error), human func(io.Writer, any) error) error {
	s, err := o.open()
	if err != nil {
		return err
	}
	defer s.Close()
	return o.emit(cmd, func() (any, error) { return handler(s) }, human)
}

// renderMarkdown renders md for the terminal, or returns it unchanged when
// colors are off or glamour fails.
func renderMarkdown(md string) string {
	if !ColorsEnabled() {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(GetTerminalWidth(), maxChartWidth)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
