package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/marquee/internal/accesslog"
	"github.com/zulandar/marquee/internal/config"
	"github.com/zulandar/marquee/internal/db"
	"github.com/zulandar/marquee/internal/models"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Access log commands",
	}

	cmd.AddCommand(newLogsTimelineCmd())
	cmd.AddCommand(newLogsSummaryCmd())
	cmd.AddCommand(newLogsProbeCmd())
	return cmd
}

func newLogsTimelineCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show the most recent profile-view sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			store := accesslog.NewStore(gormDB)
			ctx := context.Background()
			rows, err := store.Timeline(ctx, limit)
			if err != nil {
				return err
			}
			names, err := store.ActorNames(ctx)
			if err != nil {
				return err
			}
			writeTimeline(cmd.OutOrStdout(), rows, names)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to marquee config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", accesslog.DefaultTimelineLimit, "number of sessions to show")
	return cmd
}

func writeTimeline(out io.Writer, rows []models.AccessLog, names map[string]string) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No access logs found.")
		return
	}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		exit, duration := "-", "-"
		if r.ExitTime != nil {
			exit = r.ExitTime.Local().Format("15:04:05")
		}
		if r.DurationSeconds != nil {
			duration = accesslog.FormatDuration(*r.DurationSeconds)
		}
		table = append(table, []string{
			models.DisplayName(r.ActorID, names),
			r.EntryTime.Local().Format("2006-01-02 15:04:05"),
			exit,
			duration,
			accesslog.DeviceLabel(r.UserAgent),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ACTOR", "ENTRY", "EXIT", "DURATION", "DEVICE"},
		table,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func newLogsSummaryCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show view counts and average view time per actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			store := accesslog.NewStore(gormDB)
			ctx := context.Background()
			rows, err := store.Timeline(ctx, limit)
			if err != nil {
				return err
			}
			names, err := store.ActorNames(ctx)
			if err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), accesslog.Summarize(rows, names))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to marquee config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", accesslog.DefaultTimelineLimit, "number of recent sessions to summarize")
	return cmd
}

func writeSummary(out io.Writer, summaries []accesslog.ActorSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No access logs found.")
		return
	}
	table := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		table = append(table, []string{
			s.ActorName,
			strconv.Itoa(s.TotalViews),
			accesslog.FormatDuration(s.AvgDurationSeconds),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ACTOR", "VIEWS", "AVG TIME"},
		table,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
}

func newLogsProbeCmd() *cobra.Command {
	var (
		configPath string
		baseURL    string
		actorID    string
		dwell      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Record a synthetic profile view against a running server",
		Long: "Opens a session for --actor through the REST endpoints, waits --dwell, then\n" +
			"sends the exit beacon. Useful to smoke-test a deployment end to end.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if baseURL == "" {
				baseURL = cfg.Recorder.BaseURL
			}
			if baseURL == "" {
				return fmt.Errorf("recorder.base_url or --url is required")
			}
			timeout := time.Duration(cfg.Recorder.TimeoutSec) * time.Second
			return runProbe(cmd.Context(), cmd.OutOrStdout(), accesslog.NewHTTPTransport(baseURL, timeout), actorID, dwell, timeout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to marquee config file")
	cmd.Flags().StringVar(&baseURL, "url", "", "server base URL (overrides recorder.base_url)")
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id to view")
	cmd.Flags().DurationVar(&dwell, "dwell", 3*time.Second, "how long the synthetic view stays open")
	cmd.MarkFlagRequired("actor")
	return cmd
}

func runProbe(ctx context.Context, out io.Writer, transport *accesslog.HTTPTransport, actorID string, dwell, timeout time.Duration) error {
	rec := accesslog.NewRecorder(transport, "marquee-probe/"+Version)
	rec.Start(ctx, actorID)
	fmt.Fprintf(out, "Session %s opened for %s\n", rec.SessionToken(), actorID)

	select {
	case <-time.After(dwell):
	case <-ctx.Done():
	}
	rec.Close()

	waitCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := transport.Wait(waitCtx); err != nil {
		return fmt.Errorf("waiting for exit beacon: %w", err)
	}
	fmt.Fprintln(out, "Exit beacon sent")
	return nil
}
