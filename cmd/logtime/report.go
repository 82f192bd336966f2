package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/logtime/internal/config"
	"github.com/goodtune/logtime/internal/intra"
	"github.com/goodtune/logtime/internal/usage"
	"github.com/spf13/cobra"
)

var (
	reportUserID   int64
	reportSessions string
	reportNow      string
	reportJSON     bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a month presence report",
	Long: `Print the current month's presence report for a user, either fetched from
the intra API with the application credential or computed from a local JSON
file of location sessions.`,
	Example: `  logtime report --user-id 12345
  logtime report --sessions locations.json --now 2026-02-15T18:00:00+09:00
  curl ... | logtime report --sessions - --json`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Int64Var(&reportUserID, "user-id", 0, "Intra user id to fetch sessions for")
	reportCmd.Flags().StringVar(&reportSessions, "sessions", "", "JSON file of location sessions (\"-\" for stdin)")
	reportCmd.Flags().StringVar(&reportNow, "now", "", "Report as of this RFC 3339 instant (defaults to now)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
	reportCmd.MarkFlagsMutuallyExclusive("user-id", "sessions")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportUserID == 0 && reportSessions == "" {
		return fmt.Errorf("one of --user-id or --sessions is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	location, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("failed to load report timezone: %w", err)
	}

	var clock usage.Clock = usage.RealClock{}
	if reportNow != "" {
		now, err := time.Parse(time.RFC3339, reportNow)
		if err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
		clock = &usage.FixedClock{CurrentTime: now}
	}

	var report *usage.MonthReport
	if reportSessions != "" {
		records, err := readSessions(cmd.InOrStdin(), reportSessions)
		if err != nil {
			return err
		}
		now := clock.Now().In(location)
		report = usage.BuildMonthReport(usage.ParseSessions(records), now, location, cfg.Report.TargetHours)
	} else {
		if cfg.Intra.ClientID == "" || cfg.Intra.ClientSecret == "" {
			return fmt.Errorf("intra client_id and client_secret are required to fetch sessions")
		}

		logger := quietLogger()
		intraConfig := intraConfigFrom(cfg)
		client := intra.NewClient(intraConfig, logger)
		sessions := intra.NewSessionAdapter(client)
		reporter := usage.NewReporter(sessions, nil, intra.NewAppToken(intraConfig, client, logger), clock, usage.Config{
			Location:    location,
			TargetHours: cfg.Report.TargetHours,
		}, logger)

		report, err = reporter.Report(context.Background(), reportUserID)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
	}

	if reportJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(cmd.OutOrStdout(), report)
	return nil
}

func readSessions(stdin io.Reader, path string) ([]usage.SessionRecord, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sessions file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var records []usage.SessionRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return records, nil
}

func printReport(w io.Writer, report *usage.MonthReport) {
	cyan := color.New(color.FgCyan, color.Bold)
	faint := color.New(color.Faint)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	_, _ = cyan.Fprintf(w, "%04d-%02d\n", report.Year, report.Month)
	for _, day := range report.Days {
		if day.Seconds == 0 {
			_, _ = faint.Fprintf(w, "  %s  %s\n", day.Date, day.Duration)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s  %s\n", day.Date, day.Duration)
	}

	progress := yellow
	if report.Percent >= 100 {
		progress = green
	}
	_, _ = fmt.Fprintf(w, "\ntotal   %s\n", report.AllTime)
	_, _ = progress.Fprintf(w, "target  %.2f%% of %dh\n", report.Percent, report.TargetHours)
}
