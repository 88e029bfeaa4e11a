package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/apx-dev/apx/internal/logging"
	"github.com/apx-dev/apx/internal/logs"
	"github.com/apx-dev/apx/internal/tui"
)

var (
	logsBackend bool
	logsUI      bool
	logsOpenAPI bool
	logsFollow  bool
	logsLimit   int
	logsSince   string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show merged dev process logs",
	Long: `Merge the per-process log files into one time-ordered stream. With no
process flags all processes are shown; --follow streams new entries
as they are written.`,
	RunE: runLogs,
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow dev process logs in an interactive view",
	RunE:  runTail,
}

func init() {
	for _, c := range []*cobra.Command{logsCmd, tailCmd} {
		c.Flags().BoolVar(&logsBackend, "backend", false, "only backend entries")
		c.Flags().BoolVar(&logsUI, "ui", false, "only frontend entries")
		c.Flags().BoolVar(&logsOpenAPI, "openapi", false, "only openapi entries")
	}
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "stream new entries")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 200, "maximum entries to print (0 = all)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "only entries newer than this duration (e.g. 15m, 2h)")

	devCmd.AddCommand(logsCmd)
	devCmd.AddCommand(tailCmd)
}

func logsFilter() (logs.Filter, error) {
	var f logs.Filter
	if logsBackend {
		f.Processes = append(f.Processes, "backend")
	}
	if logsUI {
		f.Processes = append(f.Processes, "frontend")
	}
	if logsOpenAPI {
		f.Processes = append(f.Processes, "openapi")
	}
	f.Limit = logsLimit

	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return f, fmt.Errorf("invalid --since value %q: %w", logsSince, err)
		}
		f.Since = time.Now().Add(-d)
	}
	return f, nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	filter, err := logsFilter()
	if err != nil {
		return err
	}

	entries, err := logs.Read(projectLogDir(root), filter)
	if err != nil {
		return err
	}
	for _, e := range entries {
		printEntry(e)
	}

	if !logsFollow {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, err := logs.Follow(ctx, projectLogDir(root), filter, logging.NopLogger())
	if err != nil {
		return err
	}
	for e := range stream {
		printEntry(e)
	}
	return nil
}

func printEntry(e logs.Entry) {
	if e.Time.IsZero() {
		fmt.Printf("[%s] %s\n", e.Process, e.Message)
		return
	}
	fmt.Printf("[%s] %s %s\n", e.Process, e.Time.Local().Format("15:04:05"), e.Message)
}

func runTail(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	filter, err := logsFilter()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, err := logs.Follow(ctx, projectLogDir(root), filter, logging.NopLogger())
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewTailModel(stream), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
