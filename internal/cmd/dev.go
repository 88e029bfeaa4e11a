package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/apx-dev/apx/internal/bundler"
	"github.com/apx-dev/apx/internal/config"
	"github.com/apx-dev/apx/internal/devmgr"
	"github.com/apx-dev/apx/internal/logging"
	"github.com/apx-dev/apx/internal/project"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Manage the local development processes",
}

var devStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dev processes in the background",
	Long: `Start the frontend bundler, backend server and (if configured) the
openapi watcher as detached processes. PIDs are recorded in
.apx/project.json so they survive across apx invocations.`,
	RunE: runDevStart,
}

var devStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop all recorded dev processes",
	RunE:  runDevStop,
}

var devStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dev process status",
	RunE:  runDevStatus,
}

var devRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the dev processes",
	Long:  `Stop all recorded dev processes, then start them again from the current configuration.`,
	RunE:  runDevRestart,
}

var devRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the build pipeline in the foreground, re-running on changes",
	Long: `Watch the project for changes and run the build pipeline (codegen and
any configured steps) after each quiet period. Runs until interrupted.`,
	RunE: runDevRun,
}

func init() {
	devCmd.AddCommand(devStartCmd)
	devCmd.AddCommand(devStopCmd)
	devCmd.AddCommand(devRestartCmd)
	devCmd.AddCommand(devStatusCmd)
	devCmd.AddCommand(devRunCmd)
	rootCmd.AddCommand(devCmd)
}

func newManager(root string, log *logging.Logger) *devmgr.Manager {
	store := project.NewStore(root)
	return devmgr.New(store, projectLogDir(root), log)
}

func runDevStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	log, err := logging.NewLogger("", "apx", cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Close()

	return startConfigured(newManager(root, log), cfg)
}

// startConfigured starts every configured dev process, rolling back on
// the first failure; a half-up dev environment is harder to reason
// about than a failed start.
func startConfigured(mgr *devmgr.Manager, cfg *config.Config) error {
	type proc struct {
		name    string
		command string
		port    int
	}
	procs := []proc{
		{"frontend", cfg.Dev.FrontendCommand, cfg.Dev.FrontendPort},
		{"backend", cfg.Dev.BackendCommand, cfg.Dev.BackendPort},
		{"openapi", cfg.Dev.OpenAPICommand, 0},
	}

	started := 0
	for _, p := range procs {
		if p.command == "" {
			continue
		}
		pid, err := mgr.Start(p.name, p.command, p.port)
		if err != nil {
			_ = mgr.StopAll()
			return fmt.Errorf("failed to start %s: %w", p.name, err)
		}
		fmt.Printf("started %s (pid %d)\n", p.name, pid)
		started++
	}

	if started == 0 {
		return fmt.Errorf("no dev commands configured")
	}
	return nil
}

func runDevRestart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	log, err := logging.NewLogger("", "apx", cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Close()

	mgr := newManager(root, log)
	if err := mgr.StopAll(); err != nil {
		return err
	}
	return startConfigured(mgr, cfg)
}

func runDevStop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	log, err := logging.NewLogger("", "apx", cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Close()

	mgr := newManager(root, log)
	if err := mgr.StopAll(); err != nil {
		return err
	}
	fmt.Println("dev processes stopped")
	return nil
}

var (
	statusRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("running")
	statusStopped = lipgloss.NewStyle().Faint(true).Render("stopped")
	statusHeader  = lipgloss.NewStyle().Bold(true)
)

func runDevStatus(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	mgr := newManager(root, logging.NopLogger())
	statuses, err := mgr.Statuses()
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Println("no dev processes recorded")
		return nil
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	fmt.Println(statusHeader.Render(fmt.Sprintf("%-12s %-8s %-8s %-6s %s",
		"PROCESS", "STATE", "PID", "PORT", "SINCE")))
	for _, s := range statuses {
		state := statusStopped
		if s.Running {
			state = statusRunning
		}
		port := "-"
		if s.Port > 0 {
			port = fmt.Sprintf("%d", s.Port)
		}
		line := fmt.Sprintf("%-12s %-8s %-8d %-6s %s",
			s.Name, state, s.PID, port, s.Since.Local().Format("2006-01-02 15:04:05"))
		if len(line) > width {
			line = line[:width]
		}
		fmt.Println(line)
	}
	return nil
}

func runDevRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	log, err := logging.NewLogger("", "apx", cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Close()

	adapter, _, err := assemblePipeline(root, cfg, log)
	if err != nil {
		return err
	}

	adapter.ConfigResolved(adapterOutputDir(root))
	adapter.DevServerStarting()

	watcher, err := bundler.NewWatcher(root, adapter, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// First run up front so the client code exists before any edit.
	if err := adapter.BuildStarting(); err != nil {
		log.Error("initial pipeline run failed", "error", err)
	}

	err = watcher.Run(ctx)
	adapter.DevServerClosed()

	if err != nil && ctx.Err() == nil {
		return err
	}
	// Give in-flight termination a moment to settle before exit.
	time.Sleep(100 * time.Millisecond)
	fmt.Println("pipeline stopped")
	return nil
}
