// Package main provides the CLI entrypoint for cuetask.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/cuetask/internal/config"
	"github.com/verte-zerg/cuetask/internal/experiment"
	"github.com/verte-zerg/cuetask/internal/generator"
	"github.com/verte-zerg/cuetask/internal/logging"
	"github.com/verte-zerg/cuetask/internal/messages"
	"github.com/verte-zerg/cuetask/internal/model"
	"github.com/verte-zerg/cuetask/internal/participant"
	"github.com/verte-zerg/cuetask/internal/results"
	"github.com/verte-zerg/cuetask/internal/stats"
	"github.com/verte-zerg/cuetask/internal/statsui"
	"github.com/verte-zerg/cuetask/internal/store"
	"github.com/verte-zerg/cuetask/internal/tui"
)

const defaultCurveWindow = 10

var errRunAborted = errors.New("experiment aborted by user")

var (
	runConfigPath  string
	runResultsDir  string
	runMessagesDir string
	runLogLevel    string
	runID          string
	runSex         string
	runAge         string
	runTraining    int
	runTrials      int
	runSessions    int
	runFrameRate   int

	statsParticipant string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsRun         string
	statsFile        string

	exportRun string
	exportOut string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.Defaults()
	rootCmd := &cobra.Command{
		Use:           "cuetask",
		Short:         "Cued choice reaction time experiment",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runExperimentCmd,
	}

	rootCmd.Flags().StringVar(&runConfigPath, "config", "", "config file (.toml, or legacy .yaml)")
	rootCmd.Flags().StringVar(&runResultsDir, "results-dir", config.DefaultResultsDir(), "directory for result and log files")
	rootCmd.Flags().StringVar(&runMessagesDir, "messages-dir", "", "directory overriding the built-in screen texts")
	rootCmd.Flags().StringVar(&runLogLevel, "log-level", "debug", "log file level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&runID, "id", "", "participant identifier (skips the dialog)")
	rootCmd.Flags().StringVar(&runSex, "sex", participant.Sexes[0], "participant sex (M or K)")
	rootCmd.Flags().StringVar(&runAge, "age", participant.DefaultAge, "participant age")
	rootCmd.Flags().IntVar(&runTraining, "training", defaults.TrainingTrials, "number of training trials")
	rootCmd.Flags().IntVar(&runTrials, "trials", defaults.TrialsPerSession, "trials per session")
	rootCmd.Flags().IntVar(&runSessions, "sessions", defaults.Sessions, "number of sessions")
	rootCmd.Flags().IntVar(&runFrameRate, "frame-rate", defaults.FrameRate, "minimum frame rate")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

func runExperimentCmd(cmd *cobra.Command, _ []string) error {
	configPath := runConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Resolve(fileCfg)
	applyIntFlag(cmd, "training", &cfg.TrainingTrials, runTraining)
	applyIntFlag(cmd, "trials", &cfg.TrialsPerSession, runTrials)
	applyIntFlag(cmd, "sessions", &cfg.Sessions, runSessions)
	applyIntFlag(cmd, "frame-rate", &cfg.FrameRate, runFrameRate)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(runLogLevel)); err != nil {
		return fmt.Errorf("invalid --log-level value: %w", err)
	}

	p, err := resolveParticipant(cmd)
	if err != nil {
		if errors.Is(err, participant.ErrDialogCancelled) {
			logErrln("Info dialog terminated.")
		}
		return err
	}
	pid := p.ID()

	if err := os.MkdirAll(runResultsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	logger, logFile, err := logging.OpenFile(runResultsDir, pid, level)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}()
	logger.Info("config loaded", "path", configPath, "participant", pid)

	csvFile := results.NewCSVFile(runResultsDir, pid)
	sinks := results.Sinks{csvFile}
	logger.Info("results file", "path", csvFile.Path())
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logger.Warn("run history disabled", "error", err)
		logErrf("failed to open db, run history disabled: %v\n", err)
	} else {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		runSink := store.NewRunSink(st, csvFile.Path())
		sinks = append(sinks, runSink)
		logger.Info("run started", "run", runSink.RunID())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	screen := tui.NewScreen(cfg, cancel)
	screen.Start()
	closeScreen := func() {
		if cerr := screen.Close(); cerr != nil {
			logErrf("failed to close screen: %v\n", cerr)
		}
	}

	ctrl := experiment.NewController(cfg, experiment.Deps{
		Display: screen,
		Keys:    screen,
		Clock:   experiment.NewStopwatch(),
		Sleep:   experiment.TimerSleeper{},
		Stimuli: generator.New(),
		Texts:   messages.NewSource(runMessagesDir),
		Logger:  logger,
	})
	if err := ctrl.Preflight(ctx, screen); err != nil {
		closeScreen()
		if errors.Is(err, experiment.ErrAborted) {
			return errRunAborted
		}
		return err
	}

	status, err := ctrl.Run(ctx, results.NewTable(pid), sinks)
	closeScreen()
	if err != nil {
		return fmt.Errorf("experiment failed: %w", err)
	}
	logErrf("Results written to %s\n", csvFile.Path())
	if status == model.RunAborted {
		return errRunAborted
	}
	return nil
}

func resolveParticipant(cmd *cobra.Command) (model.Participant, error) {
	initial := model.Participant{Identifier: runID, Sex: runSex, Age: runAge}
	if !cmd.Flags().Changed("id") {
		return tui.AskParticipant(initial, tea.WithAltScreen())
	}
	p := participant.Normalize(initial)
	if err := participant.Validate(p); err != nil {
		return model.Participant{}, fmt.Errorf("invalid participant: %w", err)
	}
	return p, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse stored runs",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsParticipant, "participant", "", "participant ID filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsRun, "run", "", "print the report of one run instead of browsing")
	cmd.Flags().StringVar(&statsFile, "file", "", "print the report of a results CSV file")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be > 0")
	}
	if statsFile != "" {
		report, err := stats.LoadCSVReport(statsFile)
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), statsCurveWindow)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsRun != "" {
		report, err := stats.BuildReport(cmd.Context(), st, statsRun)
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}
		return report.Render(cmd.OutOrStdout(), statsCurveWindow)
	}

	filter := model.RunFilter{
		ParticipantID: statsParticipant,
		Since:         sinceTime,
		Last:          statsLast,
	}
	m := statsui.NewModel(st, filter, statsCurveWindow)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a stored run as a results CSV",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportRun, "run", "", "run ID")
	cmd.Flags().StringVar(&exportOut, "out", "", "output path (default: stdout)")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	if _, err := st.GetRun(ctx, exportRun); err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	rows, err := st.ListTrials(ctx, exportRun)
	if err != nil {
		return fmt.Errorf("failed to load trials: %w", err)
	}
	if exportOut == "" {
		return results.WriteCSV(cmd.OutOrStdout(), rows)
	}
	if err := results.WriteFile(exportOut, rows); err != nil {
		return err
	}
	logErrf("Wrote %s\n", exportOut)
	return nil
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
