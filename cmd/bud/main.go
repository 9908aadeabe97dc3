package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/collaborators"
	"github.com/vthunder/bud2/internal/config"
	"github.com/vthunder/bud2/internal/coreerrors"
	"github.com/vthunder/bud2/internal/focus"
	"github.com/vthunder/bud2/internal/logging"
	"github.com/vthunder/bud2/internal/monitors"
	"github.com/vthunder/bud2/internal/scheduler"
	"github.com/vthunder/bud2/internal/storage"
	"github.com/vthunder/bud2/internal/trigger"
	"github.com/vthunder/bud2/internal/vision"
)

const Version = "2026-07-31-core"

const (
	exitOK             = 0
	exitMisconfigured  = 2
	exitStorageFailure = 3
	exitInterrupted    = 130
)

// checkPidFile checks for an already-running agent and handles it,
// returning a cleanup function to remove the pid file on exit. Generalized
// from the teacher's cmd/bud pid-locking idiom.
func checkPidFile(stateDir string) func() {
	pidFile := filepath.Join(stateDir, "bud.pid")

	if data, err := os.ReadFile(pidFile); err == nil {
		pidStr := strings.TrimSpace(string(data))
		if pid, err := strconv.Atoi(pidStr); err == nil {
			if proc, err := process.NewProcess(int32(pid)); err == nil {
				if running, _ := proc.IsRunning(); running {
					name, _ := proc.Name()
					cmdline, _ := proc.Cmdline()
					if strings.Contains(name, "bud") || strings.Contains(cmdline, "bud") {
						if os.Getenv("BUD_SERVICE") == "1" {
							logging.Warn("main", "non-interactive mode, killing existing process", logging.F("pid", pid))
							proc.Kill()
							time.Sleep(time.Second)
						} else {
							fmt.Printf("\nAnother agent process is running (PID %d)\n", pid)
							fmt.Printf("Started: %s\n\nOptions:\n  [k] Kill it and continue\n  [q] Quit\n\nChoice [k/q]: ", getProcessStartTime(proc))
							reader := bufio.NewReader(os.Stdin)
							choice, _ := reader.ReadString('\n')
							if strings.TrimSpace(strings.ToLower(choice)) == "k" {
								logging.Info("main", "killing existing process", logging.F("pid", pid))
								proc.Kill()
								time.Sleep(500 * time.Millisecond)
							} else {
								logging.Info("main", "exiting to let existing process run")
								os.Exit(exitOK)
							}
						}
					}
				}
			}
		}
		os.Remove(pidFile)
	}

	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		logging.Warn("main", "failed to write pid file", logging.F("err", err))
	}

	return func() { os.Remove(pidFile) }
}

func getProcessStartTime(proc *process.Process) string {
	createTime, err := proc.CreateTime()
	if err != nil {
		return "unknown"
	}
	return time.UnixMilli(createTime).Format("2006-01-02 15:04:05")
}

// autostartEntry is the JSON sidecar describing the platform auto-start
// registration (§C "Config file bootstrapping"); the actual OS registration
// is an external collaborator, the core only owns writing/validating this
// data.
type autostartEntry struct {
	BinaryPath string    `json:"binary_path"`
	ConfigPath string    `json:"config_path"`
	CreatedAt  time.Time `json:"created_at"`
}

func autostartPath(stateDir string) string {
	return filepath.Join(stateDir, "autostart.json")
}

func installAutostart(stateDir, configPath string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("install: resolve executable: %w", err)
	}
	entry := autostartEntry{BinaryPath: exe, ConfigPath: configPath, CreatedAt: time.Now()}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(autostartPath(stateDir), data, 0644)
}

func uninstallAutostart(stateDir string) error {
	err := os.Remove(autostartPath(stateDir))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	subcommand := "run"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		subcommand = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	configPath := fs.String("config", "", "override configuration file location")
	logLevel := fs.String("log-level", "info", "trace|debug|info|warn|error")
	stateDir := fs.String("state", "state", "state directory for the database, config, and pid file")
	if err := fs.Parse(args); err != nil {
		return exitMisconfigured
	}

	if err := godotenv.Load(); err == nil {
		logging.Info("main", "loaded .env file")
	}

	lvl, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --log-level %q\n", *logLevel)
		return exitMisconfigured
	}
	logging.SetLevel(lvl)
	logging.SetNoEmoji(os.Getenv("NO_EMOJI") == "1")

	if *configPath == "" {
		*configPath = filepath.Join(*stateDir, "config.json")
	}

	switch subcommand {
	case "install":
		if err := installAutostart(*stateDir, *configPath); err != nil {
			logging.Error("main", "install failed", logging.F("err", err))
			return 1
		}
		logging.Info("main", "autostart entry written", logging.F("path", autostartPath(*stateDir)))
		return exitOK
	case "uninstall":
		if err := uninstallAutostart(*stateDir); err != nil {
			logging.Error("main", "uninstall failed", logging.F("err", err))
			return 1
		}
		logging.Info("main", "autostart entry removed")
		return exitOK
	case "run":
		return runAgent(*stateDir, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q (want run|install|uninstall)\n", subcommand)
		return exitMisconfigured
	}
}

func runAgent(stateDir, configPath string) int {
	logging.Info("main", "starting", logging.F("version", Version))

	cleanupPid := checkPidFile(stateDir)
	defer cleanupPid()

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Warn("main", "config load failed, falling back to defaults",
			logging.F("path", configPath), logging.F("kind", coreerrors.KindConfig), logging.F("err", err))
		cfg = config.Default()
		if serr := config.Save(configPath+".restored", cfg); serr != nil {
			logging.Warn("main", "failed to write restored config copy", logging.F("err", serr))
		}
	}
	cfgStore := config.NewStore(cfg)

	dbPath := filepath.Join(stateDir, "bud.db")
	artifactDir := filepath.Join(stateDir, "artifacts")
	policy := storage.RetentionPolicy{RetentionDays: cfg.RetentionDays, MaxStorageMB: cfg.MaxStorageMB}
	db, err := storage.Open(dbPath, artifactDir, policy)
	if err != nil {
		logging.Error("main", "storage open failed", logging.F("err", err))
		return exitStorageFailure
	}
	defer db.Close()

	sysClock := clock.Real

	sysMon := monitors.NewSystemMetricsMonitor(sysClock, "/", "")
	procMon := monitors.NewProcessMonitor(sysClock, monitors.NoWindowProvider{}, 10)
	actMon := monitors.NewActivityMonitor(sysClock)

	keywordFile := filepath.Join(stateDir, "error_patterns.yaml")
	trig, err := trigger.NewFromKeywordFile(sysClock, cfgStore.Get, keywordFile)
	if err != nil {
		logging.Error("main", "trigger init failed", logging.F("err", err))
		return exitMisconfigured
	}

	var ocr vision.OCRCapability = vision.NoOCR{}
	if os.Getenv("BUD_ENABLE_OCR") == "1" {
		ocr = vision.TesseractOCR{}
	}
	capturer := vision.NewDisplayCapturer(0)
	visPipeline := vision.NewPipeline(capturer, ocr, db, sysClock)

	categoryFile := filepath.Join(stateDir, "categories.yaml")
	analyzer, err := focus.NewFromCategoryFile(db, sysClock, categoryFile)
	if err != nil {
		logging.Error("main", "focus analyzer init failed", logging.F("err", err))
		return exitMisconfigured
	}

	sched := scheduler.New(scheduler.Deps{
		Store:           db,
		Clock:           sysClock,
		Config:          cfgStore,
		SystemMonitor:   sysMon,
		ProcessMonitor:  procMon,
		ActivityMonitor: actMon,
		Trigger:         trig,
		Vision:          visPipeline,
		Analyzer:        analyzer,
		Notifier:        collaborators.NoOpNotifier{},
		Uploader:        collaborators.NoOpUploader{},
		Stream:          collaborators.NoOpSuggestionStream{},
		SessionID:       "session_" + uuid.New().String(),
		Intervals:       scheduler.DefaultIntervals(),
	})

	logging.Info("main", "all subsystems started, press ctrl+c to stop")

	ctx := context.Background()
	if err := sched.Run(ctx); err != nil {
		logging.Error("main", "scheduler exited with error", logging.F("err", err))
		if coreerrors.Classify(err) == coreerrors.KindStorage {
			return exitStorageFailure
		}
		return exitMisconfigured
	}

	logging.Info("main", "goodbye")
	return exitOK
}

