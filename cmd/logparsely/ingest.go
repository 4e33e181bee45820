package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/logparsely"
	"github.com/loykin/logparsely/internal/config"
)

// shutdownProgressInterval controls how often a stalled shutdown is reported.
const shutdownProgressInterval = 5 * time.Second

// resolveConfig loads the optional config file and applies flag overrides.
// Flags win over file values; --src entries are appended to file sources.
func resolveConfig(globalFlags *GlobalFlags, flags *IngestFlags) (*logparsely.Config, error) {
	cfg := &logparsely.Config{}
	if globalFlags.ConfigPath != "" {
		c, err := logparsely.LoadConfig(globalFlags.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if flags.DBPath != "" {
		cfg.DBPath = flags.DBPath
	}
	cfg.Sources = append(cfg.Sources, flags.Sources...)
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
	}
	if flags.LogFile != "" {
		cfg.Log.File = flags.LogFile
	}
	if flags.MetricsListen != "" {
		cfg.Metrics = &config.MetricsConfig{Enabled: true, Listen: flags.MetricsListen}
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources given; use --src or a config file with a sources list")
	}
	return cfg, nil
}

func runIngestCommand(globalFlags *GlobalFlags, flags *IngestFlags) error {
	cfg, err := resolveConfig(globalFlags, flags)
	if err != nil {
		return err
	}
	if err := cfg.Log.Apply(); err != nil {
		return err
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		if err := logparsely.RegisterMetricsDefault(); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		go func() {
			if err := logparsely.ServeMetrics(cfg.Metrics.Listen); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = logparsely.DefaultStoragePath()
	}

	// No point continuing if the capture database cannot be opened.
	conn, err := logparsely.OpenStorage(dbPath)
	if err != nil {
		return fmt.Errorf("open capture database %s: %w", dbPath, err)
	}
	defer func() { _ = conn.Close() }()

	fmt.Printf("All data is being streamed into SQLite DB: %s\n", dbPath)

	state := logparsely.NewState()
	for _, src := range cfg.Sources {
		if err := logparsely.AddSource(src, conn, state); err != nil {
			slog.Error("failed to add source", "command", src, "error", err)
			continue
		}
	}

	fmt.Println("Press 'q' or Ctrl-C to stop")
	waitForQuit()

	fmt.Println("Closing background tasks")
	state.Stop()
	waitAllWithProgress(state)
	fmt.Printf("All data has been saved to %s\n", dbPath)
	return nil
}

// waitForQuit blocks until the operator presses 'q' or an interrupt arrives.
func waitForQuit() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	keyCh := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				// stdin closed (e.g. run under a service manager); signals still work
				return
			}
			if n == 1 && (buf[0] == 'q' || buf[0] == 'Q') {
				close(keyCh)
				return
			}
		}
	}()

	select {
	case <-sigCh:
	case <-keyCh:
	}
}

// waitAllWithProgress blocks until every source goroutine has terminated,
// logging periodically so a child that resists termination shows up as a
// stall rather than a silent hang.
func waitAllWithProgress(state *logparsely.State) {
	done := make(chan struct{})
	go func() {
		state.Wait()
		close(done)
	}()
	ticker := time.NewTicker(shutdownProgressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			slog.Info("still waiting for sources to terminate", "outstanding", state.Outstanding())
		}
	}
}
