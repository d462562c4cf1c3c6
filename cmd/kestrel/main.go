package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/enhance"
	"kestrel/internal/generate"
	"kestrel/internal/library"
	"kestrel/internal/log"
	"kestrel/internal/tui"
	"kestrel/internal/video"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:     "kestrel",
		Short:   "Terminal studio for AI-generated short-form content",
		Long: `Kestrel turns prompts into images through a hosted or on-device
diffusion backend and assembles them into vertical slideshow videos,
all from a terminal session.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, verbose)
			if err != nil {
				return err
			}
			return runSession(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose logging")

	rootCmd.AddCommand(newSetupCmd(&configPath))
	rootCmd.AddCommand(newConfigCmd(&configPath, &verbose))
	rootCmd.AddCommand(newPromptsCmd(&configPath, &verbose))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string, verbose bool) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(filepath.Dir(config.DefaultPath()), "kestrel.log")
	}
	if err := log.Init(logPath, cfg.Verbose); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return cfg, nil
}

// runSession wires the collaborators and hands the terminal to the
// interactive session. With the local backend configured, the diffusion
// model is loaded up front so the first generation inside the session
// does not stall for minutes.
func runSession(cfg *config.Config) error {
	var orch *generate.Orchestrator
	if cfg.Ollama.Enabled {
		orch = generate.NewOrchestrator(cfg, enhance.New(cfg.Ollama.Host, cfg.Ollama.Model))
	} else {
		orch = generate.NewOrchestrator(cfg, nil)
	}

	lib, err := library.New(cfg.Library.ImagePatterns)
	if err != nil {
		return err
	}

	if cfg.Generation.Backend == config.BackendLocal {
		preloadLocalModel(cfg)
	}

	watcher, err := library.NewWatcher()
	if err != nil {
		log.Warn("storage watcher unavailable: %v", err)
		watcher = nil
	} else {
		defer watcher.Close()
	}

	m := tui.New(cfg, orch, lib, video.NewAssembler(), watcher)
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func preloadLocalModel(cfg *config.Config) {
	local := generate.NewLocalBackend(cfg)

	probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if !local.Available(probeCtx) {
		fmt.Printf("Local runtime not reachable at %s; generation will fail until it is up.\n", cfg.Local.Host)
		return
	}

	ctx, cancelLoad := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancelLoad()

	device := local.GetDeviceInfo(ctx)
	if local.ModelCached(ctx) {
		fmt.Printf("Loading %s (%s) on %s...\n", cfg.Local.Model, local.ModelSize(ctx), device.Accelerator)
	} else {
		fmt.Printf("Downloading %s (%s), this can take a while on first run...\n", cfg.Local.Model, local.ModelSize(ctx))
	}

	if !local.Preload(ctx, func(line string) {
		fmt.Println("  " + line)
	}) {
		fmt.Println("Model load did not finish; the first generation may be slow.")
	}
}
