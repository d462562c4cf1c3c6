package main

import (
	"fmt"

	"kestrel/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCmd prints the effective configuration after defaults, file
// and environment overrides are applied.
func newConfigCmd(configPath *string, verbose *bool) *cobra.Command {
	var showPath bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if showPath {
				fmt.Println(path)
				return nil
			}

			cfg, err := loadConfig(*configPath, *verbose)
			if err != nil {
				return err
			}
			printConfig(cfg, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPath, "path", false, "print the config file path and exit")
	return cmd
}

func printConfig(cfg *config.Config, path string) {
	fmt.Println(headerText.Render("Configuration") + dimText.Render("  ("+path+")"))
	fmt.Println()
	fmt.Printf("  content dir:   %s\n", cfg.ContentDir)
	fmt.Printf("  backend:       %s\n", cfg.Generation.Backend)
	fmt.Printf("  aspect ratio:  %s\n", cfg.Generation.AspectRatio)
	fmt.Printf("  outputs:       %d per prompt\n", cfg.Generation.NumOutputs)

	switch cfg.Generation.Backend {
	case config.BackendLocal:
		fmt.Printf("  local runtime: %s\n", cfg.Local.Host)
		fmt.Printf("  local model:   %s (steps=%d)\n", cfg.Local.Model, cfg.Local.InferenceSteps)
	default:
		token := "not set"
		if cfg.Replicate.APIToken != "" {
			token = "set"
		}
		fmt.Printf("  api token:     %s\n", token)
	}

	if cfg.Ollama.Enabled {
		fmt.Printf("  enhancement:   %s at %s\n", cfg.Ollama.Model, cfg.Ollama.Host)
	} else {
		fmt.Println("  enhancement:   disabled")
	}

	fmt.Println()
	fmt.Println(headerText.Render("Projects"))
	for _, slug := range cfg.ProjectSlugs() {
		p, _ := cfg.Project(slug)
		fmt.Printf("  %-16s %s", slug, p.Name)
		if p.Model != "" {
			fmt.Print(dimText.Render("  (" + p.Model + ")"))
		}
		fmt.Println()
	}
}
