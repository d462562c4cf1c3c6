package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/enhance"
	"kestrel/internal/generate"

	"github.com/spf13/cobra"
)

// newPromptsCmd generates prompt ideas for a topic through the Ollama
// model, and optionally runs the whole batch through the image backend.
func newPromptsCmd(configPath *string, verbose *bool) *cobra.Command {
	var count int
	var style string
	var projectSlug string
	var runBatch bool

	cmd := &cobra.Command{
		Use:   "prompts <topic>",
		Short: "Generate prompt ideas for a topic",
		Long: `Asks the configured Ollama model for ready-to-use image prompts on a
topic. With --generate the prompts are fed straight into the image
backend for the given project.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, *verbose)
			if err != nil {
				return err
			}
			return runPrompts(cfg, args[0], count, style, projectSlug, runBatch)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of prompts to generate")
	cmd.Flags().StringVar(&style, "style", "", "style hint applied to every prompt")
	cmd.Flags().StringVarP(&projectSlug, "project", "p", "", "project receiving generated images")
	cmd.Flags().BoolVar(&runBatch, "generate", false, "generate images for every prompt")
	return cmd
}

func runPrompts(cfg *config.Config, topic string, count int, style, projectSlug string, runBatch bool) error {
	if !cfg.Ollama.Enabled {
		return fmt.Errorf("prompt ideation needs Ollama; enable it with 'kestrel setup' or KESTREL_USE_OLLAMA=1")
	}

	client := enhance.New(cfg.Ollama.Host, cfg.Ollama.Model)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if !client.Available(ctx) {
		return fmt.Errorf("ollama is not reachable at %s", cfg.Ollama.Host)
	}

	fmt.Println(dimText.Render(fmt.Sprintf("Asking %s for %d prompts about %q...", cfg.Ollama.Model, count, topic)))
	prompts := client.GeneratePrompts(ctx, topic, count, style)
	if len(prompts) == 0 {
		return fmt.Errorf("the model returned no usable prompts")
	}

	fmt.Println()
	for i, p := range prompts {
		fmt.Printf("%2d. %s\n", i+1, p)
	}

	if !runBatch {
		return nil
	}
	if projectSlug == "" {
		return fmt.Errorf("--generate needs --project")
	}
	project, ok := cfg.Project(projectSlug)
	if !ok {
		return fmt.Errorf("unknown project %q (known: %s)", projectSlug, strings.Join(cfg.ProjectSlugs(), ", "))
	}
	if err := project.EnsureDirs(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(headerText.Render(fmt.Sprintf("Generating %d prompts for %s", len(prompts), project.Name)))

	orch := generate.NewOrchestrator(cfg, client)
	paths, _, err := orch.GenerateBatch(ctx, project, prompts, generate.Options{StyleHint: style})
	for _, path := range paths {
		fmt.Println(successText.Render("  " + filepath.Base(path)))
	}
	if err != nil {
		// Partial batches still return everything that succeeded.
		fmt.Println(dimText.Render("  " + err.Error()))
	}
	fmt.Printf("\n%d image(s) in %s\n", len(paths), project.ImagesDir())
	return nil
}
