package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kestrel/internal/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headerText  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c9a227"))
	promptText  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0e0e0"))
	successText = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	dimText     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

// newSetupCmd creates the interactive setup wizard.
func newSetupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long:  `Walks through backend, credentials and storage configuration and writes the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(*configPath)
		},
	}
}

func runSetup(path string) error {
	if path == "" {
		path = config.DefaultPath()
	}
	reader := bufio.NewReader(os.Stdin)

	fmt.Println(headerText.Render("Kestrel setup"))
	fmt.Println(dimText.Render("Press Enter to accept the default shown in brackets."))
	fmt.Println()

	cfg := config.New()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cfg.ContentDir = askString(reader, "Content directory (per-project storage)", filepath.Join(home, "kestrel-content"))

	backend := askChoice(reader, "Image backend", []string{config.BackendReplicate, config.BackendLocal}, config.BackendReplicate)
	cfg.Generation.Backend = backend

	switch backend {
	case config.BackendReplicate:
		token := askString(reader, "Replicate API token (or leave empty to use REPLICATE_API_TOKEN)", "")
		cfg.Replicate.APIToken = token
	case config.BackendLocal:
		cfg.Local.Host = askString(reader, "Local diffusion runtime address", cfg.Local.Host)
		cfg.Local.Model = askString(reader, "Diffusion model", cfg.Local.Model)
	}

	if askBool(reader, "Enhance prompts with a local Ollama model?", false) {
		cfg.Ollama.Enabled = true
		cfg.Ollama.Host = askString(reader, "Ollama address", cfg.Ollama.Host)
		cfg.Ollama.Model = askString(reader, "Ollama model", cfg.Ollama.Model)
	}

	if err := config.Save(cfg, path); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(successText.Render("Configuration saved to " + path))
	fmt.Println(dimText.Render("Edit the projects section of the file to add your own projects."))
	return nil
}

func askString(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Print(promptText.Render(fmt.Sprintf("%s [%s]: ", label, def)))
	} else {
		fmt.Print(promptText.Render(label + ": "))
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func askBool(reader *bufio.Reader, label string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer := askString(reader, fmt.Sprintf("%s (%s)", label, hint), "")
	if answer == "" {
		return def
	}
	switch strings.ToLower(answer) {
	case "y", "yes", "true":
		return true
	}
	return false
}

func askChoice(reader *bufio.Reader, label string, options []string, def string) string {
	for {
		answer := askString(reader, fmt.Sprintf("%s (%s)", label, strings.Join(options, "/")), def)
		for _, opt := range options {
			if strings.EqualFold(answer, opt) {
				return opt
			}
		}
		fmt.Println(dimText.Render("Please answer one of: " + strings.Join(options, ", ")))
	}
}
