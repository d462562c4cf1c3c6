package generate

import (
	"context"
	"fmt"
	"strings"

	"kestrel/internal/config"
	"kestrel/internal/errors"
	"kestrel/internal/log"
)

// Enhancer is the prompt-rewriting collaborator. Satisfied by
// *enhance.Client.
type Enhancer interface {
	Available(ctx context.Context) bool
	Enhance(ctx context.Context, prompt, styleHint string) (string, bool)
	Model() string
}

// Options tune one generation invocation. Zero values fall back to the
// configured defaults.
type Options struct {
	NumOutputs  int
	AspectRatio string
	Seed        *int64
	Enhance     bool // Rewrite the prompt first, when the enhancer is reachable
	StyleHint   string
}

// Metadata records how a result was produced. Informational only, never
// persisted.
type Metadata struct {
	OriginalPrompt string
	FinalPrompt    string
	Enhanced       bool
	Backend        string
	Model          string
}

// Orchestrator selects a backend, optionally enhances the prompt, and
// invokes generation. It holds no per-request state and is safe to share.
type Orchestrator struct {
	cfg      *config.Config
	enhancer Enhancer

	// newBackend is swappable so tests can inject a stub backend.
	newBackend func(*config.Config) (Backend, error)
}

// NewOrchestrator creates an orchestrator. enhancer may be nil when
// enhancement is disabled entirely.
func NewOrchestrator(cfg *config.Config, enhancer Enhancer) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		enhancer:   enhancer,
		newBackend: NewBackend,
	}
}

// Generate produces images for prompt in the given project. The full
// requested set comes back or an error does; there are no silent partial
// results.
func (o *Orchestrator) Generate(ctx context.Context, project *config.Project, prompt string, opts Options) ([]string, Metadata, error) {
	backend, err := o.newBackend(o.cfg)
	if err != nil {
		return nil, Metadata{}, err
	}

	meta := Metadata{
		OriginalPrompt: prompt,
		FinalPrompt:    prompt,
		Backend:        backend.Name(),
		Model:          o.modelFor(backend, project),
	}

	log.Info("generating: backend=%s project=%s", meta.Backend, project.Slug)

	finalPrompt := prompt
	if opts.Enhance && o.cfg.Ollama.Enabled && o.enhancer != nil && o.enhancer.Available(ctx) {
		enhanced, changed := o.enhancer.Enhance(ctx, prompt, opts.StyleHint)
		meta.Enhanced = changed
		meta.FinalPrompt = enhanced
		finalPrompt = enhanced
		if changed {
			log.Debug("prompt enhanced: %.100s", enhanced)
		}
	}

	// A project trigger token keys its fine-tuned model and always leads
	// the prompt the backend sees.
	if project.Trigger != "" && !strings.HasPrefix(finalPrompt, project.Trigger) {
		finalPrompt = project.Trigger + " " + finalPrompt
		meta.FinalPrompt = finalPrompt
	}

	req := Request{
		Prompt:      finalPrompt,
		NumOutputs:  opts.NumOutputs,
		AspectRatio: opts.AspectRatio,
		Seed:        opts.Seed,
	}
	if req.NumOutputs < 1 {
		req.NumOutputs = o.cfg.Generation.NumOutputs
	}
	if req.AspectRatio == "" {
		req.AspectRatio = o.cfg.Generation.AspectRatio
	}

	paths, err := backend.Generate(ctx, project, req)
	if err != nil {
		log.Error("generation failed: %v", err)
		return nil, Metadata{}, err
	}

	return paths, meta, nil
}

// GenerateBatch applies Generate to each prompt independently.
//
// Failure policy: continue on error. A failed prompt is logged and
// counted while the remaining prompts still run; successes are returned
// alongside an error summarizing the failure count. Callers get
// everything that was produced either way.
func (o *Orchestrator) GenerateBatch(ctx context.Context, project *config.Project, prompts []string, opts Options) ([]string, []Metadata, error) {
	var allPaths []string
	var allMeta []Metadata
	failed := 0

	for _, prompt := range prompts {
		paths, meta, err := o.Generate(ctx, project, prompt, opts)
		if err != nil {
			failed++
			log.Warn("batch prompt failed: %.80q: %v", prompt, err)
			continue
		}
		allPaths = append(allPaths, paths...)
		allMeta = append(allMeta, meta)
	}

	if failed > 0 {
		return allPaths, allMeta, errors.Newf("%d of %d prompts failed", failed, len(prompts))
	}
	return allPaths, allMeta, nil
}

// BackendStatus returns a short line for the TUI header describing the
// active backend and enhancer reachability.
func (o *Orchestrator) BackendStatus(ctx context.Context) string {
	var parts []string

	switch o.cfg.Generation.Backend {
	case config.BackendLocal:
		local := NewLocalBackend(o.cfg)
		if local.Available(ctx) {
			device := local.GetDeviceInfo(ctx)
			parts = append(parts, fmt.Sprintf("Local (%s)", strings.ToUpper(device.Accelerator)))
		} else {
			parts = append(parts, "Local (unavailable)")
		}
	default:
		parts = append(parts, "Replicate")
	}

	if o.cfg.Ollama.Enabled && o.enhancer != nil {
		if o.enhancer.Available(ctx) {
			parts = append(parts, "Ollama:"+o.enhancer.Model())
		} else {
			parts = append(parts, "Ollama (offline)")
		}
	}

	return strings.Join(parts, " | ")
}

func (o *Orchestrator) modelFor(backend Backend, project *config.Project) string {
	if backend.Name() == config.BackendLocal {
		return o.cfg.Local.Model
	}
	return project.Model
}
