// Package generate produces images for prompts through one of two
// interchangeable backends: a hosted Replicate model or an on-device
// diffusion runtime. The orchestrator above them decides which to call,
// optionally rewriting the prompt first.
package generate

import (
	"context"

	"kestrel/internal/config"
	"kestrel/internal/errors"
)

// Request carries the parameters for one generation call.
type Request struct {
	Prompt      string
	NumOutputs  int
	AspectRatio string
	Seed        *int64 // nil means let the backend pick
}

// Backend is a concrete generation provider. Generate writes its outputs
// under the project's image directory and returns their paths. A failed
// call returns an error, never a silently short result.
type Backend interface {
	Name() string
	Generate(ctx context.Context, project *config.Project, req Request) ([]string, error)
}

// NewBackend resolves the configured backend variant. The choice is a
// configuration switch, not a runtime-detected capability, and is made
// fresh on every orchestrator invocation.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Generation.Backend {
	case config.BackendReplicate:
		if cfg.Replicate.APIToken == "" {
			return nil, errors.NewConfigError(
				"replicate backend requires an API token",
				"replicate.api_token", errors.MissingCredentials, nil)
		}
		return NewRemoteBackend(cfg.Replicate.APIToken), nil
	case config.BackendLocal:
		return NewLocalBackend(cfg), nil
	default:
		return nil, errors.NewConfigError(
			"unknown generation backend",
			cfg.Generation.Backend, errors.InvalidConfig, nil)
	}
}

// aspectDims maps the supported aspect ratios onto SDXL-friendly pixel
// dimensions for the local backend. The hosted API takes the ratio string
// directly.
func aspectDims(ratio string) (width, height int) {
	switch ratio {
	case "9:16":
		return 768, 1344
	case "16:9":
		return 1344, 768
	case "2:3":
		return 832, 1216
	case "3:2":
		return 1216, 832
	default: // 1:1 and anything unrecognized
		return 1024, 1024
	}
}
