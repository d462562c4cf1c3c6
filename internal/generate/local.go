package generate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/errors"
	"kestrel/internal/library"
	"kestrel/internal/log"

	"github.com/dustin/go-humanize"
)

// LocalBackend generates through an on-device diffusion runtime sidecar
// over HTTP. The runtime owns model weights and inference; this client
// covers its boundary: generation, readiness probes, and a one-time
// preload at startup so the interactive session never pays cold-start
// latency mid-flight.
type LocalBackend struct {
	host     string
	model    string
	steps    int
	guidance float64
	client   *http.Client
	probe    *http.Client
}

// NewLocalBackend creates a client for the configured runtime address.
func NewLocalBackend(cfg *config.Config) *LocalBackend {
	return &LocalBackend{
		host:     strings.TrimRight(cfg.Local.Host, "/"),
		model:    cfg.Local.Model,
		steps:    cfg.Local.InferenceSteps,
		guidance: cfg.Local.GuidanceScale,
		// Inference can take minutes on CPU; deadlines come from contexts.
		client: &http.Client{},
		probe:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (l *LocalBackend) Name() string {
	return config.BackendLocal
}

type txt2imgRequest struct {
	Model         string  `json:"model"`
	Prompt        string  `json:"prompt"`
	NumImages     int     `json:"num_images"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Steps         int     `json:"steps"`
	GuidanceScale float64 `json:"guidance_scale"`
	Seed          *int64  `json:"seed,omitempty"`
}

type txt2imgResponse struct {
	Images []string `json:"images"` // base64-encoded PNG
}

type modelInfo struct {
	Model     string `json:"model"`
	Cached    bool   `json:"cached"`
	SizeBytes uint64 `json:"size_bytes"`
	Device    string `json:"device"` // cuda, mps or cpu
}

// DeviceInfo reports which acceleration mode the runtime is using.
type DeviceInfo struct {
	Accelerator string
}

// Generate runs txt2img on the runtime and writes the decoded images into
// the project's image directory.
func (l *LocalBackend) Generate(ctx context.Context, project *config.Project, req Request) ([]string, error) {
	width, height := aspectDims(req.AspectRatio)
	body, err := json.Marshal(txt2imgRequest{
		Model:         l.model,
		Prompt:        req.Prompt,
		NumImages:     req.NumOutputs,
		Width:         width,
		Height:        height,
		Steps:         l.steps,
		GuidanceScale: l.guidance,
		Seed:          req.Seed,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.host+"/txt2img", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, errors.NewBackendError("request failed", l.Name(), errors.BackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewBackendError(
			fmt.Sprintf("txt2img returned status %d", resp.StatusCode),
			l.Name(), errors.BackendRejected, nil)
	}

	var out txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.NewBackendError("failed to decode txt2img response", l.Name(), errors.BackendInvalidResponse, err)
	}
	if len(out.Images) == 0 {
		return nil, errors.NewBackendError("txt2img returned no images", l.Name(), errors.BackendInvalidResponse, nil)
	}

	if err := project.EnsureDirs(); err != nil {
		return nil, err
	}

	now := time.Now()
	paths := make([]string, 0, len(out.Images))
	for i, encoded := range out.Images {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.NewBackendError("invalid image payload", l.Name(), errors.BackendInvalidResponse, err)
		}
		dest := filepath.Join(project.ImagesDir(), library.ItemName(now, i, ".png"))
		if err := os.WriteFile(dest, raw, 0644); err != nil {
			return nil, errors.NewFileError("failed to write image file", dest, errors.FileOperationFailed, err)
		}
		paths = append(paths, dest)
	}

	log.Info("local runtime generated %d image(s) for %s", len(paths), project.Slug)
	return paths, nil
}

// Available reports whether the runtime answers its health endpoint.
func (l *LocalBackend) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.host+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := l.probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ModelCached reports whether the configured model's weights are already
// on disk, so startup can warn before a multi-gigabyte download.
func (l *LocalBackend) ModelCached(ctx context.Context) bool {
	info, err := l.info(ctx)
	if err != nil {
		return false
	}
	return info.Cached
}

// ModelSize returns the model's download size as a human-readable string.
func (l *LocalBackend) ModelSize(ctx context.Context) string {
	info, err := l.info(ctx)
	if err != nil || info.SizeBytes == 0 {
		return "unknown size"
	}
	return humanize.Bytes(info.SizeBytes)
}

// GetDeviceInfo reports the active acceleration mode.
func (l *LocalBackend) GetDeviceInfo(ctx context.Context) DeviceInfo {
	info, err := l.info(ctx)
	if err != nil || info.Device == "" {
		return DeviceInfo{Accelerator: "cpu"}
	}
	return DeviceInfo{Accelerator: info.Device}
}

// Preload asks the runtime to load the model into memory, streaming
// progress lines to the callback. Blocking and long-running: called once
// before the TUI starts, never per request.
func (l *LocalBackend) Preload(ctx context.Context, progress func(string)) bool {
	body, err := json.Marshal(map[string]string{"model": l.model})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.host+"/load", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		log.Error("model preload failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error("model preload returned status %d", resp.StatusCode)
		return false
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if progress != nil {
			progress(line)
		}
		if line == "ready" {
			return true
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error("model preload stream ended: %v", err)
	}
	return false
}

func (l *LocalBackend) info(ctx context.Context) (*modelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.host+"/info", nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.probe.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("info returned status %d", resp.StatusCode)
	}

	var info modelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
