package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/errors"
	"kestrel/internal/library"
	"kestrel/internal/log"
)

const replicateAPI = "https://api.replicate.com/v1"

// RemoteBackend generates through Replicate-hosted models. Each project
// carries its own fine-tuned model identifier.
type RemoteBackend struct {
	token   string
	baseURL string
	client  *http.Client
	// Poll interval between prediction status checks.
	pollEvery time.Duration
}

// NewRemoteBackend creates a backend using the given API token.
func NewRemoteBackend(token string) *RemoteBackend {
	return &RemoteBackend{
		token:     token,
		baseURL:   replicateAPI,
		client:    &http.Client{Timeout: 60 * time.Second},
		pollEvery: 2 * time.Second,
	}
}

func (r *RemoteBackend) Name() string {
	return config.BackendReplicate
}

type predictionInput struct {
	Prompt            string `json:"prompt"`
	NumOutputs        int    `json:"num_outputs"`
	AspectRatio       string `json:"aspect_ratio"`
	Seed              *int64 `json:"seed,omitempty"`
	Model             string `json:"model"`
	GoFast            bool   `json:"go_fast"`
	LoraScale         int    `json:"lora_scale"`
	Megapixels        string `json:"megapixels"`
	OutputFormat      string `json:"output_format"`
	GuidanceScale     int    `json:"guidance_scale"`
	OutputQuality     int    `json:"output_quality"`
	PromptStrength    float64 `json:"prompt_strength"`
	ExtraLoraScale    int    `json:"extra_lora_scale"`
	NumInferenceSteps int    `json:"num_inference_steps"`
}

type prediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Generate creates a prediction for the project's model, polls it to a
// terminal state, and persists every output URL into the project's image
// directory under a collision-resistant name.
func (r *RemoteBackend) Generate(ctx context.Context, project *config.Project, req Request) ([]string, error) {
	input := predictionInput{
		Prompt:            req.Prompt,
		NumOutputs:        req.NumOutputs,
		AspectRatio:       req.AspectRatio,
		Seed:              req.Seed,
		Model:             "dev",
		GoFast:            false,
		LoraScale:         1,
		Megapixels:        "1",
		OutputFormat:      "png",
		GuidanceScale:     3,
		OutputQuality:     90,
		PromptStrength:    0.8,
		ExtraLoraScale:    1,
		NumInferenceSteps: 28,
	}

	pred, err := r.createPrediction(ctx, project.Model, input)
	if err != nil {
		return nil, err
	}

	pred, err = r.waitForPrediction(ctx, pred)
	if err != nil {
		return nil, err
	}

	if len(pred.Output) == 0 {
		return nil, errors.NewBackendError("prediction returned no outputs", r.Name(), errors.BackendInvalidResponse, nil)
	}

	if err := project.EnsureDirs(); err != nil {
		return nil, err
	}

	now := time.Now()
	paths := make([]string, 0, len(pred.Output))
	for i, url := range pred.Output {
		dest := filepath.Join(project.ImagesDir(), library.ItemName(now, i, ".png"))
		if err := r.download(ctx, url, dest); err != nil {
			return nil, err
		}
		paths = append(paths, dest)
	}

	log.Info("replicate generated %d image(s) for %s", len(paths), project.Slug)
	return paths, nil
}

func (r *RemoteBackend) createPrediction(ctx context.Context, model string, input predictionInput) (*prediction, error) {
	body, err := json.Marshal(map[string]interface{}{"input": input})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s/predictions", r.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, errors.NewBackendError("request failed", r.Name(), errors.BackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.NewBackendError(
			fmt.Sprintf("prediction rejected with status %d: %s", resp.StatusCode, payload),
			r.Name(), errors.BackendRejected, nil)
	}

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, errors.NewBackendError("failed to decode prediction", r.Name(), errors.BackendInvalidResponse, err)
	}
	return &pred, nil
}

func (r *RemoteBackend) waitForPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			return nil, errors.NewBackendError(
				fmt.Sprintf("prediction %s: %s", pred.Status, pred.Error),
				r.Name(), errors.BackendRejected, nil)
		}

		select {
		case <-ctx.Done():
			return nil, errors.NewBackendError("prediction wait interrupted", r.Name(), errors.BackendUnreachable, ctx.Err())
		case <-time.After(r.pollEvery):
		}

		refreshed, err := r.getPrediction(ctx, pred.URLs.Get)
		if err != nil {
			return nil, err
		}
		pred = refreshed
	}
}

func (r *RemoteBackend) getPrediction(ctx context.Context, url string) (*prediction, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, errors.NewBackendError("status poll failed", r.Name(), errors.BackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewBackendError(
			fmt.Sprintf("status poll returned %d", resp.StatusCode),
			r.Name(), errors.BackendInvalidResponse, nil)
	}

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, errors.NewBackendError("failed to decode prediction", r.Name(), errors.BackendInvalidResponse, err)
	}
	return &pred, nil
}

func (r *RemoteBackend) download(ctx context.Context, url, dest string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return errors.NewBackendError("output download failed", r.Name(), errors.BackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewBackendError(
			fmt.Sprintf("output download returned %d", resp.StatusCode),
			r.Name(), errors.BackendInvalidResponse, nil)
	}

	f, err := os.Create(dest)
	if err != nil {
		return errors.NewFileError("failed to create image file", dest, errors.FileOperationFailed, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return errors.NewFileError("failed to write image file", dest, errors.FileOperationFailed, err)
	}
	return nil
}
