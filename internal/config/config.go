package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Backend identifiers accepted by the generation settings.
const (
	BackendReplicate = "replicate"
	BackendLocal     = "local"
)

// Project is one content collection with its generation model.
// Projects are defined at load time and read-only afterwards.
type Project struct {
	Name        string `yaml:"name"`        // Display name
	Slug        string `yaml:"slug"`        // Unique identifier, also the storage directory name
	Model       string `yaml:"model"`       // Hosted model identifier (owner/name)
	Trigger     string `yaml:"trigger"`     // Optional token prepended to prompts
	Description string `yaml:"description"` // One-line description for the project sidebar

	contentDir string
}

// ImagesDir returns the project's image storage location.
func (p *Project) ImagesDir() string {
	return filepath.Join(p.contentDir, p.Slug, "images")
}

// AudioDir returns the project's audio storage location.
func (p *Project) AudioDir() string {
	return filepath.Join(p.contentDir, p.Slug, "audio")
}

// ExportsDir returns where assembled videos are written.
func (p *Project) ExportsDir() string {
	return filepath.Join(p.contentDir, p.Slug, "exports")
}

// EnsureDirs creates the project's storage directories if missing.
func (p *Project) EnsureDirs() error {
	for _, dir := range []string{p.ImagesDir(), p.AudioDir(), p.ExportsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create project directory: %w", err)
		}
	}
	return nil
}

// Config is the application configuration. It is constructed once at
// process start and passed by reference into everything that needs it.
type Config struct {
	ContentDir string `yaml:"content_dir"` // Root for per-project storage

	Generation struct {
		Backend     string `yaml:"backend"`      // replicate or local
		AspectRatio string `yaml:"aspect_ratio"` // Default aspect ratio for new images
		NumOutputs  int    `yaml:"num_outputs"`  // Default images per prompt
	} `yaml:"generation"`

	Replicate struct {
		APIToken string `yaml:"api_token"` // Hosted API credential
	} `yaml:"replicate"`

	Local struct {
		Host           string  `yaml:"host"`            // On-device diffusion runtime address
		Model          string  `yaml:"model"`           // Diffusion model identifier
		InferenceSteps int     `yaml:"inference_steps"` // Denoising steps per image
		GuidanceScale  float64 `yaml:"guidance_scale"`  // Classifier-free guidance strength
	} `yaml:"local"`

	Ollama struct {
		Enabled bool   `yaml:"enabled"` // Enhance prompts before generation
		Host    string `yaml:"host"`    // Ollama server address
		Model   string `yaml:"model"`   // Text model used for enhancement
	} `yaml:"ollama"`

	Library struct {
		// Glob patterns for files treated as generated items when listing
		// a project's image storage.
		ImagePatterns []string `yaml:"image_patterns"`
	} `yaml:"library"`

	Projects map[string]*Project `yaml:"projects"`

	LogFile string `yaml:"log_file"`
	Verbose bool   `yaml:"verbose"`
}

// DefaultPath returns the default configuration file location
// (~/.config/kestrel/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "kestrel", "config.yaml")
}

// Load loads configuration from the default location.
func Load() (*Config, error) {
	return LoadFile(DefaultPath())
}

// LoadFile loads configuration from a specific file path. A missing file
// yields the defaults; environment variables override either way.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			cfg.bindProjects()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge the loaded config over defaults, keeping defaults for unset fields.
	if fileCfg.ContentDir != "" {
		cfg.ContentDir = fileCfg.ContentDir
	}
	if fileCfg.Generation.Backend != "" {
		cfg.Generation.Backend = fileCfg.Generation.Backend
	}
	if fileCfg.Generation.AspectRatio != "" {
		cfg.Generation.AspectRatio = fileCfg.Generation.AspectRatio
	}
	if fileCfg.Generation.NumOutputs > 0 {
		cfg.Generation.NumOutputs = fileCfg.Generation.NumOutputs
	}
	if fileCfg.Replicate.APIToken != "" {
		cfg.Replicate.APIToken = fileCfg.Replicate.APIToken
	}
	if fileCfg.Local.Host != "" {
		cfg.Local.Host = fileCfg.Local.Host
	}
	if fileCfg.Local.Model != "" {
		cfg.Local.Model = fileCfg.Local.Model
	}
	if fileCfg.Local.InferenceSteps > 0 {
		cfg.Local.InferenceSteps = fileCfg.Local.InferenceSteps
	}
	if fileCfg.Local.GuidanceScale > 0 {
		cfg.Local.GuidanceScale = fileCfg.Local.GuidanceScale
	}
	cfg.Ollama.Enabled = fileCfg.Ollama.Enabled
	if fileCfg.Ollama.Host != "" {
		cfg.Ollama.Host = fileCfg.Ollama.Host
	}
	if fileCfg.Ollama.Model != "" {
		cfg.Ollama.Model = fileCfg.Ollama.Model
	}
	if len(fileCfg.Library.ImagePatterns) > 0 {
		cfg.Library.ImagePatterns = fileCfg.Library.ImagePatterns
	}
	if len(fileCfg.Projects) > 0 {
		cfg.Projects = fileCfg.Projects
	}
	if fileCfg.LogFile != "" {
		cfg.LogFile = fileCfg.LogFile
	}
	cfg.Verbose = cfg.Verbose || fileCfg.Verbose

	cfg.applyEnv()
	cfg.bindProjects()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays environment variables. Env wins over the file so a
// credential never has to live on disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("KESTREL_CONTENT_DIR"); v != "" {
		c.ContentDir = v
	}
	if v := os.Getenv("KESTREL_BACKEND"); v != "" {
		c.Generation.Backend = v
	}
	if v := os.Getenv("REPLICATE_API_TOKEN"); v != "" {
		c.Replicate.APIToken = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.Ollama.Host = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("KESTREL_USE_OLLAMA"); v != "" {
		c.Ollama.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("KESTREL_LOCAL_HOST"); v != "" {
		c.Local.Host = v
	}
	if v := os.Getenv("KESTREL_VERBOSE"); v != "" {
		c.Verbose, _ = strconv.ParseBool(v)
	}
}

// bindProjects fills in slugs from map keys and points every project at
// the configured content root.
func (c *Config) bindProjects() {
	for slug, p := range c.Projects {
		if p.Slug == "" {
			p.Slug = slug
		}
		p.contentDir = c.ContentDir
	}
}

func defaultConfig() *Config {
	cfg := &Config{}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cfg.ContentDir = filepath.Join(home, "kestrel", "content")

	cfg.Generation.Backend = BackendReplicate
	cfg.Generation.AspectRatio = "9:16" // Vertical short-form video format
	cfg.Generation.NumOutputs = 1

	cfg.Local.Host = "http://localhost:7860"
	cfg.Local.Model = "stabilityai/sdxl-turbo"
	cfg.Local.InferenceSteps = 15
	cfg.Local.GuidanceScale = 0.0

	cfg.Ollama.Enabled = false
	cfg.Ollama.Host = "http://localhost:11434"
	cfg.Ollama.Model = "llama3.2:latest"

	cfg.Library.ImagePatterns = []string{"*.png", "*.jpg", "*.jpeg", "*.webp"}

	cfg.Projects = map[string]*Project{
		"wedding-vision": {
			Name:        "Wedding Vision",
			Slug:        "wedding-vision",
			Model:       "digital-prairie-labs/spring-wedding",
			Trigger:     "TOK",
			Description: "Spring wedding florals and bouquets",
		},
		"latin-bible": {
			Name:        "Latin Bible",
			Slug:        "latin-bible",
			Model:       "digital-prairie-labs/catholic-prayers-v2.1",
			Trigger:     "",
			Description: "Catholic prayers and religious imagery",
		},
		"dxp-labs": {
			Name:        "DXP Labs",
			Slug:        "dxp-labs",
			Model:       "digital-prairie-labs/futuristic",
			Trigger:     "TOK",
			Description: "Futuristic sci-fi landscapes and spaceships",
		},
	}

	cfg.LogFile = filepath.Join(home, ".local", "state", "kestrel", "kestrel.log")

	return cfg
}

// New returns a configuration with default values.
func New() *Config {
	cfg := defaultConfig()
	cfg.bindProjects()
	return cfg
}

// Save writes the configuration to the specified file, creating parent
// directories if they don't exist.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Project looks up a project by slug.
func (c *Config) Project(slug string) (*Project, bool) {
	p, ok := c.Projects[slug]
	return p, ok
}

// ProjectSlugs returns all project slugs in stable sorted order, used for
// the sidebar ordering and the numeric hotkeys.
func (c *Config) ProjectSlugs() []string {
	slugs := make([]string, 0, len(c.Projects))
	for slug := range c.Projects {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}

	switch c.Generation.Backend {
	case BackendReplicate, BackendLocal:
	default:
		return fmt.Errorf("invalid generation backend: %s", c.Generation.Backend)
	}

	if c.Generation.NumOutputs < 1 {
		return fmt.Errorf("num_outputs must be >= 1")
	}

	if c.Local.InferenceSteps < 1 {
		return fmt.Errorf("inference_steps must be >= 1")
	}

	for slug, p := range c.Projects {
		if p.Name == "" {
			return fmt.Errorf("project %s: name is required", slug)
		}
		if p.Slug != slug {
			return fmt.Errorf("project %s: slug mismatch: %s", slug, p.Slug)
		}
		if c.Generation.Backend == BackendReplicate && p.Model == "" {
			return fmt.Errorf("project %s: model is required for the replicate backend", slug)
		}
	}

	return nil
}

// NewTestConfig creates a configuration instance for testing purposes,
// rooted at a throwaway content directory.
func NewTestConfig(contentDir string) *Config {
	cfg := defaultConfig()
	cfg.ContentDir = contentDir
	cfg.Replicate.APIToken = "test-token"
	cfg.Projects = map[string]*Project{
		"test-project": {
			Name:        "Test Project",
			Slug:        "test-project",
			Model:       "acme/test-model",
			Trigger:     "TOK",
			Description: "Fixture project",
		},
	}
	cfg.bindProjects()
	return cfg
}
