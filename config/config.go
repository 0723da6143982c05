package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HugeFrog24/media-scorer/utils"
)

const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

type Generation struct {
	Temperature      float32 `yaml:"temperature"`
	TopP             float32 `yaml:"top_p"`
	TopK             int     `yaml:"top_k"`
	MaxOutputTokens  int     `yaml:"max_output_tokens"`
	ResponseMIMEType string  `yaml:"response_mime_type"`
}

type Poll struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Redis struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	InputQueue  string        `yaml:"input_queue"`
	OutputQueue string        `yaml:"output_queue"`
	Concurrency int           `yaml:"concurrency"`
	JobTimeout  time.Duration `yaml:"job_timeout"`
}

// Config is read once at startup and passed into constructors.
type Config struct {
	Backend        string     `yaml:"backend"`
	Model          string     `yaml:"model"`
	BaseURL        string     `yaml:"base_url"`
	TmpDir         string     `yaml:"tmp_dir"`
	ListenAddr     string     `yaml:"listen_addr"`
	MaxUploadMB    int64      `yaml:"max_upload_mb"`
	FFmpegPath     string     `yaml:"ffmpeg_path"`
	DetectLanguage bool       `yaml:"detect_language"`
	Generation     Generation `yaml:"generation"`
	Poll           Poll       `yaml:"poll"`
	Redis          Redis      `yaml:"redis"`

	// APIKey only ever comes from the environment.
	APIKey string `yaml:"-"`
}

func Default() Config {
	gen := utils.DefaultGenerationConfig()
	return Config{
		Backend:        BackendGemini,
		TmpDir:         ".tmp",
		ListenAddr:     ":7860",
		MaxUploadMB:    512,
		DetectLanguage: true,
		Generation: Generation{
			Temperature:      gen.Temperature,
			TopP:             gen.TopP,
			TopK:             gen.TopK,
			MaxOutputTokens:  gen.MaxOutputTokens,
			ResponseMIMEType: gen.ResponseMIMEType,
		},
		Poll: Poll{
			Interval:    utils.DefaultPollInterval,
			MaxAttempts: utils.DefaultMaxPollAttempts,
		},
		Redis: Redis{
			Addr:        "localhost:6379",
			InputQueue:  "media_analysis_queue",
			OutputQueue: "media_analysis_results",
			Concurrency: 5,
			JobTimeout:  10 * time.Minute,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(os.Getenv)
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("MEDIA_SCORER_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := getenv("MEDIA_SCORER_MODEL"); v != "" {
		c.Model = v
	}
	if v := getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil && db >= 0 {
			c.Redis.DB = db
		}
	}

	switch c.Backend {
	case BackendOpenAI:
		c.APIKey = getenv("OPENAI_API_KEY")
		if c.APIKey == "" {
			c.APIKey = getenv("GEMINI_API_KEY")
		}
	default:
		c.APIKey = getenv("GEMINI_API_KEY")
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGemini, BackendOpenAI:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.APIKey == "" {
		if c.Backend == BackendOpenAI {
			return fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll.max_attempts must be positive")
	}
	return nil
}

func (c *Config) GenerationConfig() utils.GenerationConfig {
	return utils.GenerationConfig{
		Temperature:      c.Generation.Temperature,
		TopP:             c.Generation.TopP,
		TopK:             c.Generation.TopK,
		MaxOutputTokens:  c.Generation.MaxOutputTokens,
		ResponseMIMEType: c.Generation.ResponseMIMEType,
	}
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
