package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration. Each component
// receives only the slice it needs; nothing holds a reference to the whole
// struct past startup wiring.
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	LLM      LLMConfig      `yaml:"llm"`
	Tools    ToolsConfig    `yaml:"tools"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
}

// AgentConfig holds conversation-loop settings.
type AgentConfig struct {
	SystemPrompt  string  `yaml:"system_prompt"`
	MaxIterations int     `yaml:"max_iterations"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
}

// LLMConfig holds provider routing and retry settings.
type LLMConfig struct {
	DefaultModel       string               `yaml:"default_model"`
	MaxRetries         int                  `yaml:"max_retries"`
	BaseRetryDelay     time.Duration        `yaml:"base_retry_delay"`
	RateLimitPerMinute int                  `yaml:"rate_limit_per_minute"`
	CircuitBreaker     CircuitBreakerConfig `yaml:"circuit_breaker"`
	OpenRouter         ProviderConfig       `yaml:"openrouter"`
	Groq               ProviderConfig       `yaml:"groq"`
	Ollama             ProviderConfig       `yaml:"ollama"`
}

// ProviderConfig holds settings for a single chat provider.
type ProviderConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
}

// PoolConfig holds HTTP connection pool settings.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// CircuitBreakerConfig configures the provider circuit breaker.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// ToolsConfig holds tool system settings.
type ToolsConfig struct {
	SandboxRoot      string        `yaml:"sandbox_root"`
	AllowedCommands  []string      `yaml:"allowed_commands"`
	ShellTimeout     time.Duration `yaml:"shell_timeout"`
	WebTimeout       time.Duration `yaml:"web_timeout"`
	WebMaxResponse   int           `yaml:"web_max_response"`
	SearchMaxResults int           `yaml:"search_max_results"`
	GitHubBaseURL    string        `yaml:"github_base_url"`
	GitHubToken      string        `yaml:"github_token"`
	KnowledgeDBPath  string        `yaml:"knowledge_db_path"`
}

// WorkflowConfig holds workflow engine settings.
type WorkflowConfig struct {
	Dir         string        `yaml:"dir"`
	StepTimeout time.Duration `yaml:"step_timeout"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".model8cli")

	return &Config{
		Agent: AgentConfig{
			MaxIterations: 10,
			Temperature:   0.7,
		},
		LLM: LLMConfig{
			DefaultModel:       "moonshotai/kimi-k2:free",
			MaxRetries:         3,
			BaseRetryDelay:     time.Second,
			RateLimitPerMinute: 60,
		},
		Tools: ToolsConfig{
			SandboxRoot:      ".",
			AllowedCommands:  []string{"git", "ls", "cat", "grep", "go", "python", "npm"},
			ShellTimeout:     60 * time.Second,
			WebTimeout:       30 * time.Second,
			WebMaxResponse:   2 * 1024 * 1024,
			SearchMaxResults: 5,
			GitHubBaseURL:    "https://api.github.com",
			KnowledgeDBPath:  filepath.Join(dataDir, "knowledge.db"),
		},
		Workflow: WorkflowConfig{
			Dir:         filepath.Join(dataDir, "workflows"),
			StepTimeout: 5 * time.Minute,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; API keys from the environment always win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays secrets from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.LLM.OpenRouter.APIKey = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.LLM.Groq.APIKey = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.Tools.GitHubToken = v
	}
}
