package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	MarketYahoo = "yahoo"
	MarketCSV   = "csv"
)

// Config is the only persisted config file schema.
type Config struct {
	Provider              string  `toml:"provider"`
	URL                   string  `toml:"url"`
	Token                 string  `toml:"token"`
	Model                 string  `toml:"model"`
	Temperature           float64 `toml:"temperature"`
	MaxTokens             int64   `toml:"max_tokens"`
	EmbeddingModel        string  `toml:"embedding_model"`
	IndexPath             string  `toml:"index_path"`
	Collection            string  `toml:"collection"`
	TopK                  int     `toml:"top_k"`
	MarketSource          string  `toml:"market_source"`
	MarketCSV             string  `toml:"market_csv"`
	QuoteCacheSeconds     int     `toml:"quote_cache_seconds"`
	MaxIterations         int     `toml:"max_iterations"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	ToolTimeoutSeconds    int     `toml:"tool_timeout_seconds"`
	Retries               int     `toml:"retries"`
	Language              string  `toml:"language"`
	Source                string  `toml:"-"`
}

func Default() Config {
	return Config{
		Provider:              ProviderOpenAI,
		Model:                 "gpt-4o-mini",
		Temperature:           0,
		MaxTokens:             2000,
		EmbeddingModel:        "text-embedding-ada-002",
		IndexPath:             filepath.Join(HomeDir(), "index.db"),
		Collection:            "AI_Initiatives",
		TopK:                  5,
		MarketSource:          MarketYahoo,
		MarketCSV:             "financial_data.csv",
		QuoteCacheSeconds:     60,
		MaxIterations:         8,
		RequestTimeoutSeconds: 120,
		ToolTimeoutSeconds:    30,
		Retries:               2,
	}
}

// HomeDir 返回 ~/.finsight；$HOME 不可用时退回当前目录下的 .finsight。
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".finsight"
	}
	return filepath.Join(home, ".finsight")
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".finsight", "config.toml")
}

// Load 读取 TOML 配置，文件不存在时使用默认值，最后叠加环境变量。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	return applyEnv(cfg), nil
}

// applyEnv 叠加环境变量；anthropic 使用自己的变量名。
func applyEnv(cfg Config) Config {
	if env := strings.TrimSpace(os.Getenv("FINSIGHT_PROVIDER")); env != "" {
		cfg.Provider = env
	}
	if cfg.NormalizedProvider() == ProviderAnthropic {
		if env := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); env != "" {
			cfg.URL = env
		}
		if env := strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN")); env != "" {
			cfg.Token = env
		}
		return cfg
	}
	if env := firstEnv("OPENAI_API_BASE", "OPENAI_BASE_URL"); env != "" {
		cfg.URL = env
	}
	if env := firstEnv("API_KEY", "OPENAI_API_KEY"); env != "" {
		cfg.Token = env
	}
	return cfg
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// NormalizedProvider 返回小写的 provider，未知值按 openai 处理。
func (c Config) NormalizedProvider() string {
	if strings.EqualFold(strings.TrimSpace(c.Provider), ProviderAnthropic) {
		return ProviderAnthropic
	}
	return ProviderOpenAI
}

func (c Config) RequestTimeout() time.Duration {
	return seconds(c.RequestTimeoutSeconds)
}

func (c Config) ToolTimeout() time.Duration {
	return seconds(c.ToolTimeoutSeconds)
}

func (c Config) QuoteCacheTTL() time.Duration {
	return seconds(c.QuoteCacheSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
