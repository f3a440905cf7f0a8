package config

import (
	"fmt"
	"strconv"
	"strings"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
)

// knownKeys 列出可覆盖的配置项及其取值类型。
var knownKeys = map[string]valueKind{
	"provider":                kindString,
	"url":                     kindString,
	"token":                   kindString,
	"model":                   kindString,
	"temperature":             kindFloat,
	"max_tokens":              kindInt,
	"embedding_model":         kindString,
	"index_path":              kindString,
	"collection":              kindString,
	"market_source":           kindString,
	"market_csv":              kindString,
	"language":                kindString,
	"top_k":                   kindInt,
	"quote_cache_seconds":     kindInt,
	"max_iterations":          kindInt,
	"request_timeout_seconds": kindInt,
	"tool_timeout_seconds":    kindInt,
	"retries":                 kindInt,
}

// ValidateKVOverrides 严格检查 key=value：格式、已知 key、数字可解析。
// ApplyKVOverrides 对 -c 宽松处理，写回文件前用这里把关。
func ValidateKVOverrides(overrides []string) error {
	for _, raw := range overrides {
		key, val, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if !ok || key == "" {
			return fmt.Errorf("invalid override %q (want key=value)", raw)
		}
		kind, known := knownKeys[key]
		if !known {
			return fmt.Errorf("unknown config key %q", key)
		}
		switch kind {
		case kindInt:
			if _, err := strconv.ParseInt(val, 10, 64); err != nil {
				return fmt.Errorf("%s: %q is not an integer", key, val)
			}
		case kindFloat:
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				return fmt.Errorf("%s: %q is not a number", key, val)
			}
		}
	}
	return nil
}

// ApplyKVOverrides applies free-form -c key=value overrides.
// Unknown keys and unparsable numbers are ignored.
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	if len(overrides) == 0 {
		return cfg
	}
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "provider":
			cfg.Provider = val
		case "url":
			cfg.URL = val
		case "token":
			cfg.Token = val
		case "model":
			cfg.Model = val
		case "temperature":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				cfg.Temperature = f
			}
		case "max_tokens":
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				cfg.MaxTokens = n
			}
		case "embedding_model":
			cfg.EmbeddingModel = val
		case "index_path":
			cfg.IndexPath = val
		case "collection":
			cfg.Collection = val
		case "market_source":
			cfg.MarketSource = val
		case "market_csv":
			cfg.MarketCSV = val
		case "language":
			cfg.Language = val
		case "top_k":
			setInt(&cfg.TopK, val)
		case "quote_cache_seconds":
			setInt(&cfg.QuoteCacheSeconds, val)
		case "max_iterations":
			setInt(&cfg.MaxIterations, val)
		case "request_timeout_seconds":
			setInt(&cfg.RequestTimeoutSeconds, val)
		case "tool_timeout_seconds":
			setInt(&cfg.ToolTimeoutSeconds, val)
		case "retries":
			setInt(&cfg.Retries, val)
		}
	}
	return cfg
}

func setInt(dst *int, val string) {
	if n, err := strconv.Atoi(val); err == nil {
		*dst = n
	}
}
