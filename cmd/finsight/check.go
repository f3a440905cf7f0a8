package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"finsight/internal/agent"
	openaimodel "finsight/internal/agent/openai"
	"finsight/internal/config"
	"finsight/internal/knowledge"
	"finsight/internal/market"

	"github.com/spf13/afero"
)

const (
	checkOK   = "✅"
	checkWarn = "⚠️ "
	checkFail = "❌"

	anthropicDefaultBaseURL = "https://api.anthropic.com"
)

type checkResult struct {
	Mark   string
	Name   string
	Detail string
}

func checkMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var cfgPath string
	var skipPing bool
	var configOverrides stringSlice
	var timeout time.Duration
	fs.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.finsight/config.toml)")
	fs.BoolVar(&skipPing, "no-ping", false, "Skip the model round-trip")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse check args: %v", err)
	}

	cfg, err := loadConfig(root, cfgPath, configOverrides)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, _ = fmt.Fprintln(os.Stdout, "--- Environment Check ---")
	results := []checkResult{}
	provider, err := buildMarket(cfg, afero.NewOsFs())
	if err != nil {
		results = append(results, checkResult{Mark: checkFail, Name: "Market data", Detail: err.Error()})
	}
	var index *knowledge.Index
	store, idx, err := buildIndex(cfg)
	if err != nil {
		results = append(results, checkResult{Mark: checkFail, Name: "Knowledge index", Detail: err.Error()})
	} else {
		defer store.Close()
		index = idx
	}
	results = append(results, runChecks(ctx, cfg, provider, index, !skipPing)...)
	failed := printChecks(os.Stdout, results)
	if failed > 0 {
		os.Exit(1)
	}
}

// runChecks 依次检查凭据、base_url 连通性、行情源、知识库与模型往返。
// provider 或 index 为 nil 时跳过对应检查。
func runChecks(ctx context.Context, cfg config.Config, provider market.Provider, index *knowledge.Index, ping bool) []checkResult {
	var results []checkResult

	token := strings.TrimSpace(cfg.Token)
	if token != "" {
		results = append(results, checkResult{Mark: checkOK, Name: "API key", Detail: fmt.Sprintf("found (%s...) provider=%s", prefix(token, 6), cfg.NormalizedProvider())})
	} else {
		results = append(results, checkResult{Mark: checkFail, Name: "API key", Detail: "missing: set API_KEY/OPENAI_API_KEY or token in " + cfg.Source})
	}

	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		baseURL = openaimodel.DefaultBaseURL
		if cfg.NormalizedProvider() == config.ProviderAnthropic {
			baseURL = anthropicDefaultBaseURL
		}
	}
	if addr, err := openaimodel.CheckBaseURLReachable(ctx, baseURL); err != nil {
		results = append(results, checkResult{Mark: checkFail, Name: "API base", Detail: err.Error()})
	} else {
		results = append(results, checkResult{Mark: checkOK, Name: "API base", Detail: fmt.Sprintf("%s reachable (%s)", baseURL, addr)})
	}

	if provider != nil {
		quote, err := provider.Quote(ctx, "AAPL")
		if err != nil {
			results = append(results, checkResult{Mark: checkFail, Name: "Market data", Detail: fmt.Sprintf("%s: %v", cfg.MarketSource, err)})
		} else {
			name := quote.Name
			if name == "" {
				name = quote.Ticker
			}
			results = append(results, checkResult{Mark: checkOK, Name: "Market data", Detail: fmt.Sprintf("%s working (fetched %s at %.2f)", cfg.MarketSource, name, quote.Price)})
		}
	}

	if index != nil {
		n, err := index.Count(ctx)
		switch {
		case err != nil:
			results = append(results, checkResult{Mark: checkFail, Name: "Knowledge index", Detail: err.Error()})
		case n == 0:
			results = append(results, checkResult{Mark: checkWarn, Name: "Knowledge index", Detail: fmt.Sprintf("collection %s is empty; run finsight ingest --dir <docs>", index.Collection())})
		default:
			results = append(results, checkResult{Mark: checkOK, Name: "Knowledge index", Detail: fmt.Sprintf("collection %s has %d passages", index.Collection(), n)})
		}
	}

	if ping && token != "" {
		reply, err := pingModel(ctx, cfg)
		if err != nil {
			results = append(results, checkResult{Mark: checkFail, Name: "Model", Detail: fmt.Sprintf("%s: %v", cfg.Model, err)})
		} else {
			results = append(results, checkResult{Mark: checkOK, Name: "Model", Detail: fmt.Sprintf("%s replied %q", cfg.Model, reply)})
		}
	}
	return results
}

func pingModel(ctx context.Context, cfg config.Config) (string, error) {
	if cfg.NormalizedProvider() == config.ProviderOpenAI {
		return openaimodel.Ping(ctx, nil, cfg.URL, cfg.Token, cfg.Model)
	}
	client, err := buildModelClient(cfg)
	if err != nil {
		return "", err
	}
	msg, err := client.Complete(ctx, agent.Request{
		Model:     cfg.Model,
		System:    "Reply with the single word: pong",
		Messages:  []agent.Message{{Role: agent.RoleUser, Content: "ping"}},
		MaxTokens: 5,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(msg.Content), nil
}

func printChecks(out io.Writer, results []checkResult) int {
	failed := 0
	for _, r := range results {
		if r.Mark == checkFail {
			failed++
		}
		_, _ = fmt.Fprintf(out, "%s %s: %s\n", r.Mark, r.Name, r.Detail)
	}
	return failed
}

func prefix(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
