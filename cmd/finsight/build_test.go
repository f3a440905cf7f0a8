package main

import (
	"testing"

	"finsight/internal/agent"
	anthropicmodel "finsight/internal/agent/anthropic"
	openaimodel "finsight/internal/agent/openai"
	"finsight/internal/config"
	"finsight/internal/knowledge"
	"finsight/internal/market"

	"github.com/spf13/afero"
)

const testCSV = `ticker,date,close,volume,market_cap
AAPL,2024-06-13,214.24,1000,3280000000000
AAPL,2024-06-14,212.49,1200,3260000000000
`

func TestBuildModelClientFallsBackToEcho(t *testing.T) {
	cfg := config.Default()
	cfg.Token = ""
	client, err := buildModelClient(cfg)
	if err != nil {
		t.Fatalf("buildModelClient: %v", err)
	}
	if _, ok := client.(agent.EchoClient); !ok {
		t.Fatalf("client = %T, want agent.EchoClient", client)
	}
}

func TestBuildModelClientSelectsProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Token = "sk-test"
	client, err := buildModelClient(cfg)
	if err != nil {
		t.Fatalf("buildModelClient(openai): %v", err)
	}
	if _, ok := client.(*openaimodel.Client); !ok {
		t.Fatalf("client = %T, want *openai.Client", client)
	}

	cfg.Provider = "Anthropic"
	client, err = buildModelClient(cfg)
	if err != nil {
		t.Fatalf("buildModelClient(anthropic): %v", err)
	}
	if _, ok := client.(*anthropicmodel.Client); !ok {
		t.Fatalf("client = %T, want *anthropic.Client", client)
	}
}

func TestBuildMarket(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/financial_data.csv", []byte(testCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	cfg := config.Default()
	cfg.MarketSource = "csv"
	cfg.MarketCSV = "/data/financial_data.csv"

	cfg.QuoteCacheSeconds = 0
	provider, err := buildMarket(cfg, fs)
	if err != nil {
		t.Fatalf("buildMarket(csv): %v", err)
	}
	if _, ok := provider.(*market.CSVProvider); !ok {
		t.Fatalf("provider = %T, want *market.CSVProvider", provider)
	}

	cfg.QuoteCacheSeconds = 60
	provider, err = buildMarket(cfg, fs)
	if err != nil {
		t.Fatalf("buildMarket(cached): %v", err)
	}
	cached, ok := provider.(*market.CachedProvider)
	if !ok {
		t.Fatalf("provider = %T, want *market.CachedProvider", provider)
	}
	cached.Close()

	cfg.QuoteCacheSeconds = 0
	cfg.MarketSource = "yahoo"
	provider, err = buildMarket(cfg, fs)
	if err != nil {
		t.Fatalf("buildMarket(yahoo): %v", err)
	}
	if _, ok := provider.(*market.YahooProvider); !ok {
		t.Fatalf("provider = %T, want *market.YahooProvider", provider)
	}

	cfg.MarketSource = "bloomberg"
	if _, err := buildMarket(cfg, fs); err == nil {
		t.Fatalf("expected error for unknown market source")
	}
}

func TestBuildEmbedderWithoutKeyUsesHash(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.Default()
	cfg.Provider = "anthropic"
	cfg.Token = "anthropic-token"
	if _, ok := buildEmbedder(cfg).(knowledge.HashEmbedder); !ok {
		t.Fatalf("expected hash embedder when no OpenAI key is available")
	}

	cfg.Provider = "openai"
	cfg.Token = "sk-test"
	if _, ok := buildEmbedder(cfg).(*knowledge.OpenAIEmbedder); !ok {
		t.Fatalf("expected OpenAI embedder when the openai token is set")
	}
}
