package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"finsight/internal/agent"
	anthropicmodel "finsight/internal/agent/anthropic"
	openaimodel "finsight/internal/agent/openai"
	"finsight/internal/config"
	"finsight/internal/events"
	"finsight/internal/i18n"
	"finsight/internal/instructions"
	"finsight/internal/knowledge"
	"finsight/internal/market"
	"finsight/internal/prompts"
	"finsight/internal/tools/handlers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
)

// app 汇总一次进程内共享的依赖：模型、行情、知识库与 agent 循环。
type app struct {
	cfg      config.Config
	loop     *agent.Loop
	bus      *events.Bus
	registry *prometheus.Registry
	index    *knowledge.Index
	store    *knowledge.Store
	market   market.Provider
	closers  []io.Closer
	cleanups []func()
}

func (r *app) Close() {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			log.Warnf("close: %v", err)
		}
	}
}

// indexInfo 返回知识库状态描述，用于 /status 与 check。
func (r *app) indexInfo(ctx context.Context) string {
	n, err := r.index.Count(ctx)
	if err != nil {
		return fmt.Sprintf("%s (unavailable: %v)", r.index.Collection(), err)
	}
	return fmt.Sprintf("%s (%d passages, %s)", r.index.Collection(), n, r.cfg.IndexPath)
}

func buildRuntime(cfg config.Config) (*app, error) {
	rt := &app{cfg: cfg, bus: events.NewBus(), registry: prometheus.NewRegistry()}
	rt.cleanups = append(rt.cleanups, rt.bus.Close)
	rt.closers = append(rt.closers, events.OpenJournal(rt.bus, filepath.Join(config.HomeDir(), events.DefaultJournalPath)))
	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client, err := buildModelClient(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	provider, err := buildMarket(cfg, afero.NewOsFs())
	if err != nil {
		rt.Close()
		return nil, err
	}
	if cached, ok := provider.(*market.CachedProvider); ok {
		rt.cleanups = append(rt.cleanups, cached.Close)
	}
	rt.market = provider

	store, index, err := buildIndex(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.store = store
	rt.index = index
	rt.closers = append(rt.closers, store)

	registry, err := handlers.NewRegistry(provider, index, cfg.TopK)
	if err != nil {
		rt.Close()
		return nil, err
	}
	loop, err := agent.NewLoop(agent.Options{
		Client:         client,
		Tools:          registry,
		Model:          cfg.Model,
		Instruction:    systemInstruction(cfg),
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		MaxIterations:  cfg.MaxIterations,
		RequestTimeout: cfg.RequestTimeout(),
		ToolTimeout:    cfg.ToolTimeout(),
		Retries:        cfg.Retries,
		Events:         rt.bus,
		Metrics:        agent.NewMetrics(rt.registry),
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.loop = loop
	return rt, nil
}

// systemInstruction 在默认指令后追加语言指令与 ANALYST.md 备注。
func systemInstruction(cfg config.Config) string {
	wd, _ := os.Getwd()
	notes := instructions.Discover(afero.NewOsFs(), config.HomeDir(), wd)
	return prompts.BuildSystem(agent.DefaultInstruction, i18n.Normalize(cfg.Language), notes)
}

// buildModelClient 按 provider 构造模型客户端；没有 token 时退回 echo 模式。
func buildModelClient(cfg config.Config) (agent.ModelClient, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		log.Warnf("no API token configured; falling back to echo mode")
		return agent.EchoClient{Prefix: "assistant: "}, nil
	}
	switch cfg.NormalizedProvider() {
	case config.ProviderAnthropic:
		client, err := anthropicmodel.New(anthropicmodel.Options{
			Token:     token,
			BaseURL:   cfg.URL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("init anthropic client: %w", err)
		}
		return client, nil
	default:
		client, err := openaimodel.New(openaimodel.Options{
			APIKey:  token,
			BaseURL: cfg.URL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		return client, nil
	}
}

// buildMarket 构造行情源，并在 quote_cache_seconds > 0 时加一层缓存。
func buildMarket(cfg config.Config, fsys afero.Fs) (market.Provider, error) {
	var provider market.Provider
	switch strings.ToLower(strings.TrimSpace(cfg.MarketSource)) {
	case "", config.MarketYahoo:
		provider = market.NewYahooProvider(market.YahooOptions{Retries: cfg.Retries})
	case config.MarketCSV:
		csv, err := market.NewCSVProvider(fsys, cfg.MarketCSV, nil)
		if err != nil {
			return nil, fmt.Errorf("load market csv: %w", err)
		}
		provider = csv
	default:
		return nil, fmt.Errorf("unknown market_source %q (use yahoo or csv)", cfg.MarketSource)
	}
	if ttl := cfg.QuoteCacheTTL(); ttl > 0 {
		cached, err := market.NewCachedProvider(provider, ttl)
		if err != nil {
			return nil, fmt.Errorf("init quote cache: %w", err)
		}
		return cached, nil
	}
	return provider, nil
}

// buildEmbedder 优先使用 OpenAI embeddings；拿不到 key 时使用本地 hash 向量。
func buildEmbedder(cfg config.Config) knowledge.Embedder {
	key := ""
	baseURL := ""
	if cfg.NormalizedProvider() == config.ProviderOpenAI {
		key = strings.TrimSpace(cfg.Token)
		baseURL = cfg.URL
	} else {
		key = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if key == "" {
		return knowledge.HashEmbedder{}
	}
	embedder, err := knowledge.NewOpenAIEmbedder(knowledge.OpenAIEmbedderOptions{
		APIKey:  key,
		BaseURL: baseURL,
		Model:   cfg.EmbeddingModel,
	})
	if err != nil {
		log.Warnf("init embedder: %v; using hash embeddings", err)
		return knowledge.HashEmbedder{}
	}
	return embedder
}

func buildIndex(cfg config.Config) (*knowledge.Store, *knowledge.Index, error) {
	path := cfg.IndexPath
	if path == "" {
		path = filepath.Join(config.HomeDir(), "index.db")
	}
	store, err := knowledge.OpenStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open knowledge index: %w", err)
	}
	index, err := knowledge.NewIndex(store, buildEmbedder(cfg), knowledge.IndexOptions{Collection: cfg.Collection})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, index, nil
}
