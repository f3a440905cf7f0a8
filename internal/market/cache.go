package market

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter"
)

const defaultCacheCapacity = 1024

// CachedProvider 用 TTL 缓存包装另一个 Provider。只缓存成功结果，ErrNoData 与传输错误都不缓存。
type CachedProvider struct {
	inner   Provider
	quotes  *otter.Cache[string, Quote]
	history *otter.Cache[string, []Bar]
}

var _ Provider = (*CachedProvider)(nil)

func NewCachedProvider(inner Provider, ttl time.Duration) (*CachedProvider, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	quotes, err := otter.MustBuilder[string, Quote](defaultCacheCapacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build quote cache: %w", err)
	}
	history, err := otter.MustBuilder[string, []Bar](defaultCacheCapacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build history cache: %w", err)
	}
	return &CachedProvider{inner: inner, quotes: &quotes, history: &history}, nil
}

func (c *CachedProvider) Quote(ctx context.Context, ticker string) (Quote, error) {
	key := NormalizeTicker(ticker)
	if q, ok := c.quotes.Get(key); ok {
		return q, nil
	}
	q, err := c.inner.Quote(ctx, key)
	if err != nil {
		return Quote{}, err
	}
	c.quotes.Set(key, q)
	return q, nil
}

func (c *CachedProvider) History(ctx context.Context, ticker string, period Period) ([]Bar, error) {
	key := NormalizeTicker(ticker) + "|" + period.String()
	if bars, ok := c.history.Get(key); ok {
		return append([]Bar(nil), bars...), nil
	}
	bars, err := c.inner.History(ctx, ticker, period)
	if err != nil {
		return nil, err
	}
	c.history.Set(key, append([]Bar(nil), bars...))
	return bars, nil
}

func (c *CachedProvider) Close() {
	c.quotes.Close()
	c.history.Close()
}
