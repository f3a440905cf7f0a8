package market

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	quotes  atomic.Int32
	history atomic.Int32
	noData  bool
}

func (p *countingProvider) Quote(_ context.Context, ticker string) (Quote, error) {
	p.quotes.Add(1)
	if p.noData {
		return Quote{}, ErrNoData
	}
	return Quote{Ticker: ticker, Price: 10}, nil
}

func (p *countingProvider) History(_ context.Context, ticker string, _ Period) ([]Bar, error) {
	p.history.Add(1)
	if p.noData {
		return nil, ErrNoData
	}
	return []Bar{{Close: 1}, {Close: 2}}, nil
}

func TestCachedProviderServesFromCache(t *testing.T) {
	inner := &countingProvider{}
	c, err := NewCachedProvider(inner, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		q, err := c.Quote(context.Background(), "nvda")
		require.NoError(t, err)
		require.Equal(t, "NVDA", q.Ticker)
	}
	require.Equal(t, int32(1), inner.quotes.Load())

	for i := 0; i < 2; i++ {
		_, err := c.History(context.Background(), "NVDA", MustParsePeriod("1y"))
		require.NoError(t, err)
	}
	_, err = c.History(context.Background(), "NVDA", MustParsePeriod("2y"))
	require.NoError(t, err)
	require.Equal(t, int32(2), inner.history.Load())
}

func TestCachedProviderDoesNotCacheNoData(t *testing.T) {
	inner := &countingProvider{noData: true}
	c, err := NewCachedProvider(inner, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 2; i++ {
		_, err := c.Quote(context.Background(), "ZZZZ")
		require.True(t, errors.Is(err, ErrNoData))
	}
	require.Equal(t, int32(2), inner.quotes.Load())
}

func TestNewCachedProviderRejectsZeroTTL(t *testing.T) {
	_, err := NewCachedProvider(&countingProvider{}, 0)
	require.Error(t, err)
}
