package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const chartQuoteBody = `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"NVDA","exchangeName":"NMS","instrumentType":"EQUITY","longName":"NVIDIA Corporation","shortName":"NVIDIA Corporation","regularMarketPrice":120.5,"regularMarketVolume":250000000,"regularMarketTime":1718400000,"chartPreviousClose":118.2,"dataGranularity":"1d","range":"1d"},"timestamp":[1718400000],"indicators":{"quote":[{"close":[120.5],"volume":[250000000]}]}}],"error":null}}`

const quoteBody = `{"quoteResponse":{"result":[{"language":"en-US","region":"US","quoteType":"EQUITY","symbol":"NVDA","marketCap":2960000000000}],"error":null}}`

// yahooRoutes 按路径返回 chart 与 quote 两个接口的响应。
func yahooRoutes(t *testing.T, quote http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v8/finance/chart/NVDA":
			require.NotEmpty(t, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(chartQuoteBody))
		case "/v7/finance/quote":
			require.Equal(t, "NVDA", r.URL.Query().Get("symbols"))
			quote(w, r)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

const chartHistoryBody = `{"chart":{"result":[{"meta":{"symbol":"MSFT"},"timestamp":[1600000000,1600086400,1600172800,1600259200],"indicators":{"quote":[{"close":[200.0,null,210.0,250.0],"volume":[10,20,30,40]}]}}],"error":null}}`

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *YahooProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahooProvider(YahooOptions{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Retries:    2,
		Now:        func() time.Time { return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC) },
	})
}

func TestYahooQuote(t *testing.T) {
	p := newTestYahoo(t, yahooRoutes(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(quoteBody))
	}))

	q, err := p.Quote(context.Background(), " nvda ")
	require.NoError(t, err)
	require.Equal(t, "NVDA", q.Ticker)
	require.Equal(t, "NVIDIA Corporation", q.Name)
	require.Equal(t, 120.5, q.Price)
	require.Equal(t, int64(250000000), q.Volume)
	require.NotNil(t, q.MarketCap)
	require.Equal(t, 2.96e12, *q.MarketCap)
	require.Equal(t, int64(1718400000), q.Timestamp.Unix())
}

func TestYahooQuoteWithoutMarketCap(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"unauthorized": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"finance":{"result":null,"error":{"code":"Unauthorized","description":"Invalid Crumb"}}}`))
		},
		"field missing": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"NVDA","quoteType":"EQUITY"}],"error":null}}`))
		},
		"empty result": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestYahoo(t, yahooRoutes(t, handler))
			q, err := p.Quote(context.Background(), "NVDA")
			require.NoError(t, err)
			require.Equal(t, 120.5, q.Price)
			require.Nil(t, q.MarketCap)
		})
	}
}

func TestYahooHistorySkipsNullCloses(t *testing.T) {
	var gotQuery string
	p := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(chartHistoryBody))
	})

	got, err := p.History(context.Background(), "MSFT", MustParsePeriod("1y"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, 200.0, got[0].Close)
	require.Equal(t, 250.0, got[2].Close)
	require.Contains(t, gotQuery, "period1=")
	require.Contains(t, gotQuery, "period2=")

	pct, err := ReturnPct(got)
	require.NoError(t, err)
	require.Equal(t, "25", pct.String())
}

func TestYahooMaxUsesRange(t *testing.T) {
	var gotQuery string
	p := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(chartHistoryBody))
	})
	_, err := p.History(context.Background(), "MSFT", MustParsePeriod("max"))
	require.NoError(t, err)
	require.Contains(t, gotQuery, "range=max")
}

func TestYahooNoData(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"404": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		},
		"empty series": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"ZZZZ"},"indicators":{"quote":[{}]}}],"error":null}}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestYahoo(t, handler)
			_, err := p.History(context.Background(), "ZZZZ", MustParsePeriod("3y"))
			require.True(t, errors.Is(err, ErrNoData), "err = %v", err)
		})
	}
}

func TestYahooRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v7/finance/quote" {
			_, _ = w.Write([]byte(quoteBody))
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream"))
			return
		}
		_, _ = w.Write([]byte(chartQuoteBody))
	})

	q, err := p.Quote(context.Background(), "NVDA")
	require.NoError(t, err)
	require.Equal(t, 120.5, q.Price)
	require.NotNil(t, q.MarketCap)
	require.Equal(t, int32(3), calls.Load())
}

func TestYahooDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("denied"))
	})

	_, err := p.Quote(context.Background(), "NVDA")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNoData))
	require.True(t, strings.HasPrefix(err.Error(), "http_401"), err.Error())
	require.Equal(t, int32(1), calls.Load())
}
