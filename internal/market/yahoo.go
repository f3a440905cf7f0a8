package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	yahooUserAgent      = "Mozilla/5.0 (compatible; finsight/1.0)"
)

type YahooOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Retries    int
	Now        func() time.Time
}

// YahooProvider 通过 Yahoo Finance chart API 获取行情与日线，市值取自 quote API。
type YahooProvider struct {
	baseURL string
	client  *http.Client
	retries int
	now     func() time.Time
}

var _ Provider = (*YahooProvider)(nil)

func NewYahooProvider(opts YahooOptions) *YahooProvider {
	p := &YahooProvider{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		client:  opts.HTTPClient,
		retries: opts.Retries,
		now:     opts.Now,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultYahooBaseURL
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 15 * time.Second}
	}
	if p.retries < 0 {
		p.retries = 0
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func (p *YahooProvider) Quote(ctx context.Context, ticker string) (Quote, error) {
	symbol := NormalizeTicker(ticker)
	q := url.Values{}
	q.Set("range", "1d")
	q.Set("interval", "1d")
	body, err := p.fetchChart(ctx, symbol, q)
	if err != nil {
		return Quote{}, err
	}

	meta := gjson.GetBytes(body, "chart.result.0.meta")
	price := meta.Get("regularMarketPrice")
	if !price.Exists() || price.Type == gjson.Null {
		return Quote{}, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}
	quote := Quote{
		Ticker: symbol,
		Name:   firstString(meta.Get("longName"), meta.Get("shortName")),
		Price:  price.Float(),
		Volume: meta.Get("regularMarketVolume").Int(),
	}
	quote.MarketCap = p.marketCap(ctx, symbol)
	if ts := meta.Get("regularMarketTime").Int(); ts > 0 {
		quote.Timestamp = time.Unix(ts, 0).UTC()
	} else {
		quote.Timestamp = p.now().UTC()
	}
	return quote, nil
}

func (p *YahooProvider) History(ctx context.Context, ticker string, period Period) ([]Bar, error) {
	symbol := NormalizeTicker(ticker)
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("events", "history")
	if period.IsMax() {
		q.Set("range", "max")
	} else {
		now := p.now()
		q.Set("period1", strconv.FormatInt(period.Start(now).Unix(), 10))
		q.Set("period2", strconv.FormatInt(now.Unix(), 10))
	}
	body, err := p.fetchChart(ctx, symbol, q)
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "chart.result.0")
	timestamps := result.Get("timestamp").Array()
	closes := result.Get("indicators.quote.0.close").Array()
	volumes := result.Get("indicators.quote.0.volume").Array()

	bars := make([]Bar, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i].Type != gjson.Number {
			continue
		}
		bar := Bar{Date: time.Unix(ts.Int(), 0).UTC(), Close: closes[i].Float()}
		if i < len(volumes) {
			bar.Volume = volumes[i].Int()
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s over %s", ErrNoData, symbol, period)
	}
	return bars, nil
}

// marketCap 从 v7 quote 接口读取市值；chart 接口的 meta 不带这个字段。
// 查询失败或字段缺失时返回 nil，报价本身不受影响。
func (p *YahooProvider) marketCap(ctx context.Context, symbol string) *float64 {
	q := url.Values{}
	q.Set("symbols", symbol)
	q.Set("fields", "marketCap")
	endpoint := fmt.Sprintf("%s/v7/finance/quote?%s", p.baseURL, q.Encode())
	body, err := p.fetch(ctx, "quote", symbol, endpoint, "finance.error")
	if err != nil {
		log.Warnf("yahoo quote %s: market cap unavailable: %v", symbol, err)
		return nil
	}
	mc := gjson.GetBytes(body, "quoteResponse.result.0.marketCap")
	if mc.Type != gjson.Number {
		return nil
	}
	v := mc.Float()
	return &v
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol string, query url.Values) ([]byte, error) {
	if symbol == "" {
		return nil, errors.New("empty ticker")
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(symbol), query.Encode())
	return p.fetch(ctx, "chart", symbol, endpoint, "chart.error")
}

// fetch 发起 GET；5xx/429/网络错误按指数退避重试，404 或 errPath 处的 "Not Found" 映射为 ErrNoData。
func (p *YahooProvider) fetch(ctx context.Context, api, symbol, endpoint, errPath string) ([]byte, error) {
	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", yahooUserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(fmt.Errorf("%w for %s", ErrNoData, symbol))
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, fmt.Errorf("http_%d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, backoff.Permanent(fmt.Errorf("http_%d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}

		if code := gjson.GetBytes(body, errPath+".code"); code.Exists() && code.Type != gjson.Null {
			if strings.EqualFold(code.String(), "Not Found") {
				return nil, backoff.Permanent(fmt.Errorf("%w for %s", ErrNoData, symbol))
			}
			return nil, backoff.Permanent(fmt.Errorf("%s error %s: %s", api, code.String(), gjson.GetBytes(body, errPath+".description").String()))
		}
		return body, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(p.retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warnf("yahoo %s %s attempt=%d failed, retrying in %s: %v", api, symbol, attempt, next, err)
		}),
	)
	if err != nil {
		if !errors.Is(err, ErrNoData) {
			log.Warnf("yahoo %s %s failed after %d attempt(s): %v", api, symbol, attempt, err)
		}
		return nil, err
	}
	return body, nil
}

func firstString(values ...gjson.Result) string {
	for _, v := range values {
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}
