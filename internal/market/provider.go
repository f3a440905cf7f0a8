package market

import (
	"context"
	"errors"
	"strings"
	"time"

	"finsight/internal/logger"
)

var log = logger.Named("market")

// ErrNoData 表示数据源对该 ticker/区间没有数据，调用方应当作正常的空结果处理。
var ErrNoData = errors.New("no market data")

// Quote 是最新行情快照。MarketCap 为 nil 表示数据源未提供。
type Quote struct {
	Ticker    string
	Name      string
	Price     float64
	Volume    int64
	MarketCap *float64
	Timestamp time.Time
}

// Bar 是单个交易日的收盘数据，按日期升序返回。
type Bar struct {
	Date   time.Time
	Close  float64
	Volume int64
}

// Provider 是行情数据源。除 ErrNoData 外的错误均视为传输失败。
type Provider interface {
	Quote(ctx context.Context, ticker string) (Quote, error)
	History(ctx context.Context, ticker string, period Period) ([]Bar, error)
}

// NormalizeTicker 统一 ticker 大小写与空白。
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
