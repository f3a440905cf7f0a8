package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finsight/internal/market"
	"finsight/internal/tools"
)

const (
	StockPriceTool   = "get_stock_price"
	StockHistoryTool = "get_stock_history"
)

type stockPriceArgs struct {
	Ticker string `json:"ticker" jsonschema:"description=Stock ticker symbol such as AAPL or NVDA"`
}

type stockHistoryArgs struct {
	Ticker string `json:"ticker" jsonschema:"description=Stock ticker symbol such as AAPL or NVDA"`
	Period string `json:"period,omitempty" jsonschema:"description=Look-back window: Nd / Nwk / Nmo / Ny / ytd / max,default=3y"`
}

type pricePayload struct {
	Ticker    string   `json:"ticker"`
	Name      string   `json:"name,omitempty"`
	Price     float64  `json:"price"`
	Volume    int64    `json:"volume"`
	MarketCap *float64 `json:"market_cap"`
	Timestamp string   `json:"timestamp"`
}

type historyPayload struct {
	Ticker     string      `json:"ticker"`
	Period     string      `json:"period"`
	StartDate  string      `json:"start_date"`
	EndDate    string      `json:"end_date"`
	StartClose float64     `json:"start_close"`
	EndClose   float64     `json:"end_close"`
	ReturnPct  json.Number `json:"return_pct"`
}

// softPayload 是"没有数据"类的正常结果，模型可据此换用其他工具或如实说明。
type softPayload struct {
	Ticker  string `json:"ticker"`
	Period  string `json:"period,omitempty"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// StockPrice 返回 get_stock_price 工具：最新价格、成交量与市值。
func StockPrice(provider market.Provider) tools.Definition {
	return tools.NewTool(StockPriceTool,
		"Fetch real-time price, volume, and market cap for a given stock ticker.",
		func(ctx context.Context, in stockPriceArgs) (tools.Output, error) {
			ticker := market.NormalizeTicker(in.Ticker)
			if ticker == "" {
				return tools.Output{}, tools.InvalidArgument("ticker", "must not be empty")
			}
			quote, err := provider.Quote(ctx, ticker)
			if errors.Is(err, market.ErrNoData) {
				return jsonOutput(softPayload{
					Ticker:  ticker,
					Status:  "unavailable",
					Message: fmt.Sprintf("No market data available for %s.", ticker),
				})
			}
			if err != nil {
				return tools.Output{}, fmt.Errorf("quote %s: %w", ticker, err)
			}
			return jsonOutput(pricePayload{
				Ticker:    quote.Ticker,
				Name:      quote.Name,
				Price:     quote.Price,
				Volume:    quote.Volume,
				MarketCap: quote.MarketCap,
				Timestamp: quote.Timestamp.UTC().Format(time.RFC3339),
			})
		})
}

// StockHistory 返回 get_stock_history 工具：区间首尾收盘价及百分比收益。
func StockHistory(provider market.Provider) tools.Definition {
	return tools.NewTool(StockHistoryTool,
		"Fetch historical returns and performance trends over a specific period (default 3 years).",
		func(ctx context.Context, in stockHistoryArgs) (tools.Output, error) {
			ticker := market.NormalizeTicker(in.Ticker)
			if ticker == "" {
				return tools.Output{}, tools.InvalidArgument("ticker", "must not be empty")
			}
			period, err := market.ParsePeriod(in.Period)
			if err != nil {
				return tools.Output{}, tools.InvalidArgument("period", "%v", err)
			}
			noData := softPayload{Ticker: ticker, Period: period.String(), Status: "no_data", Error: "No data"}

			bars, err := provider.History(ctx, ticker, period)
			if errors.Is(err, market.ErrNoData) {
				return jsonOutput(noData)
			}
			if err != nil {
				return tools.Output{}, fmt.Errorf("history %s: %w", ticker, err)
			}
			pct, err := market.ReturnPct(bars)
			if errors.Is(err, market.ErrNoData) {
				return jsonOutput(noData)
			}
			if err != nil {
				return tools.Output{}, err
			}
			first, last := bars[0], bars[len(bars)-1]
			return jsonOutput(historyPayload{
				Ticker:     ticker,
				Period:     period.String(),
				StartDate:  first.Date.Format(time.DateOnly),
				EndDate:    last.Date.Format(time.DateOnly),
				StartClose: first.Close,
				EndClose:   last.Close,
				ReturnPct:  json.Number(pct.StringFixed(2)),
			})
		})
}

func jsonOutput(v any) (tools.Output, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return tools.Output{}, err
	}
	return tools.Output{Content: string(data)}, nil
}
