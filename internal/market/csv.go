package market

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const csvDateLayout = "2006-01-02"

var csvColumns = []string{"ticker", "date", "close", "volume", "market_cap"}

type csvRow struct {
	bar       Bar
	marketCap *float64
}

// CSVProvider 从离线 financial_data.csv 提供行情，列为 ticker,date,close,volume,market_cap。
// 文件在构造时一次性载入内存，之后只读。
type CSVProvider struct {
	rows map[string][]csvRow
	now  func() time.Time
}

var _ Provider = (*CSVProvider)(nil)

func NewCSVProvider(fs afero.Fs, path string, now func() time.Time) (*CSVProvider, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market csv: %w", err)
	}
	defer f.Close()

	p, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse market csv %s: %w", path, err)
	}
	p.now = now
	if p.now == nil {
		p.now = time.Now
	}
	log.Infof("loaded market csv %s tickers=%d", path, len(p.rows))
	return p, nil
}

func parseCSV(r io.Reader) (*CSVProvider, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range csvColumns[:3] {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	p := &CSVProvider{rows: make(map[string][]csvRow)}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, ticker, err := parseCSVRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p.rows[ticker] = append(p.rows[ticker], row)
	}
	for ticker := range p.rows {
		rows := p.rows[ticker]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].bar.Date.Before(rows[j].bar.Date) })
	}
	return p, nil
}

func parseCSVRecord(record []string, index map[string]int) (csvRow, string, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ticker := NormalizeTicker(field("ticker"))
	if ticker == "" {
		return csvRow{}, "", errors.New("empty ticker")
	}
	date, err := time.Parse(csvDateLayout, field("date"))
	if err != nil {
		return csvRow{}, "", fmt.Errorf("date: %w", err)
	}
	closeValue, err := strconv.ParseFloat(field("close"), 64)
	if err != nil {
		return csvRow{}, "", fmt.Errorf("close: %w", err)
	}
	row := csvRow{bar: Bar{Date: date, Close: closeValue}}
	if v := field("volume"); v != "" {
		vol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return csvRow{}, "", fmt.Errorf("volume: %w", err)
		}
		row.bar.Volume = int64(vol)
	}
	if v := field("market_cap"); v != "" {
		mc, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return csvRow{}, "", fmt.Errorf("market_cap: %w", err)
		}
		row.marketCap = &mc
	}
	return row, ticker, nil
}

func (p *CSVProvider) Quote(_ context.Context, ticker string) (Quote, error) {
	symbol := NormalizeTicker(ticker)
	rows := p.rows[symbol]
	if len(rows) == 0 {
		return Quote{}, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}
	last := rows[len(rows)-1]
	q := Quote{
		Ticker:    symbol,
		Price:     last.bar.Close,
		Volume:    last.bar.Volume,
		Timestamp: last.bar.Date,
	}
	if last.marketCap != nil {
		v := *last.marketCap
		q.MarketCap = &v
	}
	return q, nil
}

func (p *CSVProvider) History(_ context.Context, ticker string, period Period) ([]Bar, error) {
	symbol := NormalizeTicker(ticker)
	rows := p.rows[symbol]
	now := p.now()
	start := period.Start(now)

	var bars []Bar
	for _, row := range rows {
		if row.bar.Date.After(now) {
			break
		}
		if !period.IsMax() && row.bar.Date.Before(start) {
			continue
		}
		bars = append(bars, row.bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s over %s", ErrNoData, symbol, period)
	}
	return bars, nil
}

// Tickers 返回文件中出现的全部 ticker，已排序。
func (p *CSVProvider) Tickers() []string {
	out := make([]string, 0, len(p.rows))
	for ticker := range p.rows {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}
