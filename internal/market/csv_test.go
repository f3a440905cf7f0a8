package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const financialCSV = `ticker,date,close,volume,market_cap
NVDA,2021-06-14,180.00,1000,450000000000
NVDA,2023-06-14,430.00,2000,1060000000000
NVDA,2024-06-14,131.88,3000,3240000000000
msft,2024-06-14,442.57,1500,3290000000000
msft,2023-06-15,348.10,1400,
`

func newTestCSV(t *testing.T) *CSVProvider {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/financial_data.csv", []byte(financialCSV), 0o644))
	now := func() time.Time { return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC) }
	p, err := NewCSVProvider(fs, "/data/financial_data.csv", now)
	require.NoError(t, err)
	return p
}

func TestCSVQuoteUsesLatestRow(t *testing.T) {
	p := newTestCSV(t)

	q, err := p.Quote(context.Background(), "nvda")
	require.NoError(t, err)
	require.Equal(t, "NVDA", q.Ticker)
	require.Equal(t, 131.88, q.Price)
	require.Equal(t, int64(3000), q.Volume)
	require.NotNil(t, q.MarketCap)

	q, err = p.Quote(context.Background(), "MSFT")
	require.NoError(t, err)
	require.Equal(t, 442.57, q.Price)

	_, err = p.Quote(context.Background(), "AAPL")
	require.True(t, errors.Is(err, ErrNoData))
	require.Equal(t, []string{"MSFT", "NVDA"}, p.Tickers())
}

func TestCSVHistoryFiltersByPeriod(t *testing.T) {
	p := newTestCSV(t)

	got, err := p.History(context.Background(), "NVDA", MustParsePeriod("3y"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	pct, err := ReturnPct(got)
	require.NoError(t, err)
	require.Equal(t, "-69.33", pct.String())

	got, err = p.History(context.Background(), "NVDA", MustParsePeriod("max"))
	require.NoError(t, err)
	require.Len(t, got, 3)

	_, err = p.History(context.Background(), "NVDA", MustParsePeriod("5d"))
	require.NoError(t, err)

	_, err = p.History(context.Background(), "AAPL", MustParsePeriod("3y"))
	require.True(t, errors.Is(err, ErrNoData))
}

func TestCSVRejectsMissingColumns(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.csv", []byte("ticker,close\nNVDA,1\n"), 0o644))
	_, err := NewCSVProvider(fs, "bad.csv", nil)
	require.ErrorContains(t, err, "date")
}
