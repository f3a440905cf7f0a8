package market

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in    string
		want  string
		start time.Time
	}{
		{in: "", want: "3y", start: time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)},
		{in: "5d", want: "5d", start: time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)},
		{in: "2wk", want: "2wk", start: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)},
		{in: "6MO", want: "6mo", start: time.Date(2023, time.December, 15, 12, 0, 0, 0, time.UTC)},
		{in: " 1y ", want: "1y", start: time.Date(2023, time.June, 15, 12, 0, 0, 0, time.UTC)},
		{in: "ytd", want: "ytd", start: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{in: "max", want: "max"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			p, err := ParsePeriod(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, p.String())
			require.True(t, tc.start.Equal(p.Start(now)), "start = %s, want %s", p.Start(now), tc.start)
		})
	}
}

func TestParsePeriodRejectsMalformed(t *testing.T) {
	for _, in := range []string{"3", "y", "0d", "-1y", "1h", "3years", "1.5y", "ytd1"} {
		_, err := ParsePeriod(in)
		require.Error(t, err, in)
		require.True(t, errors.Is(err, ErrInvalidPeriod), in)
	}
}
