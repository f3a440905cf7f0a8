package market

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func bars(closes ...float64) []Bar {
	out := make([]Bar, len(closes))
	for i, c := range closes {
		out[i] = Bar{Close: c}
	}
	return out
}

func TestReturnPct(t *testing.T) {
	cases := []struct {
		name string
		bars []Bar
		want string
	}{
		{name: "gain", bars: bars(100, 120, 150), want: "50"},
		{name: "loss", bars: bars(200, 150), want: "-25"},
		{name: "rounding", bars: bars(3, 4), want: "33.33"},
		{name: "rounding up", bars: bars(3, 5), want: "66.67"},
		{name: "single point", bars: bars(42), want: "0"},
		{name: "fractional prices", bars: bars(123.45, 130.1), want: "5.39"},
		{name: "binary value below half", bars: bars(100, 100.005), want: "0"},
		{name: "exact half rounds to even", bars: bars(800, 801), want: "0.12"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReturnPct(tc.bars)
			require.NoError(t, err)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestReturnPctEmpty(t *testing.T) {
	_, err := ReturnPct(nil)
	require.True(t, errors.Is(err, ErrNoData))

	_, err = ReturnPct(bars(0, 10))
	require.True(t, errors.Is(err, ErrNoData))
}
