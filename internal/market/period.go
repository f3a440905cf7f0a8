package market

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultPeriod 是历史收益的默认回看区间。
const DefaultPeriod = "3y"

var ErrInvalidPeriod = errors.New("invalid period")

var periodPattern = regexp.MustCompile(`^([1-9][0-9]*)(d|wk|mo|y)$`)

// Period 是 yfinance 风格的回看区间：Nd、Nwk、Nmo、Ny、ytd、max。
type Period struct {
	raw  string
	n    int
	unit string
}

func ParsePeriod(raw string) (Period, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		s = DefaultPeriod
	}
	switch s {
	case "ytd", "max":
		return Period{raw: s, unit: s}, nil
	}
	m := periodPattern.FindStringSubmatch(s)
	if m == nil {
		return Period{}, fmt.Errorf("%w %q: expected Nd, Nwk, Nmo, Ny, ytd or max", ErrInvalidPeriod, raw)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > 100000 {
		return Period{}, fmt.Errorf("%w %q: count out of range", ErrInvalidPeriod, raw)
	}
	return Period{raw: s, n: n, unit: m[2]}, nil
}

func MustParsePeriod(raw string) Period {
	p, err := ParsePeriod(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Period) String() string { return p.raw }

// IsMax 表示不设起点。
func (p Period) IsMax() bool { return p.unit == "max" }

// Start 返回区间起点（含）。max 返回零值时间。
func (p Period) Start(now time.Time) time.Time {
	switch p.unit {
	case "d":
		return now.AddDate(0, 0, -p.n)
	case "wk":
		return now.AddDate(0, 0, -7*p.n)
	case "mo":
		return now.AddDate(0, -p.n, 0)
	case "y":
		return now.AddDate(-p.n, 0, 0)
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}
