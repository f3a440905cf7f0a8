package market

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// ReturnPct 计算区间首尾收盘价的百分比收益并保留两位小数：
// round(((end-start)/start)*100, 2)。bars 为空或起点为 0 时返回 ErrNoData。
// 舍入作用在 float64 结果的精确二进制值上（最近偶数），与 Python round 一致，
// 因此 100 → 100.005 得到 0 而不是 0.01。
func ReturnPct(bars []Bar) (decimal.Decimal, error) {
	if len(bars) == 0 {
		return decimal.Decimal{}, ErrNoData
	}
	start := bars[0].Close
	end := bars[len(bars)-1].Close
	if start == 0 {
		return decimal.Decimal{}, ErrNoData
	}
	pct := ((end - start) / start) * 100
	return decimal.NewFromString(strconv.FormatFloat(pct, 'f', 2, 64))
}
