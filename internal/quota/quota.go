// Package quota 配额与金额的换算展示。
package quota

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// PerUnit 每一美元对应的配额数
const PerUnit int64 = 500000

// ToAmount 配额换算为美元金额
// 用 decimal 避免大配额换算时的浮点误差
func ToAmount(quota int64) decimal.Decimal {
	return decimal.NewFromInt(quota).Div(decimal.NewFromInt(PerUnit))
}

// FromAmount 美元金额换算为配额（向下取整）
func FromAmount(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(PerUnit)).IntPart()
}

// Render 配额的展示形式
// inCurrency 为 true 时显示为保留 6 位小数再去尾零的美元金额
func Render(quota int64, inCurrency bool) string {
	if !inCurrency {
		return strconv.FormatInt(quota, 10)
	}
	return "$" + ToAmount(quota).Round(6).String()
}
