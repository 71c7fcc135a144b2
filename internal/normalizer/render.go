package normalizer

import "fmt"

// Unavailable 不可用金额的展示文本
const Unavailable = "N/A"

// RenderAmount 金额展示，nil 表示不可用
func RenderAmount(m *Money) string {
	if m == nil {
		return Unavailable
	}
	amount := m.Amount.StringFixed(2)
	switch m.Currency {
	case "USD", "":
		return "$" + amount
	default:
		return fmt.Sprintf("%s %s", amount, m.Currency)
	}
}

// RenderWeight 重量展示
func RenderWeight(w *Weight) string {
	if w == nil {
		return Unavailable
	}
	if w.Unit == "" {
		return w.Value.String()
	}
	return fmt.Sprintf("%s %s", w.Value.String(), w.Unit)
}
