package normalizer

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ==================== 承运商响应结构识别 ====================

// Schema 承运商响应结构标签
// 只在归一化入口判定一次，下游只看标签，不再检查原始报文
type Schema string

const (
	SchemaFedEx   Schema = "FEDEX"
	SchemaUPS     Schema = "UPS"
	SchemaUnknown Schema = "UNKNOWN"
)

// UPS 各业务的顶层对象
const (
	upsAddressRoot  = "XAVResponse"
	upsRateRoot     = "RateResponse"
	upsShipmentRoot = "ShipmentResponse"
	upsVoidRoot     = "VoidShipmentResponse"
)

// ErrUnrecognizedSchema 报文既不是 FedEx 也不是 UPS 结构
var ErrUnrecognizedSchema = errors.New("无法识别的承运商响应结构")

// DetectSchema 根据报文判别承运商结构
// FedEx 响应携带 output 对象；UPS 响应携带各业务的顶层对象（如 XAVResponse）
func DetectSchema(raw []byte, upsRoot string) Schema {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return SchemaUnknown
	}
	if gjson.GetBytes(raw, "output").IsObject() {
		return SchemaFedEx
	}
	if upsRoot != "" && gjson.GetBytes(raw, upsRoot).IsObject() {
		return SchemaUPS
	}
	return SchemaUnknown
}

// ==================== 通用值类型 ====================

// Money 金额
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

// Weight 计费重量
type Weight struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit,omitempty"`
}

// LineItem 费用明细
type LineItem struct {
	Label  string `json:"label"`
	Amount Money  `json:"amount"`
}

// ==================== 报文读取辅助 ====================

// asArray UPS 单条记录返回裸对象、多条返回数组，统一成数组
func asArray(r gjson.Result) []gjson.Result {
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return nil
	case r.IsArray():
		return r.Array()
	default:
		return []gjson.Result{r}
	}
}

// first 取数组或对象的第一项
func first(r gjson.Result) gjson.Result {
	items := asArray(r)
	if len(items) == 0 {
		return gjson.Result{}
	}
	return items[0]
}

// parseDecimal 同时兼容数字 (FedEx) 和字符串 (UPS) 形式的金额
func parseDecimal(r gjson.Result) (decimal.Decimal, bool) {
	var text string
	switch r.Type {
	case gjson.Number:
		text = r.Raw
	case gjson.String:
		text = strings.TrimSpace(r.Str)
	default:
		return decimal.Zero, false
	}
	if text == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseMoney 解析金额，currency 为空时不带币种
func parseMoney(amount gjson.Result, currency string) *Money {
	d, ok := parseDecimal(amount)
	if !ok {
		return nil
	}
	return &Money{Amount: d, Currency: currency}
}

// parseWeight 解析计费重量
func parseWeight(value gjson.Result, unit string) *Weight {
	d, ok := parseDecimal(value)
	if !ok {
		return nil
	}
	return &Weight{Value: d, Unit: unit}
}

// stringList 字符串或字符串数组
func stringList(r gjson.Result) []string {
	var out []string
	for _, item := range asArray(r) {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// firstNonEmpty 返回第一个非空字符串
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// rawCopy 保留原始报文，非法 JSON 不保留（否则视图序列化会失败）
func rawCopy(raw []byte) json.RawMessage {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}

// sumLineItems 汇总费用明细
func sumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount.Amount)
	}
	return total
}
