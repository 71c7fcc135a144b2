package normalizer

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ==================== 运费报价 ====================

// RatedPackage 单个包裹的报价
type RatedPackage struct {
	SequenceNo    int        `json:"sequence_no"`
	BillingWeight *Weight    `json:"billing_weight,omitempty"`
	BaseCharge    *Money     `json:"base_charge,omitempty"`
	TotalCharge   *Money     `json:"total_charge,omitempty"`
	Surcharges    []LineItem `json:"surcharges"`
}

// RateQuote 归一化后的运费报价
// Available=false 表示报文无法识别或缺少报价，页面按"报价不可用"处理
type RateQuote struct {
	Schema        Schema          `json:"schema"`
	Available     bool            `json:"available"`
	ServiceName   string          `json:"service_name,omitempty"`
	TotalCharge   decimal.Decimal `json:"total_charge"`
	Currency      string          `json:"currency"`
	BillingWeight *Weight         `json:"billing_weight,omitempty"`
	LineItems     []LineItem      `json:"line_items"`
	Packages      []RatedPackage  `json:"packages"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// Total 总价
func (q *RateQuote) Total() Money {
	return Money{Amount: q.TotalCharge, Currency: q.Currency}
}

// NormalizeRateQuote 归一化运费报价报文，永不失败
func NormalizeRateQuote(raw []byte) *RateQuote {
	switch DetectSchema(raw, upsRateRoot) {
	case SchemaFedEx:
		return fedexRate(raw)
	case SchemaUPS:
		return upsRate(raw)
	default:
		return &RateQuote{Schema: SchemaUnknown, Raw: rawCopy(raw)}
	}
}

// fedexRate 费用在 output.rateReplyDetails[].ratedShipmentDetails[0]
func fedexRate(raw []byte) *RateQuote {
	quote := &RateQuote{Schema: SchemaFedEx, Raw: rawCopy(raw)}

	detail := first(gjson.GetBytes(raw, "output.rateReplyDetails"))
	rated := first(detail.Get("ratedShipmentDetails"))
	if !rated.Exists() {
		return quote
	}

	rateDetail := rated.Get("shipmentRateDetail")
	quote.Currency = firstNonEmpty(rated.Get("currency").String(), rateDetail.Get("currency").String())
	quote.ServiceName = firstNonEmpty(detail.Get("serviceName").String(), detail.Get("serviceType").String())

	total, ok := parseDecimal(rated.Get("totalNetCharge"))
	if !ok {
		total, ok = parseDecimal(rated.Get("totalNetFedExCharge"))
	}
	if !ok {
		return quote
	}
	quote.TotalCharge = total
	quote.Available = true

	quote.BillingWeight = parseWeight(rateDetail.Get("totalBillingWeight.value"), rateDetail.Get("totalBillingWeight.units").String())

	if base := parseMoney(rated.Get("totalBaseCharge"), quote.Currency); base != nil {
		quote.LineItems = append(quote.LineItems, LineItem{Label: "Base charge", Amount: *base})
	}
	quote.LineItems = append(quote.LineItems, fedexSurcharges(rateDetail.Get("surCharges"), quote.Currency)...)
	if discount := parseMoney(rated.Get("totalDiscounts"), quote.Currency); discount != nil && !discount.Amount.IsZero() {
		quote.LineItems = append(quote.LineItems, LineItem{Label: "Discounts", Amount: Money{Amount: discount.Amount.Neg(), Currency: quote.Currency}})
	}

	for i, pkg := range asArray(rated.Get("ratedPackages")) {
		prd := pkg.Get("packageRateDetail")
		seq := int(pkg.Get("groupNumber").Int())
		if seq == 0 {
			seq = i + 1
		}
		quote.Packages = append(quote.Packages, RatedPackage{
			SequenceNo:    seq,
			BillingWeight: parseWeight(prd.Get("billingWeight.value"), prd.Get("billingWeight.units").String()),
			BaseCharge:    parseMoney(prd.Get("baseCharge"), quote.Currency),
			TotalCharge:   parseMoney(prd.Get("netCharge"), quote.Currency),
			Surcharges:    fedexSurcharges(prd.Get("surcharges"), quote.Currency),
		})
	}
	return quote
}

// upsRate 费用在 RateResponse.RatedShipment，RatedPackage 可能是对象也可能是数组
func upsRate(raw []byte) *RateQuote {
	quote := &RateQuote{Schema: SchemaUPS, Raw: rawCopy(raw)}

	rated := first(gjson.GetBytes(raw, upsRateRoot+".RatedShipment"))
	if !rated.Exists() {
		return quote
	}

	quote.Currency = rated.Get("TotalCharges.CurrencyCode").String()
	quote.ServiceName = firstNonEmpty(rated.Get("Service.Description").String(), rated.Get("Service.Code").String())

	total, ok := parseDecimal(rated.Get("TotalCharges.MonetaryValue"))
	if !ok {
		return quote
	}
	quote.TotalCharge = total
	quote.Available = true

	quote.BillingWeight = parseWeight(rated.Get("BillingWeight.Weight"), rated.Get("BillingWeight.UnitOfMeasurement.Code").String())

	if t := upsCharge(rated.Get("TransportationCharges"), quote.Currency); t != nil {
		quote.LineItems = append(quote.LineItems, LineItem{Label: "Transportation", Amount: *t})
	}
	if s := upsCharge(rated.Get("ServiceOptionsCharges"), quote.Currency); s != nil && !s.Amount.IsZero() {
		quote.LineItems = append(quote.LineItems, LineItem{Label: "Service options", Amount: *s})
	}
	quote.LineItems = append(quote.LineItems, upsItemized(rated.Get("ItemizedCharges"), quote.Currency)...)
	if n := upsCharge(rated.Get("NegotiatedRateCharges.TotalCharge"), quote.Currency); n != nil {
		quote.LineItems = append(quote.LineItems, LineItem{Label: "Negotiated total", Amount: *n})
	}

	for i, pkg := range asArray(rated.Get("RatedPackage")) {
		surcharges := upsItemized(pkg.Get("ItemizedCharges"), quote.Currency)
		if s := upsCharge(pkg.Get("ServiceOptionsCharges"), quote.Currency); s != nil && !s.Amount.IsZero() {
			surcharges = append(surcharges, LineItem{Label: "Service options", Amount: *s})
		}
		quote.Packages = append(quote.Packages, RatedPackage{
			SequenceNo:    i + 1,
			BillingWeight: parseWeight(pkg.Get("BillingWeight.Weight"), pkg.Get("BillingWeight.UnitOfMeasurement.Code").String()),
			BaseCharge:    upsCharge(pkg.Get("TransportationCharges"), quote.Currency),
			TotalCharge:   upsCharge(pkg.Get("TotalCharges"), quote.Currency),
			Surcharges:    surcharges,
		})
	}
	return quote
}

// fedexSurcharges [{type, description, amount}]
func fedexSurcharges(r gjson.Result, currency string) []LineItem {
	var items []LineItem
	for _, s := range asArray(r) {
		amount := parseMoney(s.Get("amount"), currency)
		if amount == nil {
			continue
		}
		label := firstNonEmpty(s.Get("description").String(), s.Get("type").String(), s.Get("surchargeType").String())
		items = append(items, LineItem{Label: label, Amount: *amount})
	}
	return items
}

// upsCharge {CurrencyCode, MonetaryValue}
func upsCharge(r gjson.Result, fallbackCurrency string) *Money {
	if !r.Exists() {
		return nil
	}
	return parseMoney(r.Get("MonetaryValue"), firstNonEmpty(r.Get("CurrencyCode").String(), fallbackCurrency))
}

// upsItemized ItemizedCharges 同样可能是对象或数组
func upsItemized(r gjson.Result, currency string) []LineItem {
	var items []LineItem
	for _, c := range asArray(r) {
		amount := upsCharge(c, currency)
		if amount == nil {
			continue
		}
		label := firstNonEmpty(c.Get("Description").String(), c.Get("Code").String())
		if sub := c.Get("SubType").String(); sub != "" {
			label += " (" + sub + ")"
		}
		items = append(items, LineItem{Label: label, Amount: *amount})
	}
	return items
}
