package normalizer

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ==================== 运单确认 ====================

// LabelDocument 面单文件（Base64）
type LabelDocument struct {
	TrackingNumber string `json:"tracking_number"`
	Format         string `json:"format"` // PDF, ZPLII, GIF, PNG
	Content        string `json:"-"`
}

// ShipmentPackage 单个包裹的运单信息
// BaseRate 为 nil 表示不可用（FedEx baseRateAmount=0.00 是上游缺陷，不代表零运费）
type ShipmentPackage struct {
	SequenceNo     int             `json:"sequence_no"`
	TrackingNumber string          `json:"tracking_number"`
	DeliveryDate   string          `json:"delivery_date,omitempty"`
	BaseRate       *Money          `json:"base_rate,omitempty"`
	NetCharge      *Money          `json:"net_charge,omitempty"`
	Surcharges     []LineItem      `json:"surcharges"`
	Labels         []LabelDocument `json:"labels,omitempty"`
}

// SurchargeTotal 附加费合计
func (p ShipmentPackage) SurchargeTotal() decimal.Decimal {
	return sumLineItems(p.Surcharges)
}

// ShipmentConfirmation 归一化后的运单确认
type ShipmentConfirmation struct {
	Schema               Schema            `json:"schema"`
	Available            bool              `json:"available"`
	TrackingNumbers      []string          `json:"tracking_numbers"`
	MasterTrackingNumber string            `json:"master_tracking_number,omitempty"`
	ServiceName          string            `json:"service_name"`
	ShipDate             string            `json:"ship_date"`
	Currency             string            `json:"currency,omitempty"`
	TotalCharge          *Money            `json:"total_charge,omitempty"`
	Packages             []ShipmentPackage `json:"packages"`
	Raw                  json.RawMessage   `json:"raw,omitempty"`
}

// SurchargeTotal 所有包裹附加费合计
func (c *ShipmentConfirmation) SurchargeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.Packages {
		total = total.Add(p.SurchargeTotal())
	}
	return total
}

// Labels 汇总所有包裹面单
func (c *ShipmentConfirmation) Labels() []LabelDocument {
	var out []LabelDocument
	for _, p := range c.Packages {
		out = append(out, p.Labels...)
	}
	return out
}

// NormalizeShipmentConfirmation 归一化运单创建报文，永不失败
func NormalizeShipmentConfirmation(raw []byte) *ShipmentConfirmation {
	switch DetectSchema(raw, upsShipmentRoot) {
	case SchemaFedEx:
		return fedexShipment(raw)
	case SchemaUPS:
		return upsShipment(raw)
	default:
		return &ShipmentConfirmation{Schema: SchemaUnknown, Raw: rawCopy(raw)}
	}
}

// fedexShipment output.transactionShipments[0]
// pieceResponses（跟踪号/送达）与 completedPackageDetails（附加费）按位置对应，需要合并
func fedexShipment(raw []byte) *ShipmentConfirmation {
	conf := &ShipmentConfirmation{Schema: SchemaFedEx, Raw: rawCopy(raw)}

	ts := first(gjson.GetBytes(raw, "output.transactionShipments"))
	if !ts.Exists() {
		return conf
	}

	detail := ts.Get("completedShipmentDetail")
	rating := first(detail.Get("shipmentRating.shipmentRateDetails"))
	currency := rating.Get("currency").String()

	conf.Available = true
	conf.MasterTrackingNumber = firstNonEmpty(ts.Get("masterTrackingNumber").String(), detail.Get("masterTrackingId.trackingNumber").String())
	conf.ServiceName = firstNonEmpty(ts.Get("serviceName").String(), ts.Get("serviceType").String())
	conf.ShipDate = ts.Get("shipDatestamp").String()
	conf.Currency = currency
	conf.TotalCharge = parseMoney(rating.Get("totalNetCharge"), currency)

	conf.Packages = combinedPackages(asArray(ts.Get("pieceResponses")), asArray(detail.Get("completedPackageDetails")), currency)

	seen := make(map[string]bool)
	for _, p := range conf.Packages {
		if p.TrackingNumber != "" && !seen[p.TrackingNumber] {
			seen[p.TrackingNumber] = true
			conf.TrackingNumbers = append(conf.TrackingNumbers, p.TrackingNumber)
		}
	}
	if len(conf.TrackingNumbers) == 0 && conf.MasterTrackingNumber != "" {
		conf.TrackingNumbers = []string{conf.MasterTrackingNumber}
	}
	return conf
}

// combinedPackages 按位置合并 pieceResponses 与 completedPackageDetails
func combinedPackages(pieces, details []gjson.Result, currency string) []ShipmentPackage {
	n := len(pieces)
	if len(details) > n {
		n = len(details)
	}

	packages := make([]ShipmentPackage, 0, n)
	for i := 0; i < n; i++ {
		var piece, detail gjson.Result
		if i < len(pieces) {
			piece = pieces[i]
		}
		if i < len(details) {
			detail = details[i]
		}

		cur := firstNonEmpty(piece.Get("currency").String(), currency)
		seq := int(piece.Get("packageSequenceNumber").Int())
		if seq == 0 {
			seq = int(detail.Get("sequenceNumber").Int())
		}
		if seq == 0 {
			seq = i + 1
		}

		pkg := ShipmentPackage{
			SequenceNo:     seq,
			TrackingNumber: firstNonEmpty(piece.Get("trackingNumber").String(), first(detail.Get("trackingIds")).Get("trackingNumber").String()),
			DeliveryDate:   piece.Get("deliveryDatestamp").String(),
			BaseRate:       parseMoney(piece.Get("baseRateAmount"), cur),
			NetCharge:      parseMoney(piece.Get("netChargeAmount"), cur),
			Surcharges:     fedexSurcharges(first(detail.Get("packageRating.packageRateDetails")).Get("surcharges"), cur),
		}
		if pkg.BaseRate != nil && pkg.BaseRate.Amount.IsZero() {
			pkg.BaseRate = nil
		}
		for _, doc := range asArray(piece.Get("packageDocuments")) {
			content := doc.Get("encodedLabel").String()
			if content == "" {
				continue
			}
			pkg.Labels = append(pkg.Labels, LabelDocument{
				TrackingNumber: pkg.TrackingNumber,
				Format:         firstNonEmpty(doc.Get("docType").String(), doc.Get("contentType").String()),
				Content:        content,
			})
		}
		packages = append(packages, pkg)
	}
	return packages
}

// upsShipment ShipmentResponse.ShipmentResults，PackageResults 可能是对象或数组
func upsShipment(raw []byte) *ShipmentConfirmation {
	conf := &ShipmentConfirmation{Schema: SchemaUPS, Raw: rawCopy(raw)}

	results := gjson.GetBytes(raw, upsShipmentRoot+".ShipmentResults")
	if !results.Exists() {
		return conf
	}

	conf.Available = true
	conf.MasterTrackingNumber = results.Get("ShipmentIdentificationNumber").String()

	charges := results.Get("ShipmentCharges")
	currency := charges.Get("TotalCharges.CurrencyCode").String()
	conf.Currency = currency
	conf.TotalCharge = upsCharge(charges.Get("TotalCharges"), currency)
	if negotiated := upsCharge(results.Get("NegotiatedRateCharges.TotalCharge"), currency); negotiated != nil {
		conf.TotalCharge = negotiated
	}

	for i, pkg := range asArray(results.Get("PackageResults")) {
		surcharges := upsItemized(pkg.Get("ItemizedCharges"), currency)
		if s := upsCharge(pkg.Get("ServiceOptionsCharges"), currency); s != nil && !s.Amount.IsZero() {
			surcharges = append(surcharges, LineItem{Label: "Service options", Amount: *s})
		}
		p := ShipmentPackage{
			SequenceNo:     i + 1,
			TrackingNumber: pkg.Get("TrackingNumber").String(),
			BaseRate:       upsCharge(pkg.Get("BaseServiceCharge"), currency),
			Surcharges:     surcharges,
		}
		if image := pkg.Get("ShippingLabel.GraphicImage").String(); image != "" {
			p.Labels = append(p.Labels, LabelDocument{
				TrackingNumber: p.TrackingNumber,
				Format:         pkg.Get("ShippingLabel.ImageFormat.Code").String(),
				Content:        image,
			})
		}
		conf.Packages = append(conf.Packages, p)
		if p.TrackingNumber != "" {
			conf.TrackingNumbers = append(conf.TrackingNumbers, p.TrackingNumber)
		}
	}
	if len(conf.TrackingNumbers) == 0 && conf.MasterTrackingNumber != "" {
		conf.TrackingNumbers = []string{conf.MasterTrackingNumber}
	}
	return conf
}
