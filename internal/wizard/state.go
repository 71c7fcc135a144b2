package wizard

import (
	"strings"

	"github.com/shopspring/decimal"

	"carrier_wizard_v1/internal/normalizer"
)

// ==================== 计费方式 ====================

// BillingType 运费计费方式
type BillingType string

const (
	BillShipper    BillingType = "BILL_SHIPPER"
	BillReceiver   BillingType = "BILL_RECEIVER"
	BillThirdParty BillingType = "BILL_THIRD_PARTY"
)

// BillingTypes 可选计费方式
var BillingTypes = []BillingType{BillShipper, BillReceiver, BillThirdParty}

// Valid 是否为已知计费方式
func (b BillingType) Valid() bool {
	switch b {
	case BillShipper, BillReceiver, BillThirdParty:
		return true
	}
	return false
}

// ==================== 承运商 ====================

// 支持的承运商
const (
	CarrierFedEx = "fedex"
	CarrierUPS   = "ups"
)

// CarrierProfile 承运商档案，获取后不可变，选择时只引用
type CarrierProfile struct {
	Name            string         `json:"name"`
	Label           string         `json:"label"`
	ProviderTypeKey string         `json:"provider_type_key"`
	Settings        map[string]any `json:"settings,omitempty"`
}

// Key 行标识
func (c CarrierProfile) Key() string { return strings.ToLower(c.Name) }

// IsFedEx 是否为 FedEx
func (c *CarrierProfile) IsFedEx() bool {
	return c != nil && c.Key() == CarrierFedEx
}

// ==================== 参考数据 ====================
// 参考数据每次重新获取，选择比较用组合键而不是对象身份

// FormData 收件地址表单
type FormData struct {
	Name         string `json:"name"`
	Company      string `json:"company"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	CountryCode  string `json:"country_code"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

// Container 客户预设的包装容器
type Container struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Length        decimal.Decimal `json:"length"`
	Width         decimal.Decimal `json:"width"`
	Height        decimal.Decimal `json:"height"`
	DimensionUnit string          `json:"dimension_unit"`
}

// Key 行标识
func (c Container) Key() string { return c.ID }

// Package 待发货包裹
type Package struct {
	Carrier       string          `json:"carrier"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	ContainerID   string          `json:"container_id,omitempty"`
	Weight        decimal.Decimal `json:"weight"`
	WeightUnit    string          `json:"weight_unit"`
	Length        decimal.Decimal `json:"length"`
	Width         decimal.Decimal `json:"width"`
	Height        decimal.Decimal `json:"height"`
	DimensionUnit string          `json:"dimension_unit"`
}

// Key 行标识
func (p Package) Key() string { return compositeKey(p.Carrier, p.Code, p.ContainerID) }

// Account 付款账号（bill-from）
type Account struct {
	ID            string `json:"id"`
	Carrier       string `json:"carrier"`
	AccountNumber string `json:"account_number"`
	Name          string `json:"name"`
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code"`
}

// Key 行标识
func (a Account) Key() string { return compositeKey(a.Carrier, a.AccountNumber) }

// BillTo 收件方/第三方付款账号
type BillTo struct {
	ID            string `json:"id"`
	Carrier       string `json:"carrier"`
	AccountNumber string `json:"account_number"`
	Name          string `json:"name"`
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code"`
}

// Key 行标识
func (b BillTo) Key() string { return compositeKey(b.Carrier, b.AccountNumber, b.PostalCode) }

// Service 承运商服务
type Service struct {
	Carrier          string `json:"carrier"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	SaturdayDelivery bool   `json:"saturday_delivery"`
}

// Key 行标识
func (s Service) Key() string { return compositeKey(s.Carrier, s.Code) }

// LabelOption 面单格式选项（FedEx 图像类型/纸张类型）
type LabelOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Key 行标识
func (o LabelOption) Key() string { return o.Code }

func compositeKey(parts ...string) string {
	return strings.ToLower(strings.Join(parts, "|"))
}

// ==================== 向导状态 ====================

// State 向导全部状态，只能通过 Reduce 变更
// 切片为 nil 表示尚未加载，空切片表示已加载但无数据
type State struct {
	FormData    FormData    `json:"form_data"`
	Residential bool        `json:"residential"`
	Containers  []Container `json:"containers"`

	Packages         []Package `json:"packages"`
	SelectedPackages []Package `json:"selected_packages"`

	Accounts        []Account `json:"accounts"`
	SelectedAccount *Account  `json:"selected_account"`
	BillTos         []BillTo  `json:"bill_tos"`
	SelectedBillTo  *BillTo   `json:"selected_bill_to"`

	Services           []Service `json:"services"`
	SelectedService    *Service  `json:"selected_service"`
	IsSaturdayDelivery bool      `json:"is_saturday_delivery"`

	ImageTypes        []LabelOption `json:"image_types"`
	StockTypes        []LabelOption `json:"stock_types"`
	SelectedImageType *LabelOption  `json:"selected_image_type"`
	SelectedStockType *LabelOption  `json:"selected_stock_type"`

	ValidatedAddress         *normalizer.AddressValidation    `json:"validated_address"`
	RateQuote                *normalizer.RateQuote            `json:"rate_quote"`
	ShipmentConfirmation     *normalizer.ShipmentConfirmation `json:"shipment_confirmation"`
	VoidShipmentConfirmation *normalizer.VoidResult           `json:"void_shipment_confirmation"`

	EnabledCarriers     []CarrierProfile `json:"enabled_carriers"`
	SelectedCarrier     *CarrierProfile  `json:"selected_carrier"`
	SelectedBillingType BillingType      `json:"selected_billing_type"`

	ModalPage         Page `json:"modal_page"`
	IsNextDisabled    bool `json:"is_next_disabled"`
	IsVoidConfirmOpen bool `json:"is_void_confirm_open"`
	VoidingShipment   bool `json:"voiding_shipment"`
	FetchingShipment  bool `json:"fetching_shipment"`

	// Epoch 每次选择性清空递增，用于丢弃过期的异步响应
	Epoch uint64 `json:"epoch"`
}

// InitialState 初始状态
func InitialState() State {
	return State{
		ModalPage:      PageCarrierSelect,
		IsNextDisabled: true,
	}
}

// CarrierName 当前承运商名称，未选择时为空
func (s State) CarrierName() string {
	if s.SelectedCarrier == nil {
		return ""
	}
	return s.SelectedCarrier.Key()
}

// FindCarrier 在已启用承运商中查找
func (s State) FindCarrier(name string) (CarrierProfile, bool) {
	for _, c := range s.EnabledCarriers {
		if c.Key() == strings.ToLower(name) {
			return c, true
		}
	}
	return CarrierProfile{}, false
}
