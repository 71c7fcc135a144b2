package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"carrier_wizard_v1/internal/wizard"
)

// CustomerContext 已认证的客户上下文，由中间件注入
type CustomerContext struct {
	CustomerID string `json:"customer_id"`
	ShipperID  string `json:"shipper_id"`
	Token      string `json:"-"`
}

// CarrierGateway 承运商网关
// 参考数据返回解码后的行，业务操作返回承运商原始 JSON，由 normalizer 归一化
type CarrierGateway interface {
	GetEnabledCarriers(ctx context.Context, cc CustomerContext) ([]wizard.CarrierProfile, error)
	GetContainers(ctx context.Context, cc CustomerContext) ([]wizard.Container, error)
	GetIntegratedShippingAccounts(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.Account, error)
	GetCustomerAddressIntegratedShippingProviderAccounts(ctx context.Context, cc CustomerContext, carrier string, billingType wizard.BillingType) ([]wizard.BillTo, error)
	GetIntegratedShippingServices(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.Service, error)
	GetIntegratedShippingPackages(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.Package, error)
	GetCarrierImageTypes(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.LabelOption, error)
	GetCarrierStockTypes(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.LabelOption, error)

	ValidateAddress(ctx context.Context, cc CustomerContext, carrier string, req AddressRequest) ([]byte, error)
	UpdateIntegratedShippingCustomerAddress(ctx context.Context, cc CustomerContext, carrier string, req AddressRequest) error
	GetRate(ctx context.Context, cc CustomerContext, carrier string, req ShipmentRequest) ([]byte, error)
	SyncShipment(ctx context.Context, cc CustomerContext, carrier string, req ShipmentRequest) ([]byte, error)
	VoidShipment(ctx context.Context, cc CustomerContext, carrier string, req VoidRequest) ([]byte, error)
}

// ==================== 请求参数 ====================

// AddressRequest 地址校验/更新
type AddressRequest struct {
	Address     wizard.FormData `json:"address"`
	Residential bool            `json:"residential"`
}

// PackageLine 运单中的包裹
type PackageLine struct {
	SequenceNo    int             `json:"sequence_no"`
	Code          string          `json:"code"`
	ContainerID   string          `json:"container_id,omitempty"`
	Weight        decimal.Decimal `json:"weight"`
	WeightUnit    string          `json:"weight_unit"`
	Length        decimal.Decimal `json:"length"`
	Width         decimal.Decimal `json:"width"`
	Height        decimal.Decimal `json:"height"`
	DimensionUnit string          `json:"dimension_unit"`
}

// ShipmentRequest 报价与创建运单共用
type ShipmentRequest struct {
	BillingType      wizard.BillingType `json:"billing_type"`
	Account          *wizard.Account    `json:"account"`
	BillTo           *wizard.BillTo     `json:"bill_to,omitempty"`
	ServiceCode      string             `json:"service_code"`
	SaturdayDelivery bool               `json:"saturday_delivery"`
	ImageType        string             `json:"image_type,omitempty"`
	StockType        string             `json:"stock_type,omitempty"`
	ShipTo           wizard.FormData    `json:"ship_to"`
	Residential      bool               `json:"residential"`
	Packages         []PackageLine      `json:"packages"`
}

// VoidRequest 取消运单
type VoidRequest struct {
	MasterTrackingNumber string          `json:"master_tracking_number"`
	TrackingNumbers      []string        `json:"tracking_numbers"`
	Account              *wizard.Account `json:"account,omitempty"`
}

// NewShipmentRequest 由向导状态构造运单参数
func NewShipmentRequest(s wizard.State) ShipmentRequest {
	req := ShipmentRequest{
		BillingType:      s.SelectedBillingType,
		Account:          s.SelectedAccount,
		SaturdayDelivery: s.IsSaturdayDelivery,
		ShipTo:           s.FormData,
		Residential:      s.Residential,
	}
	if s.SelectedBillingType != wizard.BillShipper {
		req.BillTo = s.SelectedBillTo
	}
	if s.SelectedService != nil {
		req.ServiceCode = s.SelectedService.Code
	}
	if s.SelectedImageType != nil {
		req.ImageType = s.SelectedImageType.Code
	}
	if s.SelectedStockType != nil {
		req.StockType = s.SelectedStockType.Code
	}

	// 使用验证后的地址
	if v := s.ValidatedAddress; v.IsValid() {
		if v.AddressLine != "" {
			req.ShipTo.AddressLine1 = v.AddressLine
			req.ShipTo.AddressLine2 = ""
		}
		req.ShipTo.City = nonEmpty(v.City, req.ShipTo.City)
		req.ShipTo.Region = nonEmpty(v.Region, req.ShipTo.Region)
		req.ShipTo.PostalCode = nonEmpty(v.PostalCode, req.ShipTo.PostalCode)
		req.ShipTo.CountryCode = nonEmpty(v.CountryCode, req.ShipTo.CountryCode)
	}

	for i, p := range s.SelectedPackages {
		req.Packages = append(req.Packages, PackageLine{
			SequenceNo:    i + 1,
			Code:          p.Code,
			ContainerID:   p.ContainerID,
			Weight:        p.Weight,
			WeightUnit:    p.WeightUnit,
			Length:        p.Length,
			Width:         p.Width,
			Height:        p.Height,
			DimensionUnit: p.DimensionUnit,
		})
	}
	return req
}

func nonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
