package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carrier_wizard_v1/internal/gateway"
	"carrier_wizard_v1/internal/model"
	"carrier_wizard_v1/internal/normalizer"
	"carrier_wizard_v1/internal/repository"
	"carrier_wizard_v1/internal/wizard"
)

// ==================== Service 实现 ====================

// ShipmentService 运单记录服务，保存向导创建/取消的运单
type ShipmentService struct {
	shipmentRepo repository.ShipmentRepository

	// 物流商映射
	carrierNames map[string]string
}

// NewShipmentService 创建运单记录服务
func NewShipmentService(shipmentRepo repository.ShipmentRepository) *ShipmentService {
	return &ShipmentService{
		shipmentRepo: shipmentRepo,
		carrierNames: map[string]string{
			wizard.CarrierFedEx: "FedEx",
			wizard.CarrierUPS:   "UPS",
		},
	}
}

// CarrierName 承运商显示名称
func (s *ShipmentService) CarrierName(code string) string {
	if name, ok := s.carrierNames[code]; ok {
		return name
	}
	return code
}

// ==================== 写入 ====================

// RecordCreated 保存运单确认
func (s *ShipmentService) RecordCreated(ctx context.Context, sessionID string, cc gateway.CustomerContext, st wizard.State, conf *normalizer.ShipmentConfirmation) (*model.ShipmentRecord, error) {
	if conf == nil {
		return nil, fmt.Errorf("运单确认为空")
	}

	rec := &model.ShipmentRecord{
		SessionID:            sessionID,
		CustomerID:           cc.CustomerID,
		ShipperID:            cc.ShipperID,
		Carrier:              st.CarrierName(),
		Schema:               string(conf.Schema),
		BillingType:          string(st.SelectedBillingType),
		ServiceName:          conf.ServiceName,
		MasterTrackingNumber: conf.MasterTrackingNumber,
		TrackingNumbers:      model.StringList(conf.TrackingNumbers),
		Currency:             conf.Currency,
		ShipDate:             conf.ShipDate,
		Status:               model.ShipmentStatusCreated,
		RawPayload:           datatypes.JSON(conf.Raw),
	}
	if st.SelectedAccount != nil {
		rec.AccountNumber = st.SelectedAccount.AccountNumber
	}
	if st.SelectedBillingType != wizard.BillShipper && st.SelectedBillTo != nil {
		rec.BillToAccount = st.SelectedBillTo.AccountNumber
	}
	if st.SelectedService != nil {
		rec.ServiceCode = st.SelectedService.Code
	}
	if rec.MasterTrackingNumber == "" && len(conf.TrackingNumbers) > 0 {
		rec.MasterTrackingNumber = conf.TrackingNumbers[0]
	}
	if conf.TotalCharge != nil {
		rec.TotalCharge = decimal.NewNullDecimal(conf.TotalCharge.Amount)
		if rec.Currency == "" {
			rec.Currency = conf.TotalCharge.Currency
		}
	}

	for _, p := range conf.Packages {
		pkg := model.ShipmentPackage{
			SequenceNo:     p.SequenceNo,
			TrackingNumber: p.TrackingNumber,
			DeliveryDate:   p.DeliveryDate,
			SurchargeTotal: p.SurchargeTotal(),
		}
		if p.BaseRate != nil {
			pkg.BaseRate = decimal.NewNullDecimal(p.BaseRate.Amount)
		}
		if p.NetCharge != nil {
			pkg.NetCharge = decimal.NewNullDecimal(p.NetCharge.Amount)
		}
		if len(p.Labels) > 0 {
			pkg.LabelFormat = p.Labels[0].Format
		}
		rec.Packages = append(rec.Packages, pkg)
	}

	if err := s.shipmentRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("保存运单失败: %w", err)
	}
	return rec, nil
}

// RecordVoid 保存取消结果
func (s *ShipmentService) RecordVoid(ctx context.Context, id int64, res *normalizer.VoidResult) error {
	if res == nil {
		return fmt.Errorf("取消结果为空")
	}
	return s.shipmentRepo.MarkVoided(ctx, id, res.Success, res.StatusCode, res.StatusDescription, datatypes.JSON(res.Raw))
}

// ==================== 查询 ====================

// List 客户运单历史
func (s *ShipmentService) List(ctx context.Context, filter repository.ShipmentFilter) ([]model.ShipmentRecord, int64, error) {
	return s.shipmentRepo.List(ctx, filter)
}

// Get 获取运单，只能访问自己的记录
func (s *ShipmentService) Get(ctx context.Context, customerID string, id int64) (*model.ShipmentRecord, error) {
	rec, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShipmentNotFound
		}
		return nil, err
	}
	if rec.CustomerID != customerID {
		return nil, ErrShipmentNotFound
	}
	return rec, nil
}

// FindByTrackingNumber 按主跟踪号查找
func (s *ShipmentService) FindByTrackingNumber(ctx context.Context, customerID, carrier, trackingNumber string) (*model.ShipmentRecord, error) {
	rec, err := s.shipmentRepo.GetByMasterTrackingNumber(ctx, carrier, trackingNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShipmentNotFound
		}
		return nil, err
	}
	if rec.CustomerID != customerID {
		return nil, ErrShipmentNotFound
	}
	return rec, nil
}
