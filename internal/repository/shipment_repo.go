package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carrier_wizard_v1/internal/model"
)

// ==================== ShipmentFilter 过滤条件 ====================

// ShipmentFilter 运单记录过滤条件
type ShipmentFilter struct {
	CustomerID     string
	ShipperID      string
	Carrier        string
	Status         string
	TrackingNumber string
	StartDate      *time.Time
	EndDate        *time.Time
	Page           int
	PageSize       int
}

// ==================== ShipmentRepository 运单仓库 ====================

// ShipmentRepository 运单仓库接口
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *model.ShipmentRecord) error
	GetByID(ctx context.Context, id int64) (*model.ShipmentRecord, error)
	GetByMasterTrackingNumber(ctx context.Context, carrier, trackingNumber string) (*model.ShipmentRecord, error)
	List(ctx context.Context, filter ShipmentFilter) ([]model.ShipmentRecord, int64, error)
	ListMissingLabels(ctx context.Context, since time.Time, limit int) ([]model.ShipmentRecord, error)
	UpdateLabels(ctx context.Context, id int64, urls []string, packageURLs map[int64]string) error
	MarkVoided(ctx context.Context, id int64, success bool, code, description string, raw datatypes.JSON) error
}

type shipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository 创建运单仓库
func NewShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

func (r *shipmentRepository) Create(ctx context.Context, shipment *model.ShipmentRecord) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *shipmentRepository) GetByID(ctx context.Context, id int64) (*model.ShipmentRecord, error) {
	var shipment model.ShipmentRecord
	err := r.db.WithContext(ctx).
		Preload("Packages", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_no ASC")
		}).
		First(&shipment, id).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *shipmentRepository) GetByMasterTrackingNumber(ctx context.Context, carrier, trackingNumber string) (*model.ShipmentRecord, error) {
	var shipment model.ShipmentRecord
	err := r.db.WithContext(ctx).
		Where("carrier = ? AND master_tracking_number = ?", carrier, trackingNumber).
		Order("created_at DESC").
		First(&shipment).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *shipmentRepository) List(ctx context.Context, filter ShipmentFilter) ([]model.ShipmentRecord, int64, error) {
	var shipments []model.ShipmentRecord
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ShipmentRecord{})

	if filter.CustomerID != "" {
		db = db.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.ShipperID != "" {
		db = db.Where("shipper_id = ?", filter.ShipperID)
	}
	if filter.Carrier != "" {
		db = db.Where("carrier = ?", filter.Carrier)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.TrackingNumber != "" {
		db = db.Where("master_tracking_number LIKE ?", "%"+filter.TrackingNumber+"%")
	}
	if filter.StartDate != nil {
		db = db.Where("created_at >= ?", filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("created_at <= ?", filter.EndDate)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.
		Preload("Packages", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_no ASC")
		}).
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&shipments).Error

	return shipments, total, err
}

// ListMissingLabels 面单未归档的有效运单，按创建时间升序
func (r *shipmentRepository) ListMissingLabels(ctx context.Context, since time.Time, limit int) ([]model.ShipmentRecord, error) {
	var shipments []model.ShipmentRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at >= ?", model.ShipmentStatusCreated, since).
		Where("label_urls IS NULL OR label_urls = ?", "{}").
		Where("raw_payload IS NOT NULL").
		Preload("Packages").
		Order("created_at ASC").
		Limit(limit).
		Find(&shipments).Error
	return shipments, err
}

func (r *shipmentRepository) UpdateLabels(ctx context.Context, id int64, urls []string, packageURLs map[int64]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ShipmentRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
			"label_urls": model.StringList(urls),
			"updated_at": time.Now(),
		}).Error; err != nil {
			return err
		}
		for pkgID, url := range packageURLs {
			if err := tx.Model(&model.ShipmentPackage{}).
				Where("id = ? AND shipment_id = ?", pkgID, id).
				Update("label_url", url).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *shipmentRepository) MarkVoided(ctx context.Context, id int64, success bool, code, description string, raw datatypes.JSON) error {
	updates := map[string]interface{}{
		"void_status_code":        code,
		"void_status_description": description,
		"void_payload":            raw,
		"updated_at":              time.Now(),
	}
	if success {
		now := time.Now()
		updates["status"] = model.ShipmentStatusVoided
		updates["voided_at"] = &now
	} else {
		updates["status"] = model.ShipmentStatusVoidFailed
	}
	return r.db.WithContext(ctx).Model(&model.ShipmentRecord{}).Where("id = ?", id).Updates(updates).Error
}
