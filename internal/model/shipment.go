package model

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ==================== ShipmentRecord 运单记录 ====================

// ShipmentStatus 运单状态
const (
	ShipmentStatusCreated    = "created"     // 已创建
	ShipmentStatusVoided     = "voided"      // 已取消
	ShipmentStatusVoidFailed = "void_failed" // 取消失败
)

// ShipmentRecord 向导创建的运单
type ShipmentRecord struct {
	BaseModel
	AuditModel

	// 会话
	SessionID  string `gorm:"size:64;index" json:"session_id"`
	CustomerID string `gorm:"size:64;index;not null" json:"customer_id"`
	ShipperID  string `gorm:"size:64;index;not null" json:"shipper_id"`

	// 承运商与计费
	Carrier       string `gorm:"size:16;index;not null" json:"carrier"`
	Schema        string `gorm:"size:16" json:"schema"`
	BillingType   string `gorm:"size:32" json:"billing_type"`
	AccountNumber string `gorm:"size:64" json:"account_number"`
	BillToAccount string `gorm:"size:64" json:"bill_to_account,omitempty"`
	ServiceCode   string `gorm:"size:64" json:"service_code"`
	ServiceName   string `gorm:"size:128" json:"service_name"`

	// 跟踪号
	MasterTrackingNumber string     `gorm:"size:64;index" json:"master_tracking_number"`
	TrackingNumbers      StringList `json:"tracking_numbers"`

	// 费用
	TotalCharge decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"total_charge"`
	Currency    string              `gorm:"size:8" json:"currency"`
	ShipDate    string              `gorm:"size:16" json:"ship_date"`

	// 面单
	LabelURLs StringList `json:"label_urls"`

	// 状态
	Status                string     `gorm:"size:16;index;default:created" json:"status"`
	VoidedAt              *time.Time `json:"voided_at,omitempty"`
	VoidStatusCode        string     `gorm:"size:64" json:"void_status_code,omitempty"`
	VoidStatusDescription string     `gorm:"size:255" json:"void_status_description,omitempty"`

	// 原始报文（PostgreSQL JSONB）
	RawPayload  datatypes.JSON `gorm:"type:jsonb" json:"-"`
	VoidPayload datatypes.JSON `gorm:"type:jsonb" json:"-"`

	Packages []ShipmentPackage `gorm:"foreignKey:ShipmentID" json:"packages"`
}

func (*ShipmentRecord) TableName() string {
	return "shipment_records"
}

// CanVoid 只有已创建的运单可以取消
func (s *ShipmentRecord) CanVoid() bool {
	return s.Status == ShipmentStatusCreated || s.Status == ShipmentStatusVoidFailed
}

// ==================== ShipmentPackage 运单包裹 ====================

// ShipmentPackage 运单内的包裹
type ShipmentPackage struct {
	BaseModel
	ShipmentID     int64               `gorm:"index;not null" json:"shipment_id"`
	SequenceNo     int                 `json:"sequence_no"`
	TrackingNumber string              `gorm:"size:64;index" json:"tracking_number"`
	DeliveryDate   string              `gorm:"size:32" json:"delivery_date,omitempty"`
	BaseRate       decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"base_rate"` // NULL 表示不可用
	NetCharge      decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"net_charge"`
	SurchargeTotal decimal.Decimal     `gorm:"type:numeric(12,2)" json:"surcharge_total"`
	LabelFormat    string              `gorm:"size:16" json:"label_format,omitempty"`
	LabelURL       string              `gorm:"size:500" json:"label_url,omitempty"`
}

func (*ShipmentPackage) TableName() string {
	return "shipment_packages"
}

// ==================== StringList 字符串数组列 ====================

// StringList PostgreSQL 下为 text[]，其他方言存为数组字面量文本
type StringList pq.StringArray

func (l StringList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

func (l *StringList) Scan(src any) error {
	return (*pq.StringArray)(l).Scan(src)
}

func (StringList) GormDataType() string {
	return "text[]"
}

func (StringList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
