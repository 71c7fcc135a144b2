package dto

import "time"

// ==================== 请求 DTO ====================

// ListShipmentsRequest 运单历史查询
type ListShipmentsRequest struct {
	ShipperID      string     `form:"shipper_id"`
	Carrier        string     `form:"carrier"`
	Status         string     `form:"status" binding:"omitempty,oneof=created voided void_failed"`
	TrackingNumber string     `form:"tracking_number"`
	StartDate      *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate        *time.Time `form:"end_date" time_format:"2006-01-02"`
	Page           int        `form:"page,default=1" binding:"min=1"`
	PageSize       int        `form:"page_size,default=20" binding:"min=1,max=100"`
}

// ==================== 响应 DTO ====================

// ShipmentResponse 运单
type ShipmentResponse struct {
	ID                   int64                     `json:"id"`
	SessionID            string                    `json:"session_id"`
	ShipperID            string                    `json:"shipper_id"`
	Carrier              string                    `json:"carrier"`
	CarrierName          string                    `json:"carrier_name"`
	BillingType          string                    `json:"billing_type"`
	AccountNumber        string                    `json:"account_number"`
	BillToAccount        string                    `json:"bill_to_account,omitempty"`
	ServiceCode          string                    `json:"service_code"`
	ServiceName          string                    `json:"service_name"`
	MasterTrackingNumber string                    `json:"master_tracking_number"`
	TrackingNumbers      []string                  `json:"tracking_numbers"`
	TotalCharge          string                    `json:"total_charge"`
	Currency             string                    `json:"currency"`
	ShipDate             string                    `json:"ship_date"`
	LabelURLs            []string                  `json:"label_urls"`
	Status               string                    `json:"status"`
	StatusText           string                    `json:"status_text"`
	VoidedAt             *string                   `json:"voided_at,omitempty"`
	VoidStatus           string                    `json:"void_status,omitempty"`
	Packages             []ShipmentPackageResponse `json:"packages,omitempty"`
	CreatedAt            string                    `json:"created_at"`
	UpdatedAt            string                    `json:"updated_at"`
}

// ShipmentPackageResponse 运单包裹
type ShipmentPackageResponse struct {
	SequenceNo     int    `json:"sequence_no"`
	TrackingNumber string `json:"tracking_number"`
	DeliveryDate   string `json:"delivery_date,omitempty"`
	BaseRate       string `json:"base_rate"`
	NetCharge      string `json:"net_charge"`
	SurchargeTotal string `json:"surcharge_total"`
	LabelURL       string `json:"label_url,omitempty"`
}

// ShipmentListResponse 运单列表
type ShipmentListResponse struct {
	List     []ShipmentResponse `json:"list"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}
