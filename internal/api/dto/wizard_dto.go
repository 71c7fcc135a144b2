package dto

import "carrier_wizard_v1/internal/wizard"

// ==================== 向导请求 DTO ====================

// NavigateRequest 翻页请求
type NavigateRequest struct {
	Direction wizard.Direction `json:"direction" binding:"required,oneof=back next"`
}

// SelectCarrierRequest 选择承运商，name 为空表示取消选择
type SelectCarrierRequest struct {
	Name string `json:"name"`
}

// SelectBillingTypeRequest 选择计费方式
type SelectBillingTypeRequest struct {
	BillingType wizard.BillingType `json:"billing_type" binding:"required"`
}

// AccountRequest 付款账号行
type AccountRequest struct {
	Carrier       string `json:"carrier" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
}

// ToAccount 转为行标识
func (r AccountRequest) ToAccount() wizard.Account {
	return wizard.Account{Carrier: r.Carrier, AccountNumber: r.AccountNumber}
}

// BillToRequest bill-to 账号行
type BillToRequest struct {
	Carrier       string `json:"carrier" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	PostalCode    string `json:"postal_code"`
}

// ToBillTo 转为行标识
func (r BillToRequest) ToBillTo() wizard.BillTo {
	return wizard.BillTo{Carrier: r.Carrier, AccountNumber: r.AccountNumber, PostalCode: r.PostalCode}
}

// ServiceRequest 服务行
type ServiceRequest struct {
	Carrier string `json:"carrier" binding:"required"`
	Code    string `json:"code" binding:"required"`
}

// ToService 转为行标识
func (r ServiceRequest) ToService() wizard.Service {
	return wizard.Service{Carrier: r.Carrier, Code: r.Code}
}

// PackageRequest 包裹行
type PackageRequest struct {
	Carrier     string `json:"carrier" binding:"required"`
	Code        string `json:"code" binding:"required"`
	ContainerID string `json:"container_id"`
}

// ToPackage 转为行标识
func (r PackageRequest) ToPackage() wizard.Package {
	return wizard.Package{Carrier: r.Carrier, Code: r.Code, ContainerID: r.ContainerID}
}

// SaturdayDeliveryRequest 周六派送开关
type SaturdayDeliveryRequest struct {
	Enabled bool `json:"enabled"`
}

// LabelFormatRequest 面单格式，缺省字段保持不变，空字符串表示清除
type LabelFormatRequest struct {
	ImageType *string `json:"image_type"`
	StockType *string `json:"stock_type"`
}

// AddressRequest 收件地址表单
type AddressRequest struct {
	Name         string `json:"name"`
	Company      string `json:"company"`
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code" binding:"required"`
	CountryCode  string `json:"country_code" binding:"required,len=2"`
	Phone        string `json:"phone"`
	Email        string `json:"email" binding:"omitempty,email"`
	Residential  bool   `json:"residential"`
}

// ToFormData 转为表单
func (r AddressRequest) ToFormData() wizard.FormData {
	return wizard.FormData{
		Name:         r.Name,
		Company:      r.Company,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		Region:       r.Region,
		PostalCode:   r.PostalCode,
		CountryCode:  r.CountryCode,
		Phone:        r.Phone,
		Email:        r.Email,
	}
}

// AcceptCandidateRequest 采纳候选地址
type AcceptCandidateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}
