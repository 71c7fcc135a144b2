package wizard

import "carrier_wizard_v1/internal/normalizer"

// ==================== Action 定义 ====================

// ActionType Action 标签
type ActionType string

const (
	ActionSetSelectedCarrier          ActionType = "SET_SELECTED_CARRIER"
	ActionSetSelectedBillingType      ActionType = "SET_SELECTED_BILLING_TYPE"
	ActionSetValidatedAddress         ActionType = "SET_VALIDATED_ADDRESS"
	ActionSetRateQuote                ActionType = "SET_RATE_QUOTE"
	ActionSetShipmentConfirmation     ActionType = "SET_SHIPMENT_CONFIRMATION"
	ActionSetVoidShipmentConfirmation ActionType = "SET_VOID_SHIPMENT_CONFIRMATION"
	ActionClearState                  ActionType = "CLEAR_STATE"
	ActionDisableNextButton           ActionType = "DISABLE_NEXT_BUTTON"
	ActionSetModalPage                ActionType = "SET_MODAL_PAGE"
	ActionToggleAccount               ActionType = "TOGGLE_ACCOUNT"
	ActionToggleBillTo                ActionType = "TOGGLE_BILL_TO"
	ActionToggleService               ActionType = "TOGGLE_SERVICE"
	ActionTogglePackage               ActionType = "TOGGLE_PACKAGE"
	ActionSetEnabledCarriers          ActionType = "SET_ENABLED_CARRIERS"
	ActionSetAccounts                 ActionType = "SET_ACCOUNTS"
	ActionSetBillTos                  ActionType = "SET_BILL_TOS"
	ActionSetServices                 ActionType = "SET_SERVICES"
	ActionSetPackages                 ActionType = "SET_PACKAGES"
	ActionSetContainers               ActionType = "SET_CONTAINERS"
	ActionSetFormData                 ActionType = "SET_FORM_DATA"
	ActionSetResidential              ActionType = "SET_RESIDENTIAL"
	ActionSetSaturdayDelivery         ActionType = "SET_SATURDAY_DELIVERY"
	ActionSetImageTypes               ActionType = "SET_IMAGE_TYPES"
	ActionSetStockTypes               ActionType = "SET_STOCK_TYPES"
	ActionSetSelectedImageType        ActionType = "SET_SELECTED_IMAGE_TYPE"
	ActionSetSelectedStockType        ActionType = "SET_SELECTED_STOCK_TYPE"
	ActionSetFetchingShipment         ActionType = "SET_FETCHING_SHIPMENT"
	ActionSetVoidingShipment          ActionType = "SET_VOIDING_SHIPMENT"
	ActionSetVoidConfirmOpen          ActionType = "SET_VOID_CONFIRM_OPEN"
)

// Action 状态变更
type Action interface {
	Type() ActionType
}

// SetSelectedCarrier 选择承运商，再次选择同一承运商为取消选择，两种情况都会选择性清空
type SetSelectedCarrier struct{ Carrier *CarrierProfile }

// SetSelectedBillingType 选择计费方式，变化时选择性清空
type SetSelectedBillingType struct{ BillingType BillingType }

type SetValidatedAddress struct {
	Address *normalizer.AddressValidation
}

type SetRateQuote struct{ Quote *normalizer.RateQuote }

type SetShipmentConfirmation struct {
	Confirmation *normalizer.ShipmentConfirmation
}

type SetVoidShipmentConfirmation struct{ Result *normalizer.VoidResult }

// ClearState 重置为初始状态，仅保留白名单字段
type ClearState struct{ Preserve FieldSet }

type DisableNextButton struct{ Disabled bool }

// SetModalPage 越界页码忽略
type SetModalPage struct{ Page Page }

type ToggleAccount struct{ Account Account }
type ToggleBillTo struct{ BillTo BillTo }
type ToggleService struct{ Service Service }
type TogglePackage struct{ Package Package }

type SetEnabledCarriers struct{ Carriers []CarrierProfile }
type SetAccounts struct{ Accounts []Account }
type SetBillTos struct{ BillTos []BillTo }
type SetServices struct{ Services []Service }
type SetPackages struct{ Packages []Package }
type SetContainers struct{ Containers []Container }
type SetFormData struct{ FormData FormData }
type SetResidential struct{ Residential bool }
type SetSaturdayDelivery struct{ Enabled bool }
type SetImageTypes struct{ Options []LabelOption }
type SetStockTypes struct{ Options []LabelOption }
type SetSelectedImageType struct{ Option *LabelOption }
type SetSelectedStockType struct{ Option *LabelOption }
type SetFetchingShipment struct{ Fetching bool }
type SetVoidingShipment struct{ Voiding bool }
type SetVoidConfirmOpen struct{ Open bool }

func (SetSelectedCarrier) Type() ActionType          { return ActionSetSelectedCarrier }
func (SetSelectedBillingType) Type() ActionType      { return ActionSetSelectedBillingType }
func (SetValidatedAddress) Type() ActionType         { return ActionSetValidatedAddress }
func (SetRateQuote) Type() ActionType                { return ActionSetRateQuote }
func (SetShipmentConfirmation) Type() ActionType     { return ActionSetShipmentConfirmation }
func (SetVoidShipmentConfirmation) Type() ActionType { return ActionSetVoidShipmentConfirmation }
func (ClearState) Type() ActionType                  { return ActionClearState }
func (DisableNextButton) Type() ActionType           { return ActionDisableNextButton }
func (SetModalPage) Type() ActionType                { return ActionSetModalPage }
func (ToggleAccount) Type() ActionType               { return ActionToggleAccount }
func (ToggleBillTo) Type() ActionType                { return ActionToggleBillTo }
func (ToggleService) Type() ActionType               { return ActionToggleService }
func (TogglePackage) Type() ActionType               { return ActionTogglePackage }
func (SetEnabledCarriers) Type() ActionType          { return ActionSetEnabledCarriers }
func (SetAccounts) Type() ActionType                 { return ActionSetAccounts }
func (SetBillTos) Type() ActionType                  { return ActionSetBillTos }
func (SetServices) Type() ActionType                 { return ActionSetServices }
func (SetPackages) Type() ActionType                 { return ActionSetPackages }
func (SetContainers) Type() ActionType               { return ActionSetContainers }
func (SetFormData) Type() ActionType                 { return ActionSetFormData }
func (SetResidential) Type() ActionType              { return ActionSetResidential }
func (SetSaturdayDelivery) Type() ActionType         { return ActionSetSaturdayDelivery }
func (SetImageTypes) Type() ActionType               { return ActionSetImageTypes }
func (SetStockTypes) Type() ActionType               { return ActionSetStockTypes }
func (SetSelectedImageType) Type() ActionType        { return ActionSetSelectedImageType }
func (SetSelectedStockType) Type() ActionType        { return ActionSetSelectedStockType }
func (SetFetchingShipment) Type() ActionType         { return ActionSetFetchingShipment }
func (SetVoidingShipment) Type() ActionType          { return ActionSetVoidingShipment }
func (SetVoidConfirmOpen) Type() ActionType          { return ActionSetVoidConfirmOpen }

// ==================== Reducer ====================

// Reduce 纯函数：返回新状态，不修改入参中的切片
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetSelectedCarrier:
		prev := s.SelectedCarrier
		next := Preserve(s, CarrierChangePreserve)
		if a.Carrier != nil && (prev == nil || prev.Key() != a.Carrier.Key()) {
			c := *a.Carrier
			next.SelectedCarrier = &c
		}
		return next

	case SetSelectedBillingType:
		if a.BillingType == s.SelectedBillingType {
			return s
		}
		next := Preserve(s, BillingTypeChangePreserve)
		next.SelectedBillingType = a.BillingType
		return next

	case ClearState:
		return Preserve(s, a.Preserve)

	case SetValidatedAddress:
		s.ValidatedAddress = a.Address
	case SetRateQuote:
		s.RateQuote = a.Quote
	case SetShipmentConfirmation:
		s.ShipmentConfirmation = a.Confirmation
	case SetVoidShipmentConfirmation:
		s.VoidShipmentConfirmation = a.Result

	case DisableNextButton:
		s.IsNextDisabled = a.Disabled
	case SetModalPage:
		if a.Page.Valid() {
			s.ModalPage = a.Page
		}

	case ToggleAccount:
		if s.SelectedAccount != nil && s.SelectedAccount.Key() == a.Account.Key() {
			s.SelectedAccount = nil
		} else {
			acc := a.Account
			s.SelectedAccount = &acc
		}
		s.RateQuote = nil
	case ToggleBillTo:
		if s.SelectedBillTo != nil && s.SelectedBillTo.Key() == a.BillTo.Key() {
			s.SelectedBillTo = nil
		} else {
			bt := a.BillTo
			s.SelectedBillTo = &bt
		}
	case ToggleService:
		if s.SelectedService != nil && s.SelectedService.Key() == a.Service.Key() {
			s.SelectedService = nil
		} else {
			svc := a.Service
			s.SelectedService = &svc
		}
		if s.SelectedService == nil || !s.SelectedService.SaturdayDelivery {
			s.IsSaturdayDelivery = false
		}
		s.RateQuote = nil
	case TogglePackage:
		if containsPackage(s.SelectedPackages, a.Package) {
			s.SelectedPackages = nil
		} else {
			s.SelectedPackages = []Package{a.Package}
		}
		s.RateQuote = nil

	case SetEnabledCarriers:
		s.EnabledCarriers = a.Carriers
	case SetAccounts:
		s.Accounts = a.Accounts
	case SetBillTos:
		s.BillTos = a.BillTos
	case SetServices:
		s.Services = a.Services
	case SetPackages:
		s.Packages = a.Packages
	case SetContainers:
		s.Containers = a.Containers
	case SetFormData:
		if s.FormData != a.FormData {
			s.FormData = a.FormData
			s.ValidatedAddress = nil
			s.RateQuote = nil
		}
	case SetResidential:
		if s.Residential != a.Residential {
			s.Residential = a.Residential
			s.ValidatedAddress = nil
			s.RateQuote = nil
		}
	case SetSaturdayDelivery:
		if s.IsSaturdayDelivery != a.Enabled {
			s.IsSaturdayDelivery = a.Enabled
			s.RateQuote = nil
		}
	case SetImageTypes:
		s.ImageTypes = a.Options
	case SetStockTypes:
		s.StockTypes = a.Options
	case SetSelectedImageType:
		s.SelectedImageType = a.Option
	case SetSelectedStockType:
		s.SelectedStockType = a.Option
	case SetFetchingShipment:
		s.FetchingShipment = a.Fetching
	case SetVoidingShipment:
		s.VoidingShipment = a.Voiding
	case SetVoidConfirmOpen:
		s.IsVoidConfirmOpen = a.Open
	}
	return s
}

func containsPackage(list []Package, p Package) bool {
	for _, x := range list {
		if x.Key() == p.Key() {
			return true
		}
	}
	return false
}
