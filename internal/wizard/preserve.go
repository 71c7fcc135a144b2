package wizard

// ==================== 选择性清空 ====================

// Field 可保留的状态字段
type Field string

const (
	FieldFormData            Field = "formData"
	FieldResidential         Field = "residential"
	FieldContainers          Field = "containers"
	FieldPackages            Field = "packages"
	FieldSelectedPackages    Field = "selectedPackages"
	FieldAccounts            Field = "accounts"
	FieldSelectedAccount     Field = "selectedAccount"
	FieldBillTos             Field = "billTos"
	FieldSelectedBillTo      Field = "selectedBillTo"
	FieldServices            Field = "services"
	FieldSelectedService     Field = "selectedService"
	FieldSaturdayDelivery    Field = "isSaturdayDelivery"
	FieldImageTypes          Field = "imageTypes"
	FieldStockTypes          Field = "stockTypes"
	FieldSelectedImageType   Field = "selectedImageType"
	FieldSelectedStockType   Field = "selectedStockType"
	FieldValidatedAddress    Field = "validatedAddress"
	FieldRateQuote           Field = "rateQuote"
	FieldEnabledCarriers     Field = "enabledCarriers"
	FieldSelectedCarrier     Field = "selectedCarrier"
	FieldSelectedBillingType Field = "selectedBillingType"
	FieldModalPage           Field = "modalPage"
)

// FieldSet 保留字段白名单
type FieldSet []Field

// Has 是否包含字段
func (fs FieldSet) Has(f Field) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}

// Union 合并白名单
func (fs FieldSet) Union(other ...Field) FieldSet {
	out := make(FieldSet, 0, len(fs)+len(other))
	out = append(out, fs...)
	for _, f := range other {
		if !out.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// CarrierChangePreserve 切换承运商时保留的字段
// 包裹、服务、账号都与承运商相关，必须重新获取
var CarrierChangePreserve = FieldSet{
	FieldEnabledCarriers,
	FieldFormData,
	FieldResidential,
	FieldContainers,
	FieldModalPage,
}

// BillingTypeChangePreserve 切换计费方式时保留的字段
// 付款账号列表保留，已选账号与 bill-to 清空
var BillingTypeChangePreserve = CarrierChangePreserve.Union(
	FieldSelectedCarrier,
	FieldPackages,
	FieldSelectedPackages,
	FieldServices,
	FieldSelectedService,
	FieldSaturdayDelivery,
	FieldImageTypes,
	FieldStockTypes,
	FieldSelectedImageType,
	FieldSelectedStockType,
	FieldAccounts,
)

// Preserve 返回 {初始状态, 白名单字段取自 s}，Epoch 递增
func Preserve(s State, keep FieldSet) State {
	next := InitialState()
	next.Epoch = s.Epoch + 1

	for _, f := range keep {
		switch f {
		case FieldFormData:
			next.FormData = s.FormData
		case FieldResidential:
			next.Residential = s.Residential
		case FieldContainers:
			next.Containers = s.Containers
		case FieldPackages:
			next.Packages = s.Packages
		case FieldSelectedPackages:
			next.SelectedPackages = s.SelectedPackages
		case FieldAccounts:
			next.Accounts = s.Accounts
		case FieldSelectedAccount:
			next.SelectedAccount = s.SelectedAccount
		case FieldBillTos:
			next.BillTos = s.BillTos
		case FieldSelectedBillTo:
			next.SelectedBillTo = s.SelectedBillTo
		case FieldServices:
			next.Services = s.Services
		case FieldSelectedService:
			next.SelectedService = s.SelectedService
		case FieldSaturdayDelivery:
			next.IsSaturdayDelivery = s.IsSaturdayDelivery
		case FieldImageTypes:
			next.ImageTypes = s.ImageTypes
		case FieldStockTypes:
			next.StockTypes = s.StockTypes
		case FieldSelectedImageType:
			next.SelectedImageType = s.SelectedImageType
		case FieldSelectedStockType:
			next.SelectedStockType = s.SelectedStockType
		case FieldValidatedAddress:
			next.ValidatedAddress = s.ValidatedAddress
		case FieldRateQuote:
			next.RateQuote = s.RateQuote
		case FieldEnabledCarriers:
			next.EnabledCarriers = s.EnabledCarriers
		case FieldSelectedCarrier:
			next.SelectedCarrier = s.SelectedCarrier
		case FieldSelectedBillingType:
			next.SelectedBillingType = s.SelectedBillingType
		case FieldModalPage:
			next.ModalPage = s.ModalPage
		}
	}
	return next
}
