package wizard

import "fmt"

// ==================== 页面完成度 ====================

// Incomplete 返回当前页缺少的必选项，nil 表示可以进入下一页
func Incomplete(s State) error {
	switch s.ModalPage {
	case PageCarrierSelect:
		if s.SelectedCarrier == nil {
			return missing("carrier")
		}
	case PageBillingType:
		if !s.SelectedBillingType.Valid() {
			return missing("billing type")
		}
	case PageBilling:
		// 寄件方付费只需账号，其余方式还需 bill-to
		if s.SelectedAccount == nil {
			return missing("account")
		}
		if s.SelectedBillingType != BillShipper && s.SelectedBillTo == nil {
			return missing("bill-to account")
		}
	case PageServices:
		if s.SelectedService == nil {
			return missing("service")
		}
		if s.SelectedCarrier.IsFedEx() {
			if len(s.ImageTypes) > 0 && s.SelectedImageType == nil {
				return missing("label image type")
			}
			if len(s.StockTypes) > 0 && s.SelectedStockType == nil {
				return missing("label stock type")
			}
		}
	case PagePackages:
		if len(s.SelectedPackages) == 0 {
			return missing("package")
		}
	case PageAddress:
		if !s.ValidatedAddress.IsValid() {
			return missing("validated address")
		}
	case PageRate:
		if s.RateQuote == nil {
			return missing("rate quote")
		}
	case PageShipmentConfirmation:
		return fmt.Errorf("%w: 最后一页", ErrValidationIncomplete)
	default:
		return fmt.Errorf("%w: %d", ErrPageOutOfRange, s.ModalPage)
	}
	return nil
}

// NextDisabled Next 按钮是否禁用
func NextDisabled(s State) bool {
	return Incomplete(s) != nil
}

func missing(what string) error {
	return fmt.Errorf("%w: 缺少 %s", ErrValidationIncomplete, what)
}
