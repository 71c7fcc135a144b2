package wizard

import "fmt"

// ==================== 页面跳转 ====================

// Page 向导页面序号
type Page int

const (
	PageCarrierSelect Page = iota
	PageBillingType
	PageBilling
	PageServices
	PagePackages
	PageAddress
	PageRate
	PageShipmentConfirmation
)

// FirstPage / LastPage 页面边界
const (
	FirstPage = PageCarrierSelect
	LastPage  = PageShipmentConfirmation
)

// PageInfo 页面表条目
type PageInfo struct {
	Page  Page   `json:"page"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Pages 页面表，下标即页面序号
var Pages = []PageInfo{
	{PageCarrierSelect, "CarrierSelect", "Select Carrier"},
	{PageBillingType, "BillingType", "Billing Type"},
	{PageBilling, "Billing", "Billing"},
	{PageServices, "Services", "Services"},
	{PagePackages, "Packages", "Packages"},
	{PageAddress, "Address", "Address"},
	{PageRate, "Rate", "Rate"},
	{PageShipmentConfirmation, "ShipmentConfirmation", "Shipment Confirmation"},
}

// Valid 是否为页面表中的有效下标
func (p Page) Valid() bool {
	return p >= FirstPage && p <= LastPage
}

func (p Page) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Page(%d)", int(p))
	}
	return Pages[p].Name
}

// Direction 翻页方向
type Direction string

const (
	DirectionBack Direction = "back"
	DirectionNext Direction = "next"
)

// skipsRate 非寄件方付费时不经过报价页
func skipsRate(bt BillingType) bool {
	return bt != BillShipper
}

// NextPage 下一页，第 5 页在非寄件方付费时直接到第 7 页
// Next 是否可用由 IsNextDisabled 决定，这里不判断
func NextPage(page Page, bt BillingType) Page {
	if page == PageAddress && skipsRate(bt) {
		return PageShipmentConfirmation
	}
	if page >= LastPage {
		return LastPage
	}
	return page + 1
}

// BackPage 上一页，第 7 页在非寄件方付费时直接回到第 5 页
func BackPage(page Page, bt BillingType) Page {
	if page == PageShipmentConfirmation && skipsRate(bt) {
		return PageAddress
	}
	if page <= FirstPage {
		return FirstPage
	}
	return page - 1
}

// CanGoBack 第 0 页禁用 Back
func CanGoBack(page Page) bool {
	return page > FirstPage
}

// Transition 计算目标页
func Transition(page Page, dir Direction, bt BillingType) (Page, error) {
	if !page.Valid() {
		return page, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	switch dir {
	case DirectionNext:
		return NextPage(page, bt), nil
	case DirectionBack:
		if !CanGoBack(page) {
			return page, ErrBackDisabled
		}
		return BackPage(page, bt), nil
	default:
		return page, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
}
