package wizard

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrier_wizard_v1/internal/normalizer"
)

var (
	fedex = CarrierProfile{Name: "fedex", Label: "FedEx", ProviderTypeKey: "FEDEX_REST"}
	ups   = CarrierProfile{Name: "ups", Label: "UPS", ProviderTypeKey: "UPS_REST"}
)

// loadedState 构造一个各项数据都已加载、已选择的状态
func loadedState() State {
	s := InitialState()
	s.EnabledCarriers = []CarrierProfile{fedex, ups}
	s.FormData = FormData{Name: "Jane", AddressLine1: "1 Main St", City: "Austin", Region: "TX", PostalCode: "78701", CountryCode: "US"}
	s.Residential = true
	s.Containers = []Container{{ID: "box-s", Name: "Small box"}}
	s = Reduce(s, SetSelectedCarrier{Carrier: &ups})
	s = Reduce(s, SetSelectedBillingType{BillingType: BillShipper})

	acc := Account{Carrier: "ups", AccountNumber: "A1"}
	bt := BillTo{Carrier: "ups", AccountNumber: "B1", PostalCode: "10001"}
	svc := Service{Carrier: "ups", Code: "03", Name: "Ground"}
	pkg := Package{Carrier: "ups", Code: "02", ContainerID: "box-s", Weight: decimal.NewFromInt(2)}

	for _, a := range []Action{
		SetAccounts{Accounts: []Account{acc}},
		SetBillTos{BillTos: []BillTo{bt}},
		SetServices{Services: []Service{svc}},
		SetPackages{Packages: []Package{pkg}},
		ToggleAccount{Account: acc},
		ToggleBillTo{BillTo: bt},
		ToggleService{Service: svc},
		TogglePackage{Package: pkg},
		SetValidatedAddress{Address: &normalizer.AddressValidation{Status: normalizer.AddressValid}},
		SetRateQuote{Quote: &normalizer.RateQuote{Available: true}},
		SetShipmentConfirmation{Confirmation: &normalizer.ShipmentConfirmation{TrackingNumbers: []string{"1Z"}}},
		SetVoidShipmentConfirmation{Result: &normalizer.VoidResult{Success: true}},
		SetModalPage{Page: PageAddress},
	} {
		s = Reduce(s, a)
	}
	return s
}

// ==================== 页面跳转 ====================

func TestTransition_RateSkip(t *testing.T) {
	for _, bt := range BillingTypes {
		t.Run(string(bt), func(t *testing.T) {
			next := NextPage(PageAddress, bt)
			back := BackPage(PageShipmentConfirmation, bt)

			assert.Equal(t, bt != BillShipper, next == PageShipmentConfirmation)
			assert.Equal(t, bt != BillShipper, back == PageAddress)
			if bt == BillShipper {
				assert.Equal(t, PageRate, next)
				assert.Equal(t, PageRate, back)
			}
		})
	}
}

func TestTransition_StepByOne(t *testing.T) {
	for _, bt := range BillingTypes {
		for p := FirstPage; p <= LastPage; p++ {
			if p != PageAddress && p != LastPage {
				assert.Equal(t, p+1, NextPage(p, bt), "next from %s (%s)", p, bt)
			}
			if p != PageShipmentConfirmation && p != FirstPage {
				assert.Equal(t, p-1, BackPage(p, bt), "back from %s (%s)", p, bt)
			}
		}
	}
}

func TestTransition_Clamp(t *testing.T) {
	assert.Equal(t, LastPage, NextPage(LastPage, BillShipper))
	assert.Equal(t, FirstPage, BackPage(FirstPage, BillShipper))
	assert.False(t, CanGoBack(FirstPage))
	assert.True(t, CanGoBack(PageBillingType))
}

func TestTransition_Errors(t *testing.T) {
	tests := []struct {
		name    string
		page    Page
		dir     Direction
		want    Page
		wantErr error
	}{
		{"第 0 页后退", PageCarrierSelect, DirectionBack, PageCarrierSelect, ErrBackDisabled},
		{"越界页码", Page(9), DirectionNext, Page(9), ErrPageOutOfRange},
		{"未知方向", PageBilling, Direction("up"), PageBilling, ErrInvalidDirection},
		{"正常前进", PageBilling, DirectionNext, PageServices, nil},
		{"正常后退", PageBilling, DirectionBack, PageBillingType, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.page, tt.dir, BillShipper)
			assert.Equal(t, tt.want, got)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPageString(t *testing.T) {
	assert.Equal(t, "Rate", PageRate.String())
	assert.Equal(t, "Page(12)", Page(12).String())
	assert.Len(t, Pages, int(LastPage)+1)
}

// ==================== 选择性清空 ====================

func TestSetSelectedCarrier_DifferentCarrierResets(t *testing.T) {
	s := loadedState()
	require.NotNil(t, s.RateQuote)

	next := Reduce(s, SetSelectedCarrier{Carrier: &fedex})

	require.NotNil(t, next.SelectedCarrier)
	assert.Equal(t, "fedex", next.SelectedCarrier.Name)
	assertCarrierReset(t, s, next)
}

func TestSetSelectedCarrier_SameCarrierTogglesOff(t *testing.T) {
	s := loadedState()

	next := Reduce(s, SetSelectedCarrier{Carrier: &ups})

	assert.Nil(t, next.SelectedCarrier)
	assertCarrierReset(t, s, next)
}

func assertCarrierReset(t *testing.T, before, after State) {
	t.Helper()

	assert.Empty(t, after.SelectedBillingType)
	assert.Nil(t, after.Accounts)
	assert.Nil(t, after.SelectedAccount)
	assert.Nil(t, after.BillTos)
	assert.Nil(t, after.SelectedBillTo)
	assert.Nil(t, after.Services)
	assert.Nil(t, after.SelectedService)
	assert.Nil(t, after.Packages)
	assert.Nil(t, after.SelectedPackages)
	assert.Nil(t, after.ValidatedAddress)
	assert.Nil(t, after.RateQuote)
	assert.Nil(t, after.ShipmentConfirmation)
	assert.Nil(t, after.VoidShipmentConfirmation)

	assert.Equal(t, before.EnabledCarriers, after.EnabledCarriers)
	assert.Equal(t, before.FormData, after.FormData)
	assert.Equal(t, before.Residential, after.Residential)
	assert.Equal(t, before.Containers, after.Containers)
	assert.Equal(t, before.ModalPage, after.ModalPage)
	assert.Equal(t, before.Epoch+1, after.Epoch)
}

func TestSetSelectedBillingType(t *testing.T) {
	s := loadedState()

	same := Reduce(s, SetSelectedBillingType{BillingType: BillShipper})
	assert.Equal(t, s, same, "相同计费方式不清空")

	next := Reduce(s, SetSelectedBillingType{BillingType: BillReceiver})
	assert.Equal(t, BillReceiver, next.SelectedBillingType)
	assert.Equal(t, s.SelectedCarrier, next.SelectedCarrier)
	assert.Equal(t, s.Accounts, next.Accounts)
	assert.Equal(t, s.Services, next.Services)
	assert.Equal(t, s.SelectedService, next.SelectedService)
	assert.Equal(t, s.SelectedPackages, next.SelectedPackages)
	assert.Nil(t, next.SelectedAccount)
	assert.Nil(t, next.BillTos)
	assert.Nil(t, next.SelectedBillTo)
	assert.Nil(t, next.RateQuote)
	assert.Nil(t, next.ValidatedAddress)
	assert.Equal(t, s.Epoch+1, next.Epoch)
}

func TestPreserveSets(t *testing.T) {
	assert.Equal(t, FieldSet{FieldEnabledCarriers, FieldFormData, FieldResidential, FieldContainers, FieldModalPage}, CarrierChangePreserve)
	for _, f := range CarrierChangePreserve {
		assert.True(t, BillingTypeChangePreserve.Has(f), "%s", f)
	}
	assert.True(t, BillingTypeChangePreserve.Has(FieldSelectedCarrier))
	assert.False(t, BillingTypeChangePreserve.Has(FieldSelectedBillTo))
	assert.False(t, CarrierChangePreserve.Has(FieldPackages))
}

func TestClearState(t *testing.T) {
	s := loadedState()

	next := Reduce(s, ClearState{Preserve: FieldSet{FieldFormData}})

	assert.Equal(t, s.FormData, next.FormData)
	assert.Nil(t, next.EnabledCarriers)
	assert.Nil(t, next.SelectedCarrier)
	assert.Equal(t, PageCarrierSelect, next.ModalPage)
	assert.True(t, next.IsNextDisabled)
}

// ==================== 选择切换 ====================

func TestToggle_SelectReplaceClear(t *testing.T) {
	a1 := Account{Carrier: "ups", AccountNumber: "A1", Name: "Main"}
	a2 := Account{Carrier: "ups", AccountNumber: "A2"}
	// 重新获取后的同一行，对象不同但组合键相同
	a1Refetched := Account{Carrier: "UPS", AccountNumber: "A1", Name: "Main (renamed)"}

	s := InitialState()
	s = Reduce(s, ToggleAccount{Account: a1})
	require.NotNil(t, s.SelectedAccount)
	assert.Equal(t, "A1", s.SelectedAccount.AccountNumber)

	s = Reduce(s, ToggleAccount{Account: a2})
	assert.Equal(t, "A2", s.SelectedAccount.AccountNumber)

	s = Reduce(s, ToggleAccount{Account: a1})
	s = Reduce(s, ToggleAccount{Account: a1Refetched})
	assert.Nil(t, s.SelectedAccount)
}

func TestToggle_AllRowKinds(t *testing.T) {
	bt := BillTo{Carrier: "fedex", AccountNumber: "B1", PostalCode: "1"}
	svc := Service{Carrier: "fedex", Code: "FEDEX_GROUND"}
	pkg := Package{Carrier: "fedex", Code: "YOUR_PACKAGING", ContainerID: "c1"}
	other := Package{Carrier: "fedex", Code: "FEDEX_BOX"}

	s := InitialState()
	s = Reduce(s, ToggleBillTo{BillTo: bt})
	s = Reduce(s, ToggleService{Service: svc})
	s = Reduce(s, TogglePackage{Package: pkg})
	require.NotNil(t, s.SelectedBillTo)
	require.NotNil(t, s.SelectedService)
	require.Len(t, s.SelectedPackages, 1)

	s = Reduce(s, TogglePackage{Package: other})
	require.Len(t, s.SelectedPackages, 1)
	assert.Equal(t, "FEDEX_BOX", s.SelectedPackages[0].Code)

	s = Reduce(s, ToggleBillTo{BillTo: bt})
	s = Reduce(s, ToggleService{Service: svc})
	s = Reduce(s, TogglePackage{Package: other})
	assert.Nil(t, s.SelectedBillTo)
	assert.Nil(t, s.SelectedService)
	assert.Empty(t, s.SelectedPackages)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := loadedState()
	before := s.SelectedPackages

	_ = Reduce(s, TogglePackage{Package: Package{Carrier: "ups", Code: "other"}})

	assert.Equal(t, before, s.SelectedPackages)
}

// ==================== 报价清空规则 ====================

func TestRateQuoteClearing(t *testing.T) {
	quote := &normalizer.RateQuote{Available: true}
	svc := Service{Carrier: "ups", Code: "03"}

	tests := []struct {
		name      string
		action    Action
		wantClear bool
	}{
		{"切换到其他服务", ToggleService{Service: Service{Carrier: "ups", Code: "02"}}, true},
		{"取消服务", ToggleService{Service: svc}, true},
		{"周六派送变化", SetSaturdayDelivery{Enabled: true}, true},
		{"周六派送不变", SetSaturdayDelivery{Enabled: false}, false},
		{"地址变化", SetFormData{FormData: FormData{City: "Dallas"}}, true},
		{"住宅标记变化", SetResidential{Residential: true}, true},
		{"重新加载服务列表", SetServices{Services: []Service{svc}}, false},
		{"翻页", SetModalPage{Page: PageRate}, false},
		{"选择 bill-to", ToggleBillTo{BillTo: BillTo{AccountNumber: "B"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := InitialState()
			s = Reduce(s, ToggleService{Service: svc})
			s = Reduce(s, SetRateQuote{Quote: quote})

			got := Reduce(s, tt.action)
			assert.Equal(t, tt.wantClear, got.RateQuote == nil)
		})
	}
}

func TestSetFormData_ClearsValidatedAddress(t *testing.T) {
	s := InitialState()
	s = Reduce(s, SetValidatedAddress{Address: &normalizer.AddressValidation{Status: normalizer.AddressValid}})

	same := Reduce(s, SetFormData{FormData: s.FormData})
	assert.NotNil(t, same.ValidatedAddress)

	changed := Reduce(s, SetFormData{FormData: FormData{PostalCode: "10001"}})
	assert.Nil(t, changed.ValidatedAddress)
}

func TestSetModalPage_IgnoresInvalid(t *testing.T) {
	s := Reduce(InitialState(), SetModalPage{Page: PageServices})
	s = Reduce(s, SetModalPage{Page: Page(-1)})
	s = Reduce(s, SetModalPage{Page: Page(8)})
	assert.Equal(t, PageServices, s.ModalPage)
}

// ==================== 页面完成度 ====================

func TestIncomplete(t *testing.T) {
	withPage := func(s State, p Page) State { return Reduce(s, SetModalPage{Page: p}) }
	imgs := []LabelOption{{Code: "PDF"}}

	tests := []struct {
		name     string
		state    func() State
		complete bool
	}{
		{"未选承运商", func() State { return InitialState() }, false},
		{"已选承运商", func() State { return Reduce(InitialState(), SetSelectedCarrier{Carrier: &ups}) }, true},
		{"未选计费方式", func() State { return withPage(InitialState(), PageBillingType) }, false},
		{"寄件方付费只需账号", func() State {
			s := Reduce(InitialState(), SetSelectedBillingType{BillingType: BillShipper})
			s = Reduce(s, ToggleAccount{Account: Account{AccountNumber: "A"}})
			return withPage(s, PageBilling)
		}, true},
		{"第三方付费缺 bill-to", func() State {
			s := Reduce(InitialState(), SetSelectedBillingType{BillingType: BillThirdParty})
			s = Reduce(s, ToggleAccount{Account: Account{AccountNumber: "A"}})
			return withPage(s, PageBilling)
		}, false},
		{"FedEx 缺面单格式", func() State {
			s := Reduce(InitialState(), SetSelectedCarrier{Carrier: &fedex})
			s = Reduce(s, SetImageTypes{Options: imgs})
			s = Reduce(s, ToggleService{Service: Service{Code: "X"}})
			return withPage(s, PageServices)
		}, false},
		{"FedEx 选齐面单格式", func() State {
			s := Reduce(InitialState(), SetSelectedCarrier{Carrier: &fedex})
			s = Reduce(s, SetImageTypes{Options: imgs})
			s = Reduce(s, SetSelectedImageType{Option: &imgs[0]})
			s = Reduce(s, ToggleService{Service: Service{Code: "X"}})
			return withPage(s, PageServices)
		}, true},
		{"UPS 不需要面单格式", func() State {
			s := Reduce(InitialState(), SetSelectedCarrier{Carrier: &ups})
			s = Reduce(s, SetImageTypes{Options: imgs})
			s = Reduce(s, ToggleService{Service: Service{Code: "03"}})
			return withPage(s, PageServices)
		}, true},
		{"未选包裹", func() State { return withPage(InitialState(), PagePackages) }, false},
		{"地址多候选", func() State {
			s := Reduce(InitialState(), SetValidatedAddress{Address: &normalizer.AddressValidation{Status: normalizer.AddressAmbiguous}})
			return withPage(s, PageAddress)
		}, false},
		{"地址有效", func() State {
			s := Reduce(InitialState(), SetValidatedAddress{Address: &normalizer.AddressValidation{Status: normalizer.AddressValid}})
			return withPage(s, PageAddress)
		}, true},
		{"无报价", func() State { return withPage(InitialState(), PageRate) }, false},
		{"最后一页", func() State { return withPage(loadedState(), PageShipmentConfirmation) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Incomplete(tt.state())
			if tt.complete {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrValidationIncomplete))
			}
		})
	}
}

// ==================== Store ====================

func TestStore_DispatchIfDropsStale(t *testing.T) {
	store := NewStore()
	store.Dispatch(SetEnabledCarriers{Carriers: []CarrierProfile{fedex, ups}}, SetSelectedCarrier{Carrier: &ups})

	rc := store.Context()
	assert.Equal(t, "ups", rc.Carrier)

	// 请求在途时切换承运商
	store.Dispatch(SetSelectedCarrier{Carrier: &fedex})

	_, applied := store.DispatchIf(rc, SetServices{Services: []Service{{Carrier: "ups", Code: "03"}}})
	assert.False(t, applied)
	assert.Nil(t, store.State().Services)

	_, applied = store.DispatchIf(store.Context(), SetServices{Services: []Service{{Carrier: "fedex", Code: "FEDEX_GROUND"}}})
	assert.True(t, applied)
	assert.Len(t, store.State().Services, 1)
}

func TestStore_DispatchIfDropsAfterClearToSameCarrier(t *testing.T) {
	store := NewStore()
	store.Dispatch(SetSelectedCarrier{Carrier: &ups})
	rc := store.Context()

	// 取消再选回同一承运商，Epoch 不同
	store.Dispatch(SetSelectedCarrier{Carrier: &ups}, SetSelectedCarrier{Carrier: &ups})
	assert.Equal(t, "ups", store.State().CarrierName())

	_, applied := store.DispatchIf(rc, SetAccounts{Accounts: []Account{{AccountNumber: "A"}}})
	assert.False(t, applied)
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			store.Dispatch(SetSaturdayDelivery{Enabled: on})
			_ = store.State()
		}(i%2 == 0)
	}
	wg.Wait()
	assert.Equal(t, PageCarrierSelect, store.State().ModalPage)
}

func TestStore_Update(t *testing.T) {
	store := NewStore()
	calls := 0
	fetchOnce := func(s State) []Action {
		if s.FetchingShipment {
			return nil
		}
		calls++
		return []Action{SetFetchingShipment{Fetching: true}}
	}

	store.Update(fetchOnce)
	store.Update(fetchOnce)

	assert.Equal(t, 1, calls)
	assert.True(t, store.State().FetchingShipment)
}
