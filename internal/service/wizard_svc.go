package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carrier_wizard_v1/internal/gateway"
	"carrier_wizard_v1/internal/normalizer"
	"carrier_wizard_v1/internal/wizard"
	"carrier_wizard_v1/pkg/logger"
)

// genericErrorMessage 无法识别的错误统一展示
const genericErrorMessage = "Something went wrong"

// ==================== 视图 ====================

// WizardView 返回给前端的会话快照
type WizardView struct {
	SessionID        string          `json:"session_id"`
	State            wizard.State    `json:"state"`
	Page             wizard.PageInfo `json:"page"`
	CanGoBack        bool            `json:"can_go_back"`
	CanVoid          bool            `json:"can_void"`
	Incomplete       string          `json:"incomplete,omitempty"`
	Errors           []PageError     `json:"errors"`
	Busy             []Slot          `json:"busy"`
	ShipmentRecordID int64           `json:"shipment_record_id,omitempty"`
}

// ==================== WizardService ====================

// WizardService 向导控制器：页面进入时加载参考数据，把用户操作和网关响应转成 Action
type WizardService struct {
	sessions  *SessionService
	gateway   gateway.CarrierGateway
	shipments *ShipmentService
	labels    *LabelService
	now       func() time.Time
}

// NewWizardService 创建向导服务，shipments/labels 可为 nil
func NewWizardService(sessions *SessionService, gw gateway.CarrierGateway, shipments *ShipmentService, labels *LabelService) *WizardService {
	return &WizardService{
		sessions:  sessions,
		gateway:   gw,
		shipments: shipments,
		labels:    labels,
		now:       time.Now,
	}
}

// Open 打开（或恢复）会话并加载当前页数据
func (s *WizardService) Open(ctx context.Context, cc gateway.CustomerContext) (*WizardView, error) {
	sess, _ := s.sessions.Open(cc)
	s.enter(ctx, sess)
	return s.view(sess), nil
}

// View 当前快照
func (s *WizardService) View(cc gateway.CustomerContext) (*WizardView, error) {
	sess, err := s.sessions.Get(cc)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// Close 关闭会话
func (s *WizardService) Close(cc gateway.CustomerContext) error {
	if !s.sessions.Close(cc) {
		return ErrSessionNotFound
	}
	return nil
}

// EnterPage 重新进入当前页，只补齐缺失的数据，用于页面错误后的手动重试
func (s *WizardService) EnterPage(ctx context.Context, cc gateway.CustomerContext) (*WizardView, error) {
	sess, err := s.sessions.Get(cc)
	if err != nil {
		return nil, err
	}
	s.enter(ctx, sess)
	return s.view(sess), nil
}

// ==================== 导航 ====================

// Navigate 前进或后退
func (s *WizardService) Navigate(ctx context.Context, cc gateway.CustomerContext, dir wizard.Direction) (*WizardView, error) {
	sess, err := s.sessions.Get(cc)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	st := sess.Store.State()
	if dir == wizard.DirectionNext && st.IsNextDisabled {
		sess.mu.Unlock()
		if reason := wizard.Incomplete(st); reason != nil {
			return nil, reason
		}
		return nil, wizard.ErrValidationIncomplete
	}
	target, err := wizard.Transition(st.ModalPage, dir, st.SelectedBillingType)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	s.dispatch(sess, wizard.SetModalPage{Page: target})
	sess.mu.Unlock()

	logger.Debugf("[Wizard] 会话 %s: %s -> %s", sess.ID, st.ModalPage, target)
	s.enter(ctx, sess)
	return s.view(sess), nil
}

// ==================== 选择 ====================

// SelectCarrier 选择承运商，再次选择同一承运商为取消，空名称直接取消
func (s *WizardService) SelectCarrier(ctx context.Context, cc gateway.CustomerContext, name string) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		if name == "" {
			s.dispatch(sess, wizard.SetSelectedCarrier{})
		} else {
			carrier, ok := st.FindCarrier(name)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownCarrier, name)
			}
			s.dispatch(sess, wizard.SetSelectedCarrier{Carrier: &carrier})
		}
		sess.clearAllErrors()
		return nil
	})
}

// SelectBillingType 选择计费方式
func (s *WizardService) SelectBillingType(ctx context.Context, cc gateway.CustomerContext, bt wizard.BillingType) (*WizardView, error) {
	if !bt.Valid() {
		return nil, fmt.Errorf("%w: 计费方式 %q", wizard.ErrValidationIncomplete, bt)
	}
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		if st.SelectedCarrier == nil {
			return ErrNoCarrierSelected
		}
		if st.SelectedBillingType != bt {
			sess.clearAllErrors()
		}
		s.dispatch(sess, wizard.SetSelectedBillingType{BillingType: bt})
		return nil
	})
}

// ToggleAccount 切换付款账号
func (s *WizardService) ToggleAccount(ctx context.Context, cc gateway.CustomerContext, row wizard.Account) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		for _, a := range st.Accounts {
			if a.Key() == row.Key() {
				s.dispatch(sess, wizard.ToggleAccount{Account: a})
				return nil
			}
		}
		return ErrRowNotFound
	})
}

// ToggleBillTo 切换 bill-to 账号
func (s *WizardService) ToggleBillTo(ctx context.Context, cc gateway.CustomerContext, row wizard.BillTo) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		for _, b := range st.BillTos {
			if b.Key() == row.Key() {
				s.dispatch(sess, wizard.ToggleBillTo{BillTo: b})
				return nil
			}
		}
		return ErrRowNotFound
	})
}

// ToggleService 切换服务
func (s *WizardService) ToggleService(ctx context.Context, cc gateway.CustomerContext, row wizard.Service) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		for _, svc := range st.Services {
			if svc.Key() == row.Key() {
				s.dispatch(sess, wizard.ToggleService{Service: svc})
				return nil
			}
		}
		return ErrRowNotFound
	})
}

// TogglePackage 切换包裹
func (s *WizardService) TogglePackage(ctx context.Context, cc gateway.CustomerContext, row wizard.Package) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		for _, p := range st.Packages {
			if p.Key() == row.Key() {
				s.dispatch(sess, wizard.TogglePackage{Package: p})
				return nil
			}
		}
		return ErrRowNotFound
	})
}

// SetSaturdayDelivery 周六派送，仅所选服务支持时可开启
func (s *WizardService) SetSaturdayDelivery(ctx context.Context, cc gateway.CustomerContext, enabled bool) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		if enabled && (st.SelectedService == nil || !st.SelectedService.SaturdayDelivery) {
			return fmt.Errorf("%w: 所选服务不支持周六派送", ErrNotApplicable)
		}
		s.dispatch(sess, wizard.SetSaturdayDelivery{Enabled: enabled})
		return nil
	})
}

// SelectLabelFormat 选择面单图像类型和纸张类型，空值表示清除
func (s *WizardService) SelectLabelFormat(ctx context.Context, cc gateway.CustomerContext, imageType, stockType string) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		image, err := findOption(st.ImageTypes, imageType)
		if err != nil {
			return err
		}
		stock, err := findOption(st.StockTypes, stockType)
		if err != nil {
			return err
		}
		s.dispatch(sess,
			wizard.SetSelectedImageType{Option: image},
			wizard.SetSelectedStockType{Option: stock},
		)
		return nil
	})
}

// SelectImageType 选择面单图像类型
func (s *WizardService) SelectImageType(ctx context.Context, cc gateway.CustomerContext, code string) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		opt, err := findOption(st.ImageTypes, code)
		if err != nil {
			return err
		}
		s.dispatch(sess, wizard.SetSelectedImageType{Option: opt})
		return nil
	})
}

// SelectStockType 选择面单纸张类型
func (s *WizardService) SelectStockType(ctx context.Context, cc gateway.CustomerContext, code string) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		opt, err := findOption(st.StockTypes, code)
		if err != nil {
			return err
		}
		s.dispatch(sess, wizard.SetSelectedStockType{Option: opt})
		return nil
	})
}

func findOption(options []wizard.LabelOption, code string) (*wizard.LabelOption, error) {
	if code == "" {
		return nil, nil
	}
	for _, o := range options {
		if strings.EqualFold(o.Code, code) {
			opt := o
			return &opt, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRowNotFound, code)
}

// UpdateFormData 更新收件地址表单，地址变化会清空校验结果
func (s *WizardService) UpdateFormData(ctx context.Context, cc gateway.CustomerContext, form wizard.FormData, residential bool) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		s.dispatch(sess,
			wizard.SetFormData{FormData: form},
			wizard.SetResidential{Residential: residential},
		)
		return nil
	})
}

// mutate 在会话锁内执行同步变更
func (s *WizardService) mutate(cc gateway.CustomerContext, fn func(sess *Session, st wizard.State) error) (*WizardView, error) {
	sess, err := s.sessions.Get(cc)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	err = fn(sess, sess.Store.State())
	sess.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// ==================== 地址校验 ====================

// ValidateAddress 校验收件地址
func (s *WizardService) ValidateAddress(ctx context.Context, cc gateway.CustomerContext) (*WizardView, error) {
	sess, err := s.sessions.Get(cc)
	if err != nil {
		return nil, err
	}
	if err := s.validateAddress(ctx, sess); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *WizardService) validateAddress(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	st := sess.Store.State()
	rc := sess.Store.Context()
	if rc.Carrier == "" {
		sess.mu.Unlock()
		return ErrNoCarrierSelected
	}
	if !sess.acquire(SlotAddress, rc) {
		sess.mu.Unlock()
		return ErrBusy
	}
	sess.clearError(wizard.PageAddress)
	cc := sess.customer
	sess.mu.Unlock()

	raw, err := s.gateway.ValidateAddress(ctx, cc, rc.Carrier, gateway.AddressRequest{
		Address:     st.FormData,
		Residential: st.Residential,
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.release(SlotAddress, rc)

	if err != nil {
		if sess.Store.Context() == rc {
			sess.setError(pageErrorFrom(wizard.PageAddress, err))
		}
		logger.Warnf("[Wizard] 会话 %s 地址校验失败: %v", sess.ID, err)
		return nil
	}

	result := normalizer.NormalizeAddressValidation(raw)
	// 校验期间表单被修改则结果作废
	if sess.Store.State().FormData != st.FormData {
		logger.Debugf("[Wizard] 会话 %s 地址已修改，丢弃校验结果", sess.ID)
		return nil
	}
	if !s.dispatchIf(sess, rc, wizard.SetValidatedAddress{Address: result}) {
		logger.Debugf("[Wizard] 会话 %s 丢弃过期的地址校验响应", sess.ID)
		return nil
	}
	if result.Status == normalizer.AddressError {
		sess.setError(pageErrorFrom(wizard.PageAddress, normalizer.ErrUnrecognizedSchema))
	}
	return nil
}

// AcceptCandidateAddress 采用候选地址：回写客户地址后重新校验
func (s *WizardService) AcceptCandidateAddress(ctx context.Context, cc gateway.CustomerContext, index int) (*WizardView, error) {
	sess, err := s.sessions.Get(cc)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	st := sess.Store.State()
	rc := sess.Store.Context()
	v := st.ValidatedAddress
	if v == nil || index < 0 || index >= len(v.Candidates) {
		sess.mu.Unlock()
		return nil, ErrRowNotFound
	}
	form, residential := applyCandidate(st.FormData, st.Residential, v.Candidates[index])
	cc = sess.customer
	sess.mu.Unlock()

	err = s.gateway.UpdateIntegratedShippingCustomerAddress(ctx, cc, rc.Carrier, gateway.AddressRequest{
		Address:     form,
		Residential: residential,
	})

	sess.mu.Lock()
	if sess.Store.Context() != rc {
		sess.mu.Unlock()
		return nil, ErrStaleContext
	}
	if err != nil {
		sess.setError(pageErrorFrom(wizard.PageAddress, err))
		sess.mu.Unlock()
		return s.view(sess), nil
	}
	s.dispatch(sess,
		wizard.SetFormData{FormData: form},
		wizard.SetResidential{Residential: residential},
	)
	sess.mu.Unlock()

	if err := s.validateAddress(ctx, sess); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func applyCandidate(form wizard.FormData, residential bool, c normalizer.CandidateAddress) (wizard.FormData, bool) {
	if len(c.AddressLines) > 0 {
		form.AddressLine1 = c.AddressLines[0]
		form.AddressLine2 = strings.Join(c.AddressLines[1:], ", ")
	}
	form.City = nonEmpty(c.City, form.City)
	form.Region = nonEmpty(c.Region, form.Region)
	form.PostalCode = nonEmpty(c.PostalCode, form.PostalCode)
	form.CountryCode = nonEmpty(c.CountryCode, form.CountryCode)

	switch c.Classification {
	case normalizer.ClassificationResidential:
		residential = true
	case normalizer.ClassificationBusiness:
		residential = false
	}
	return form, residential
}

func nonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// ==================== 报价 ====================

// FetchRate 获取报价，已有报价时不重复请求，仅寄件方付费可用
func (s *WizardService) FetchRate(ctx context.Context, cc gateway.CustomerContext) (*WizardView, error) {
	sess, err := s.sessions.Get(cc)
	if err != nil {
		return nil, err
	}

	st := sess.Store.State()
	switch {
	case st.SelectedCarrier == nil:
		return nil, ErrNoCarrierSelected
	case st.SelectedBillingType != wizard.BillShipper:
		return nil, fmt.Errorf("%w: 非寄件方付费不报价", ErrNotApplicable)
	}
	s.load(ctx, sess, s.rateLoader())
	return s.view(sess), nil
}

// ==================== 运单 ====================

// CreateShipment 创建运单，已创建或创建中时拒绝
func (s *WizardService) CreateShipment(ctx context.Context, cc gateway.CustomerContext) (*WizardView, error) {
	sess, err := s.sessions.Get(cc)
	if err != nil {
		return nil, err
	}
	if err := s.createShipment(ctx, sess); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *WizardService) createShipment(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	st := sess.Store.State()
	switch {
	case st.SelectedCarrier == nil:
		sess.mu.Unlock()
		return ErrNoCarrierSelected
	case st.ShipmentConfirmation != nil:
		sess.mu.Unlock()
		return ErrAlreadyDone
	case st.FetchingShipment:
		sess.mu.Unlock()
		return ErrBusy
	}
	st = s.dispatch(sess, wizard.SetFetchingShipment{Fetching: true})
	sess.clearError(wizard.PageShipmentConfirmation)
	rc := sess.Store.Context()
	cc := sess.customer
	sess.mu.Unlock()

	raw, err := s.gateway.SyncShipment(ctx, cc, rc.Carrier, gateway.NewShipmentRequest(st))

	sess.mu.Lock()
	if err != nil {
		if s.dispatchIf(sess, rc, wizard.SetFetchingShipment{Fetching: false}) {
			sess.setError(pageErrorFrom(wizard.PageShipmentConfirmation, err))
		}
		sess.mu.Unlock()
		logger.Warnf("[Wizard] 会话 %s 创建运单失败: %v", sess.ID, err)
		return nil
	}

	conf := normalizer.NormalizeShipmentConfirmation(raw)
	if conf.ServiceName == "" && st.SelectedService != nil {
		conf.ServiceName = st.SelectedService.Name
	}
	if conf.ShipDate == "" {
		conf.ShipDate = s.now().Format("2006-01-02")
	}

	applied := s.dispatchIf(sess, rc,
		wizard.SetShipmentConfirmation{Confirmation: conf},
		wizard.SetFetchingShipment{Fetching: false},
	)
	if applied && !conf.Available {
		sess.setError(pageErrorFrom(wizard.PageShipmentConfirmation, normalizer.ErrUnrecognizedSchema))
	}
	sess.mu.Unlock()

	if !applied {
		logger.Warnf("[Wizard] 会话 %s 上下文已变化，运单 %s 仅保存记录", sess.ID, conf.MasterTrackingNumber)
	}
	if conf.Available {
		s.persistShipment(context.WithoutCancel(ctx), sess, cc, st, conf, applied)
	}
	return nil
}

func (s *WizardService) persistShipment(ctx context.Context, sess *Session, cc gateway.CustomerContext, st wizard.State, conf *normalizer.ShipmentConfirmation, current bool) {
	if s.shipments == nil {
		return
	}
	rec, err := s.shipments.RecordCreated(ctx, sess.ID, cc, st, conf)
	if err != nil {
		logger.Errorf("[Wizard] 会话 %s 保存运单失败: %v", sess.ID, err)
		return
	}
	if current {
		sess.mu.Lock()
		sess.recordID = rec.ID
		sess.mu.Unlock()
	}
	if s.labels == nil {
		return
	}
	if _, err := s.labels.Archive(ctx, rec, conf.Labels()); err != nil {
		logger.Errorf("[Wizard] 运单 %d 面单归档失败: %v", rec.ID, err)
	}
}

// OpenVoidConfirm 打开取消确认
func (s *WizardService) OpenVoidConfirm(ctx context.Context, cc gateway.CustomerContext) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		if !canVoid(st) {
			return ErrNotApplicable
		}
		s.dispatch(sess, wizard.SetVoidConfirmOpen{Open: true})
		return nil
	})
}

// CancelVoidConfirm 关闭取消确认
func (s *WizardService) CancelVoidConfirm(ctx context.Context, cc gateway.CustomerContext) (*WizardView, error) {
	return s.mutate(cc, func(sess *Session, st wizard.State) error {
		s.dispatch(sess, wizard.SetVoidConfirmOpen{Open: false})
		return nil
	})
}

// VoidShipment 取消运单，需先打开确认
func (s *WizardService) VoidShipment(ctx context.Context, cc gateway.CustomerContext) (*WizardView, error) {
	sess, err := s.sessions.Get(cc)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	st := sess.Store.State()
	switch {
	case st.VoidingShipment:
		sess.mu.Unlock()
		return nil, ErrBusy
	case st.VoidShipmentConfirmation != nil && st.VoidShipmentConfirmation.Success:
		sess.mu.Unlock()
		return nil, ErrAlreadyDone
	case !canVoid(st):
		sess.mu.Unlock()
		return nil, ErrNotApplicable
	case !st.IsVoidConfirmOpen:
		sess.mu.Unlock()
		return nil, ErrVoidNotConfirmed
	}
	s.dispatch(sess,
		wizard.SetVoidingShipment{Voiding: true},
		wizard.SetVoidConfirmOpen{Open: false},
	)
	sess.clearError(wizard.PageShipmentConfirmation)
	rc := sess.Store.Context()
	cc = sess.customer
	recordID := sess.recordID
	sess.mu.Unlock()

	conf := st.ShipmentConfirmation
	req := gateway.VoidRequest{
		MasterTrackingNumber: conf.MasterTrackingNumber,
		TrackingNumbers:      conf.TrackingNumbers,
		Account:              st.SelectedAccount,
	}
	if req.MasterTrackingNumber == "" && len(conf.TrackingNumbers) > 0 {
		req.MasterTrackingNumber = conf.TrackingNumbers[0]
	}

	raw, err := s.gateway.VoidShipment(ctx, cc, rc.Carrier, req)

	sess.mu.Lock()
	if err != nil {
		if s.dispatchIf(sess, rc, wizard.SetVoidingShipment{Voiding: false}) {
			sess.setError(pageErrorFrom(wizard.PageShipmentConfirmation, err))
		}
		sess.mu.Unlock()
		logger.Warnf("[Wizard] 会话 %s 取消运单失败: %v", sess.ID, err)
		return s.view(sess), nil
	}

	result := normalizer.NormalizeVoidResult(raw)
	applied := s.dispatchIf(sess, rc,
		wizard.SetVoidShipmentConfirmation{Result: result},
		wizard.SetVoidingShipment{Voiding: false},
	)
	if applied && !result.Success {
		sess.setError(voidPageError(result))
	}
	sess.mu.Unlock()

	if s.shipments != nil && recordID != 0 {
		if err := s.shipments.RecordVoid(context.WithoutCancel(ctx), recordID, result); err != nil {
			logger.Errorf("[Wizard] 运单 %d 保存取消结果失败: %v", recordID, err)
		}
	}
	return s.view(sess), nil
}

func canVoid(st wizard.State) bool {
	conf := st.ShipmentConfirmation
	if conf == nil || !conf.Available || st.VoidingShipment {
		return false
	}
	return st.VoidShipmentConfirmation == nil || !st.VoidShipmentConfirmation.Success
}

func voidPageError(r *normalizer.VoidResult) *PageError {
	pe := &PageError{
		Page:    wizard.PageShipmentConfirmation,
		Label:   wizard.Pages[wizard.PageShipmentConfirmation].Title,
		Message: nonEmpty(r.StatusDescription, genericErrorMessage),
	}
	for _, a := range r.Alerts {
		if a.Message != "" {
			pe.Details = append(pe.Details, a.Message)
		}
	}
	return pe
}

// ==================== 页面加载 ====================

// loader 页面进入时按需加载一类数据
type loader struct {
	page    wizard.Page
	slot    Slot
	carrier bool // 需要已选承运商
	present func(st wizard.State) bool
	fetch   func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error)
}

// enter 进入当前页：缺失的数据才请求网关
func (s *WizardService) enter(ctx context.Context, sess *Session) {
	st := sess.Store.State()
	for _, l := range s.loadersFor(st) {
		s.load(ctx, sess, l)
	}

	if st.ModalPage == wizard.PageShipmentConfirmation {
		cur := sess.Store.State()
		if cur.ShipmentConfirmation == nil && !cur.FetchingShipment {
			if err := s.createShipment(ctx, sess); err != nil {
				logger.Debugf("[Wizard] 会话 %s 跳过自动创建运单: %v", sess.ID, err)
			}
		}
	}
}

func (s *WizardService) loadersFor(st wizard.State) []loader {
	gw := s.gateway
	switch st.ModalPage {
	case wizard.PageCarrierSelect:
		return []loader{
			{
				page:    wizard.PageCarrierSelect,
				slot:    SlotCarriers,
				present: func(st wizard.State) bool { return st.EnabledCarriers != nil },
				fetch: func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error) {
					rows, err := gw.GetEnabledCarriers(ctx, cc)
					return wizard.SetEnabledCarriers{Carriers: nonNil(rows)}, err
				},
			},
			containersLoader(gw, wizard.PageCarrierSelect),
		}

	case wizard.PageBilling:
		out := []loader{{
			page:    wizard.PageBilling,
			slot:    SlotAccounts,
			carrier: true,
			present: func(st wizard.State) bool { return st.Accounts != nil },
			fetch: func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error) {
				rows, err := gw.GetIntegratedShippingAccounts(ctx, cc, st.CarrierName())
				return wizard.SetAccounts{Accounts: nonNil(rows)}, err
			},
		}}
		if st.SelectedBillingType != wizard.BillShipper {
			out = append(out, loader{
				page:    wizard.PageBilling,
				slot:    SlotBillTos,
				carrier: true,
				present: func(st wizard.State) bool { return st.BillTos != nil },
				fetch: func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error) {
					rows, err := gw.GetCustomerAddressIntegratedShippingProviderAccounts(ctx, cc, st.CarrierName(), st.SelectedBillingType)
					return wizard.SetBillTos{BillTos: nonNil(rows)}, err
				},
			})
		}
		return out

	case wizard.PageServices:
		out := []loader{{
			page:    wizard.PageServices,
			slot:    SlotServices,
			carrier: true,
			present: func(st wizard.State) bool { return st.Services != nil },
			fetch: func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error) {
				rows, err := gw.GetIntegratedShippingServices(ctx, cc, st.CarrierName())
				return wizard.SetServices{Services: nonNil(rows)}, err
			},
		}}
		if st.SelectedCarrier.IsFedEx() {
			out = append(out,
				loader{
					page:    wizard.PageServices,
					slot:    SlotImageTypes,
					carrier: true,
					present: func(st wizard.State) bool { return st.ImageTypes != nil },
					fetch: func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error) {
						rows, err := gw.GetCarrierImageTypes(ctx, cc, st.CarrierName())
						return wizard.SetImageTypes{Options: nonNil(rows)}, err
					},
				},
				loader{
					page:    wizard.PageServices,
					slot:    SlotStockTypes,
					carrier: true,
					present: func(st wizard.State) bool { return st.StockTypes != nil },
					fetch: func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error) {
						rows, err := gw.GetCarrierStockTypes(ctx, cc, st.CarrierName())
						return wizard.SetStockTypes{Options: nonNil(rows)}, err
					},
				},
			)
		}
		return out

	case wizard.PagePackages:
		return []loader{
			{
				page:    wizard.PagePackages,
				slot:    SlotPackages,
				carrier: true,
				present: func(st wizard.State) bool { return st.Packages != nil },
				fetch: func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error) {
					rows, err := gw.GetIntegratedShippingPackages(ctx, cc, st.CarrierName())
					return wizard.SetPackages{Packages: nonNil(rows)}, err
				},
			},
			containersLoader(gw, wizard.PagePackages),
		}

	case wizard.PageRate:
		if st.SelectedBillingType != wizard.BillShipper {
			return nil
		}
		return []loader{s.rateLoader()}
	}
	return nil
}

func (s *WizardService) rateLoader() loader {
	gw := s.gateway
	return loader{
		page:    wizard.PageRate,
		slot:    SlotRate,
		carrier: true,
		present: func(st wizard.State) bool { return st.RateQuote != nil },
		fetch: func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error) {
			raw, err := gw.GetRate(ctx, cc, st.CarrierName(), gateway.NewShipmentRequest(st))
			if err != nil {
				return nil, err
			}
			quote := normalizer.NormalizeRateQuote(raw)
			if !quote.Available {
				return nil, normalizer.ErrUnrecognizedSchema
			}
			return wizard.SetRateQuote{Quote: quote}, nil
		},
	}
}

func containersLoader(gw gateway.CarrierGateway, page wizard.Page) loader {
	return loader{
		page:    page,
		slot:    SlotContainers,
		present: func(st wizard.State) bool { return st.Containers != nil },
		fetch: func(ctx context.Context, cc gateway.CustomerContext, st wizard.State) (wizard.Action, error) {
			rows, err := gw.GetContainers(ctx, cc)
			return wizard.SetContainers{Containers: nonNil(rows)}, err
		},
	}
}

// nonNil 空结果也要和"未加载"区分开
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

// load 检查-请求-回写，响应到达时上下文已变化则丢弃
func (s *WizardService) load(ctx context.Context, sess *Session, l loader) {
	sess.mu.Lock()
	st := sess.Store.State()
	rc := sess.Store.Context()
	if l.present(st) || (l.carrier && rc.Carrier == "") || !sess.acquire(l.slot, rc) {
		sess.mu.Unlock()
		return
	}
	sess.clearError(l.page)
	cc := sess.customer
	sess.mu.Unlock()

	action, err := l.fetch(ctx, cc, st)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.release(l.slot, rc)

	if sess.Store.Context() != rc {
		logger.Debugf("[Wizard] 会话 %s 丢弃过期的 %s 响应", sess.ID, l.slot)
		return
	}
	if err != nil {
		sess.setError(pageErrorFrom(l.page, err))
		logger.Warnf("[Wizard] 会话 %s 加载 %s 失败: %v", sess.ID, l.slot, err)
		return
	}
	s.dispatch(sess, action)
}

// ==================== 内部工具 ====================

// dispatch 应用 actions 并刷新 Next 按钮，调用方持有 sess.mu
func (s *WizardService) dispatch(sess *Session, actions ...wizard.Action) wizard.State {
	st := sess.Store.Dispatch(actions...)
	return sess.Store.Dispatch(wizard.DisableNextButton{Disabled: wizard.NextDisabled(st)})
}

// dispatchIf 上下文未变化时才应用，调用方持有 sess.mu
func (s *WizardService) dispatchIf(sess *Session, rc wizard.RequestContext, actions ...wizard.Action) bool {
	st, ok := sess.Store.DispatchIf(rc, actions...)
	if !ok {
		return false
	}
	sess.Store.Dispatch(wizard.DisableNextButton{Disabled: wizard.NextDisabled(st)})
	return true
}

func (s *WizardService) view(sess *Session) *WizardView {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	st := sess.Store.State()
	v := &WizardView{
		SessionID:        sess.ID,
		State:            st,
		Page:             wizard.Pages[st.ModalPage],
		CanGoBack:        wizard.CanGoBack(st.ModalPage),
		CanVoid:          canVoid(st),
		Errors:           sess.pageErrors(),
		Busy:             sess.busySlots(sess.Store.Context()),
		ShipmentRecordID: sess.recordID,
	}
	if reason := wizard.Incomplete(st); reason != nil && st.ModalPage != wizard.PageShipmentConfirmation {
		v.Incomplete = reason.Error()
	}
	return v
}

// pageErrorFrom 网关错误展示其消息和明细，其他错误统一展示为通用消息
func pageErrorFrom(page wizard.Page, err error) *PageError {
	pe := &PageError{
		Page:    page,
		Label:   wizard.Pages[page].Title,
		Message: genericErrorMessage,
	}
	if ge, ok := gateway.AsGatewayError(err); ok {
		msg, details := ge.Detail()
		pe.Message = nonEmpty(msg, genericErrorMessage)
		pe.Details = details
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		pe.Message = "Request timed out"
	}
	return pe
}
