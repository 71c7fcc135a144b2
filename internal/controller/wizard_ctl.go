package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carrier_wizard_v1/internal/api/dto"
	"carrier_wizard_v1/internal/gateway"
	"carrier_wizard_v1/internal/middleware"
	"carrier_wizard_v1/internal/service"
	"carrier_wizard_v1/internal/wizard"
)

// ==================== WizardController 发货向导控制器 ====================

// WizardController 发货向导控制器，每个接口对应一个向导操作并返回会话快照
type WizardController struct {
	svc *service.WizardService
}

// NewWizardController 创建向导控制器
func NewWizardController(svc *service.WizardService) *WizardController {
	return &WizardController{svc: svc}
}

// ==================== 会话 ====================

// Open 打开向导
// @Summary 打开（或恢复）发货向导
// @Tags Wizard
// @Produce json
// @Param shipperId path string true "发货人ID"
// @Success 200 {object} map[string]interface{} "{"code": 0, "data": service.WizardView}"
// @Router /api/wizard/{shipperId}/open [post]
func (c *WizardController) Open(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.Open(ctx.Request.Context(), cc)
	respondView(ctx, view, err)
}

// Get 当前快照
// @Summary 获取向导快照
// @Tags Wizard
// @Produce json
// @Param shipperId path string true "发货人ID"
// @Success 200 {object} map[string]interface{} "{"code": 0, "data": service.WizardView}"
// @Failure 404 {object} map[string]interface{} "会话不存在"
// @Router /api/wizard/{shipperId} [get]
func (c *WizardController) Get(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.View(cc)
	respondView(ctx, view, err)
}

// Close 关闭向导
// @Summary 关闭发货向导
// @Tags Wizard
// @Param shipperId path string true "发货人ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "会话不存在"
// @Router /api/wizard/{shipperId} [delete]
func (c *WizardController) Close(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	if err := c.svc.Close(cc); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 0, "message": "会话已关闭"})
}

// Navigate 翻页
// @Summary 上一页 / 下一页
// @Tags Wizard
// @Accept json
// @Produce json
// @Param request body dto.NavigateRequest true "方向"
// @Success 200 {object} map[string]interface{} "{"code": 0, "data": service.WizardView}"
// @Failure 422 {object} map[string]interface{} "当前页面未完成"
// @Router /api/wizard/{shipperId}/navigate [post]
func (c *WizardController) Navigate(ctx *gin.Context) {
	var req dto.NavigateRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.Navigate(ctx.Request.Context(), cc, req.Direction)
	respondView(ctx, view, err)
}

// ==================== 选择 ====================

// SelectCarrier 选择承运商
// @Router /api/wizard/{shipperId}/carrier [post]
func (c *WizardController) SelectCarrier(ctx *gin.Context) {
	var req dto.SelectCarrierRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.SelectCarrier(ctx.Request.Context(), cc, req.Name)
	respondView(ctx, view, err)
}

// SelectBillingType 选择计费方式
// @Router /api/wizard/{shipperId}/billing-type [post]
func (c *WizardController) SelectBillingType(ctx *gin.Context) {
	var req dto.SelectBillingTypeRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.SelectBillingType(ctx.Request.Context(), cc, req.BillingType)
	respondView(ctx, view, err)
}

// ToggleAccount 切换付款账号
// @Router /api/wizard/{shipperId}/account [post]
func (c *WizardController) ToggleAccount(ctx *gin.Context) {
	var req dto.AccountRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.ToggleAccount(ctx.Request.Context(), cc, req.ToAccount())
	respondView(ctx, view, err)
}

// ToggleBillTo 切换 bill-to 账号
// @Router /api/wizard/{shipperId}/bill-to [post]
func (c *WizardController) ToggleBillTo(ctx *gin.Context) {
	var req dto.BillToRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.ToggleBillTo(ctx.Request.Context(), cc, req.ToBillTo())
	respondView(ctx, view, err)
}

// ToggleService 切换服务
// @Router /api/wizard/{shipperId}/service [post]
func (c *WizardController) ToggleService(ctx *gin.Context) {
	var req dto.ServiceRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.ToggleService(ctx.Request.Context(), cc, req.ToService())
	respondView(ctx, view, err)
}

// SetSaturdayDelivery 周六派送
// @Router /api/wizard/{shipperId}/saturday-delivery [post]
func (c *WizardController) SetSaturdayDelivery(ctx *gin.Context) {
	var req dto.SaturdayDeliveryRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.SetSaturdayDelivery(ctx.Request.Context(), cc, req.Enabled)
	respondView(ctx, view, err)
}

// SelectLabelFormat 面单格式（FedEx）
// @Router /api/wizard/{shipperId}/label-format [post]
func (c *WizardController) SelectLabelFormat(ctx *gin.Context) {
	var req dto.LabelFormatRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}

	var (
		view *service.WizardView
		err  error
	)
	switch {
	case req.ImageType != nil && req.StockType != nil:
		view, err = c.svc.SelectLabelFormat(ctx.Request.Context(), cc, *req.ImageType, *req.StockType)
	case req.ImageType != nil:
		view, err = c.svc.SelectImageType(ctx.Request.Context(), cc, *req.ImageType)
	case req.StockType != nil:
		view, err = c.svc.SelectStockType(ctx.Request.Context(), cc, *req.StockType)
	default:
		badRequest(ctx, "image_type 和 stock_type 至少提供一个")
		return
	}
	respondView(ctx, view, err)
}

// TogglePackage 切换包裹
// @Router /api/wizard/{shipperId}/package [post]
func (c *WizardController) TogglePackage(ctx *gin.Context) {
	var req dto.PackageRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.TogglePackage(ctx.Request.Context(), cc, req.ToPackage())
	respondView(ctx, view, err)
}

// ==================== 地址 ====================

// UpdateAddress 更新收件地址
// @Summary 更新收件地址表单
// @Tags Wizard
// @Accept json
// @Produce json
// @Param request body dto.AddressRequest true "地址"
// @Router /api/wizard/{shipperId}/address [put]
func (c *WizardController) UpdateAddress(ctx *gin.Context) {
	var req dto.AddressRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.UpdateFormData(ctx.Request.Context(), cc, req.ToFormData(), req.Residential)
	respondView(ctx, view, err)
}

// ValidateAddress 校验地址
// @Router /api/wizard/{shipperId}/address/validate [post]
func (c *WizardController) ValidateAddress(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.ValidateAddress(ctx.Request.Context(), cc)
	respondView(ctx, view, err)
}

// AcceptCandidate 采纳候选地址
// @Router /api/wizard/{shipperId}/address/accept [post]
func (c *WizardController) AcceptCandidate(ctx *gin.Context) {
	var req dto.AcceptCandidateRequest
	if !bind(ctx, &req) {
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.AcceptCandidateAddress(ctx.Request.Context(), cc, *req.Index)
	respondView(ctx, view, err)
}

// ==================== 报价与运单 ====================

// FetchRate 获取报价
// @Router /api/wizard/{shipperId}/rate [post]
func (c *WizardController) FetchRate(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.FetchRate(ctx.Request.Context(), cc)
	respondView(ctx, view, err)
}

// CreateShipment 创建运单
// @Summary 创建运单
// @Description 网关失败以页面错误形式返回，可重试
// @Tags Wizard
// @Produce json
// @Success 200 {object} map[string]interface{} "{"code": 0, "data": service.WizardView}"
// @Failure 409 {object} map[string]interface{} "已创建或创建中"
// @Failure 429 {object} map[string]interface{} "提交过于频繁"
// @Router /api/wizard/{shipperId}/shipment [post]
func (c *WizardController) CreateShipment(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.CreateShipment(ctx.Request.Context(), cc)
	respondView(ctx, view, err)
}

// OpenVoidConfirm 打开取消确认
// @Router /api/wizard/{shipperId}/void/confirm [post]
func (c *WizardController) OpenVoidConfirm(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.OpenVoidConfirm(ctx.Request.Context(), cc)
	respondView(ctx, view, err)
}

// CancelVoidConfirm 关闭取消确认
// @Router /api/wizard/{shipperId}/void/confirm [delete]
func (c *WizardController) CancelVoidConfirm(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.CancelVoidConfirm(ctx.Request.Context(), cc)
	respondView(ctx, view, err)
}

// VoidShipment 取消运单
// @Router /api/wizard/{shipperId}/void [post]
func (c *WizardController) VoidShipment(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	view, err := c.svc.VoidShipment(ctx.Request.Context(), cc)
	respondView(ctx, view, err)
}

// ==================== 响应工具 ====================

func customer(ctx *gin.Context) (gateway.CustomerContext, bool) {
	cc, ok := middleware.GetCustomer(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "未认证"})
		return cc, false
	}
	return cc, true
}

func bind(ctx *gin.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		badRequest(ctx, "参数错误: "+err.Error())
		return false
	}
	return true
}

func badRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": message})
}

func respondView(ctx *gin.Context, view *service.WizardView, err error) {
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 0, "message": "ok", "data": view})
}

// respondError 哨兵错误映射为 HTTP 状态码
func respondError(ctx *gin.Context, err error) {
	status := statusOf(err)
	ctx.JSON(status, gin.H{"code": status, "message": err.Error()})
}

func statusOf(err error) int {
	var gwErr *gateway.GatewayError
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrShipmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, wizard.ErrValidationIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrBackDisabled),
		errors.Is(err, wizard.ErrPageOutOfRange),
		errors.Is(err, wizard.ErrInvalidDirection),
		errors.Is(err, service.ErrRowNotFound),
		errors.Is(err, service.ErrUnknownCarrier):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBusy),
		errors.Is(err, service.ErrAlreadyDone),
		errors.Is(err, service.ErrNotApplicable),
		errors.Is(err, service.ErrVoidNotConfirmed),
		errors.Is(err, service.ErrStaleContext),
		errors.Is(err, service.ErrNoCarrierSelected):
		return http.StatusConflict
	case errors.As(err, &gwErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
