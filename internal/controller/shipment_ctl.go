package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"carrier_wizard_v1/internal/api/dto"
	"carrier_wizard_v1/internal/model"
	"carrier_wizard_v1/internal/repository"
	"carrier_wizard_v1/internal/service"
)

// ShipmentController 运单历史控制器
type ShipmentController struct {
	svc *service.ShipmentService
}

// NewShipmentController 创建运单历史控制器
func NewShipmentController(svc *service.ShipmentService) *ShipmentController {
	return &ShipmentController{svc: svc}
}

// ==================== 运单查询 ====================

// List 运单列表
// @Summary 获取运单历史
// @Description 分页查询当前客户通过向导创建的运单
// @Tags Shipment (运单历史)
// @Produce json
// @Param shipper_id query string false "发货人ID"
// @Param carrier query string false "承运商 fedex/ups"
// @Param status query string false "状态 created/voided/void_failed"
// @Param tracking_number query string false "跟踪号"
// @Param start_date query string false "开始日期 (YYYY-MM-DD)"
// @Param end_date query string false "结束日期 (YYYY-MM-DD)"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} map[string]interface{} "{"code": 0, "data": dto.ShipmentListResponse}"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Router /api/shipments [get]
func (c *ShipmentController) List(ctx *gin.Context) {
	var req dto.ListShipmentsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, "参数错误: "+err.Error())
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}

	filter := repository.ShipmentFilter{
		CustomerID:     cc.CustomerID,
		ShipperID:      req.ShipperID,
		Carrier:        req.Carrier,
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Page:           req.Page,
		PageSize:       req.PageSize,
	}

	records, total, err := c.svc.List(ctx.Request.Context(), filter)
	if err != nil {
		respondError(ctx, err)
		return
	}

	list := make([]dto.ShipmentResponse, len(records))
	for i := range records {
		list[i] = c.toResponse(&records[i])
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": dto.ShipmentListResponse{
			List:     list,
			Total:    total,
			Page:     filter.Page,
			PageSize: filter.PageSize,
		},
	})
}

// GetByID 运单详情
// @Summary 获取运单详情
// @Tags Shipment (运单历史)
// @Produce json
// @Param id path int true "运单记录ID"
// @Success 200 {object} map[string]interface{} "{"code": 0, "data": dto.ShipmentResponse}"
// @Failure 400 {object} map[string]interface{} "ID格式错误"
// @Failure 404 {object} map[string]interface{} "运单不存在"
// @Router /api/shipments/{id} [get]
func (c *ShipmentController) GetByID(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(ctx, "无效的ID")
		return
	}
	cc, ok := customer(ctx)
	if !ok {
		return
	}

	rec, err := c.svc.Get(ctx.Request.Context(), cc.CustomerID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 0, "data": c.toResponse(rec)})
}

// GetByTrackingNumber 按主跟踪号查询
// @Summary 按承运商和主跟踪号查询运单
// @Tags Shipment (运单历史)
// @Produce json
// @Param carrier path string true "承运商"
// @Param tracking_number path string true "主跟踪号"
// @Success 200 {object} map[string]interface{} "{"code": 0, "data": dto.ShipmentResponse}"
// @Failure 404 {object} map[string]interface{} "运单不存在"
// @Router /api/shipments/tracking/{carrier}/{tracking_number} [get]
func (c *ShipmentController) GetByTrackingNumber(ctx *gin.Context) {
	cc, ok := customer(ctx)
	if !ok {
		return
	}
	rec, err := c.svc.FindByTrackingNumber(ctx.Request.Context(), cc.CustomerID, ctx.Param("carrier"), ctx.Param("tracking_number"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 0, "data": c.toResponse(rec)})
}

// ==================== 转换 ====================

var shipmentStatusText = map[string]string{
	model.ShipmentStatusCreated:    "已创建",
	model.ShipmentStatusVoided:     "已取消",
	model.ShipmentStatusVoidFailed: "取消失败",
}

func (c *ShipmentController) toResponse(s *model.ShipmentRecord) dto.ShipmentResponse {
	resp := dto.ShipmentResponse{
		ID:                   s.ID,
		SessionID:            s.SessionID,
		ShipperID:            s.ShipperID,
		Carrier:              s.Carrier,
		CarrierName:          c.svc.CarrierName(s.Carrier),
		BillingType:          s.BillingType,
		AccountNumber:        s.AccountNumber,
		BillToAccount:        s.BillToAccount,
		ServiceCode:          s.ServiceCode,
		ServiceName:          s.ServiceName,
		MasterTrackingNumber: s.MasterTrackingNumber,
		TrackingNumbers:      []string(s.TrackingNumbers),
		TotalCharge:          formatAmount(s.TotalCharge),
		Currency:             s.Currency,
		ShipDate:             s.ShipDate,
		LabelURLs:            []string(s.LabelURLs),
		Status:               s.Status,
		StatusText:           shipmentStatusText[s.Status],
		VoidStatus:           s.VoidStatusDescription,
		CreatedAt:            s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            s.UpdatedAt.Format(time.RFC3339),
	}
	if s.VoidedAt != nil {
		t := s.VoidedAt.Format(time.RFC3339)
		resp.VoidedAt = &t
	}
	for _, p := range s.Packages {
		resp.Packages = append(resp.Packages, dto.ShipmentPackageResponse{
			SequenceNo:     p.SequenceNo,
			TrackingNumber: p.TrackingNumber,
			DeliveryDate:   p.DeliveryDate,
			BaseRate:       formatAmount(p.BaseRate),
			NetCharge:      formatAmount(p.NetCharge),
			SurchargeTotal: p.SurchargeTotal.StringFixed(2),
			LabelURL:       p.LabelURL,
		})
	}
	return resp
}

// formatAmount NULL 金额显示为 N/A
func formatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return "N/A"
	}
	return d.Decimal.StringFixed(2)
}
