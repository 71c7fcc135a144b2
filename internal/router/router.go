package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carrier_wizard_v1/internal/controller"
	"carrier_wizard_v1/internal/middleware"
)

// Options 路由可选项
type Options struct {
	// LabelDir 本地面单目录，非空时挂载到 /labels
	LabelDir string
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	wizardCtl *controller.WizardController,
	shipmentCtl *controller.ShipmentController,
	opts Options) {
	// 1. 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 0, "message": "ok"})
	})

	// 2. 本地面单文件
	if opts.LabelDir != "" {
		r.Static("/labels", opts.LabelDir)
	}

	// 3. API 路由组，全部需要客户认证
	api := r.Group("/api", middleware.CustomerAuth(), middleware.AuditContext())
	{
		// wizard 发货向导，一个发货人一个会话
		wz := api.Group("/wizard/:shipperId")
		{
			wz.POST("/open", wizardCtl.Open)
			wz.GET("", wizardCtl.Get)
			wz.DELETE("", wizardCtl.Close)
			wz.POST("/navigate", wizardCtl.Navigate)

			wz.POST("/carrier", wizardCtl.SelectCarrier)
			wz.POST("/billing-type", wizardCtl.SelectBillingType)
			wz.POST("/account", wizardCtl.ToggleAccount)
			wz.POST("/bill-to", wizardCtl.ToggleBillTo)
			wz.POST("/service", wizardCtl.ToggleService)
			wz.POST("/saturday-delivery", wizardCtl.SetSaturdayDelivery)
			wz.POST("/label-format", wizardCtl.SelectLabelFormat)
			wz.POST("/package", wizardCtl.TogglePackage)

			wz.PUT("/address", wizardCtl.UpdateAddress)
			wz.POST("/address/validate",
				middleware.SubmitCooldown(middleware.SubmitOpAddress, middleware.GetInterval(middleware.SubmitOpAddress)),
				wizardCtl.ValidateAddress)
			wz.POST("/address/accept", wizardCtl.AcceptCandidate)

			wz.POST("/rate", wizardCtl.FetchRate)
			// 提交类操作有冷却期，防止重复提交
			wz.POST("/shipment",
				middleware.SubmitCooldown(middleware.SubmitOpShipment, middleware.GetInterval(middleware.SubmitOpShipment)),
				wizardCtl.CreateShipment)
			wz.POST("/void/confirm", wizardCtl.OpenVoidConfirm)
			wz.DELETE("/void/confirm", wizardCtl.CancelVoidConfirm)
			wz.POST("/void",
				middleware.SubmitCooldown(middleware.SubmitOpVoid, middleware.GetInterval(middleware.SubmitOpVoid)),
				wizardCtl.VoidShipment)
		}

		// shipments 运单历史
		shipments := api.Group("/shipments")
		{
			shipments.GET("", shipmentCtl.List)
			shipments.GET("/:id", shipmentCtl.GetByID)
			shipments.GET("/tracking/:carrier/:tracking_number", shipmentCtl.GetByTrackingNumber)
		}
	}
}
