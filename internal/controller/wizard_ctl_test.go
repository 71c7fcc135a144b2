package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carrier_wizard_v1/internal/gateway"
	"carrier_wizard_v1/internal/middleware"
	"carrier_wizard_v1/internal/model"
	"carrier_wizard_v1/internal/repository"
	"carrier_wizard_v1/internal/service"
	"carrier_wizard_v1/internal/wizard"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试网关 ====================

// gatewayFixtures 按操作名返回的响应体
var gatewayFixtures = map[string]string{
	"enabled-carriers":                   `[{"name": "UPS", "label": "UPS"}, {"name": "FedEx", "label": "FedEx"}]`,
	"containers":                         `{"data": [{"id": "box-1", "name": "Small box"}]}`,
	"integrated-shipping-accounts":       `[{"account_number": "A100", "name": "Main"}]`,
	"customer-address-provider-accounts": `[{"account_number": "R200", "postal_code": "10001"}]`,
	"integrated-shipping-services":       `[{"code": "03", "name": "UPS Ground"}]`,
	"integrated-shipping-packages":       `[{"code": "02", "name": "Customer packaging", "weight": "2", "weight_unit": "LB"}]`,
	"validate-address": `{"XAVResponse": {"ValidAddressIndicator": "",
	  "Candidate": {"AddressKeyFormat": {"AddressLine": ["26601 ALISO CREEK RD"], "PoliticalDivision2": "ALISO VIEJO",
	  "PoliticalDivision1": "CA", "PostcodePrimaryLow": "92656", "CountryCode": "US"}}}}`,
	"sync-shipment": `{"ShipmentResponse": {"ShipmentResults": {
	  "ShipmentCharges": {"TotalCharges": {"CurrencyCode": "USD", "MonetaryValue": "16.30"}},
	  "ShipmentIdentificationNumber": "1ZMASTER",
	  "PackageResults": {"TrackingNumber": "1Z12345E0205271688",
	    "BaseServiceCharge": {"CurrencyCode": "USD", "MonetaryValue": "15.10"}}}}}`,
	"void-shipment": `{"VoidShipmentResponse": {
	  "Response": {"ResponseStatus": {"Code": "1", "Description": "Success"}},
	  "SummaryResult": {"Status": {"Code": "1", "Description": "Voided"}}}}`,
}

func newGatewayServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := gatewayFixtures[path.Base(r.URL.Path)]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "unknown operation"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ==================== 测试辅助 ====================

type wizardEnv struct {
	router *gin.Engine
	token  string
	repo   repository.ShipmentRepository
}

func setupWizardEnv(t *testing.T) *wizardEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.ShipmentRecord{}, &model.ShipmentPackage{}))

	repo := repository.NewShipmentRepository(db)
	gw := gateway.NewClient(gateway.Config{BaseURL: newGatewayServer(t).URL, Timeout: 5 * time.Second})
	shipments := service.NewShipmentService(repo)
	wizardSvc := service.NewWizardService(service.NewSessionService(time.Minute), gw, shipments, nil)

	wc := NewWizardController(wizardSvc)
	sc := NewShipmentController(shipments)

	r := gin.New()
	api := r.Group("/api", middleware.CustomerAuth())
	wz := api.Group("/wizard/:shipperId")
	{
		wz.POST("/open", wc.Open)
		wz.GET("", wc.Get)
		wz.DELETE("", wc.Close)
		wz.POST("/navigate", wc.Navigate)
		wz.POST("/carrier", wc.SelectCarrier)
		wz.POST("/billing-type", wc.SelectBillingType)
		wz.POST("/account", wc.ToggleAccount)
		wz.POST("/bill-to", wc.ToggleBillTo)
		wz.POST("/service", wc.ToggleService)
		wz.POST("/package", wc.TogglePackage)
		wz.PUT("/address", wc.UpdateAddress)
		wz.POST("/address/validate", wc.ValidateAddress)
		wz.POST("/rate", wc.FetchRate)
		wz.POST("/shipment", wc.CreateShipment)
		wz.POST("/void/confirm", wc.OpenVoidConfirm)
		wz.POST("/void", wc.VoidShipment)
	}
	api.GET("/shipments", sc.List)
	api.GET("/shipments/:id", sc.GetByID)

	token, err := middleware.GenerateAccessToken("c-ctl", "")
	require.NoError(t, err)
	return &wizardEnv{router: r, token: token, repo: repo}
}

type apiResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (e *wizardEnv) do(t *testing.T, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// step 调用向导接口并要求 200
func (e *wizardEnv) step(t *testing.T, method, op string, body any) service.WizardView {
	t.Helper()
	w := e.do(t, method, "/api/wizard/s-1"+op, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp apiResponse[service.WizardView]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

// ==================== 测试用例 ====================

func TestWizardController_FullFlow(t *testing.T) {
	env := setupWizardEnv(t)
	next := gin.H{"direction": "next"}

	v := env.step(t, http.MethodPost, "/open", nil)
	assert.Equal(t, wizard.PageCarrierSelect, v.State.ModalPage)
	assert.Len(t, v.State.EnabledCarriers, 2)

	env.step(t, http.MethodPost, "/carrier", gin.H{"name": "UPS"})
	env.step(t, http.MethodPost, "/navigate", next)
	env.step(t, http.MethodPost, "/billing-type", gin.H{"billing_type": "BILL_RECEIVER"})
	v = env.step(t, http.MethodPost, "/navigate", next)
	require.Equal(t, wizard.PageBilling, v.State.ModalPage)
	require.Len(t, v.State.BillTos, 1)

	env.step(t, http.MethodPost, "/account", gin.H{"carrier": "ups", "account_number": "A100"})
	env.step(t, http.MethodPost, "/bill-to", gin.H{"carrier": "ups", "account_number": "R200", "postal_code": "10001"})
	env.step(t, http.MethodPost, "/navigate", next)
	env.step(t, http.MethodPost, "/service", gin.H{"carrier": "ups", "code": "03"})
	env.step(t, http.MethodPost, "/navigate", next)
	env.step(t, http.MethodPost, "/package", gin.H{"carrier": "ups", "code": "02"})
	v = env.step(t, http.MethodPost, "/navigate", next)
	require.Equal(t, wizard.PageAddress, v.State.ModalPage)

	env.step(t, http.MethodPut, "/address", gin.H{
		"address_line1": "26601 Aliso Creek Rd",
		"city":          "Aliso Viejo",
		"region":        "CA",
		"postal_code":   "92656",
		"country_code":  "US",
	})
	v = env.step(t, http.MethodPost, "/address/validate", nil)
	require.True(t, v.State.ValidatedAddress.IsValid())

	w := env.do(t, http.MethodPost, "/api/wizard/s-1/rate", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "非寄件方付费不报价")

	v = env.step(t, http.MethodPost, "/navigate", next)
	require.Equal(t, wizard.PageShipmentConfirmation, v.State.ModalPage)
	require.NotNil(t, v.State.ShipmentConfirmation)
	assert.Equal(t, []string{"1Z12345E0205271688"}, v.State.ShipmentConfirmation.TrackingNumbers)
	require.NotZero(t, v.ShipmentRecordID)

	w = env.do(t, http.MethodPost, "/api/wizard/s-1/shipment", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "运单已创建")

	w = env.do(t, http.MethodPost, "/api/wizard/s-1/void", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "未确认不能取消")

	env.step(t, http.MethodPost, "/void/confirm", nil)
	v = env.step(t, http.MethodPost, "/void", nil)
	require.NotNil(t, v.State.VoidShipmentConfirmation)
	assert.True(t, v.State.VoidShipmentConfirmation.Success)

	// 运单历史
	w = env.do(t, http.MethodGet, "/api/shipments?shipper_id=s-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list apiResponse[struct {
		List []struct {
			ID          int64  `json:"id"`
			Status      string `json:"status"`
			CarrierName string `json:"carrier_name"`
			TotalCharge string `json:"total_charge"`
		} `json:"list"`
		Total int64 `json:"total"`
	}]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, int64(1), list.Data.Total)
	assert.Equal(t, model.ShipmentStatusVoided, list.Data.List[0].Status)
	assert.Equal(t, "UPS", list.Data.List[0].CarrierName)
	assert.Equal(t, "16.30", list.Data.List[0].TotalCharge)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/shipments/%d", list.Data.List[0].ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/api/wizard/s-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/wizard/s-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWizardController_Errors(t *testing.T) {
	env := setupWizardEnv(t)

	tests := []struct {
		name       string
		method     string
		url        string
		body       any
		wantStatus int
	}{
		{"会话不存在", http.MethodGet, "/api/wizard/s-9", nil, http.StatusNotFound},
		{"未知方向", http.MethodPost, "/api/wizard/s-1/navigate", gin.H{"direction": "up"}, http.StatusBadRequest},
		{"缺少参数", http.MethodPost, "/api/wizard/s-1/account", gin.H{}, http.StatusBadRequest},
		{"地址缺少国家", http.MethodPut, "/api/wizard/s-1/address", gin.H{"address_line1": "x", "city": "y", "postal_code": "1"}, http.StatusBadRequest},
		{"无效运单ID", http.MethodGet, "/api/shipments/abc", nil, http.StatusBadRequest},
		{"运单不存在", http.MethodGet, "/api/shipments/999", nil, http.StatusNotFound},
		{"分页超限", http.MethodGet, "/api/shipments?page_size=1000", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.url, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	env.step(t, http.MethodPost, "/open", nil)
	w := env.do(t, http.MethodPost, "/api/wizard/s-1/navigate", gin.H{"direction": "next"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "未选择承运商")
	w = env.do(t, http.MethodPost, "/api/wizard/s-1/navigate", gin.H{"direction": "back"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "第一页不能后退")
	w = env.do(t, http.MethodPost, "/api/wizard/s-1/carrier", gin.H{"name": "DHL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWizardController_RequiresAuth(t *testing.T) {
	env := setupWizardEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/wizard/s-1/open", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrShipmentNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: 缺少 service", wizard.ErrValidationIncomplete), http.StatusUnprocessableEntity},
		{wizard.ErrPageOutOfRange, http.StatusBadRequest},
		{service.ErrRowNotFound, http.StatusBadRequest},
		{service.ErrBusy, http.StatusConflict},
		{service.ErrStaleContext, http.StatusConflict},
		{fmt.Errorf("创建运单失败: %w", &gateway.GatewayError{StatusCode: 500, Message: "boom"}), http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err), tt.err.Error())
	}
}
