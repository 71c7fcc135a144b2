package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"carrier_wizard_v1/internal/wizard"
	"carrier_wizard_v1/pkg/logger"
)

// Config 网关配置
type Config struct {
	BaseURL string // e.g. http://localhost:8081
	APIKey  string
	Timeout time.Duration
}

// 网关操作名，对应 /transform/{service}/{type}
const (
	opEnabledCarriers = "enabled-carriers"
	opContainers      = "containers"
	opAccounts        = "integrated-shipping-accounts"
	opBillTos         = "customer-address-provider-accounts"
	opServices        = "integrated-shipping-services"
	opPackages        = "integrated-shipping-packages"
	opImageTypes      = "image-types"
	opStockTypes      = "stock-types"
	opValidateAddress = "validate-address"
	opUpdateAddress   = "update-customer-address"
	opRate            = "rate"
	opSyncShipment    = "sync-shipment"
	opVoidShipment    = "void-shipment"

	// serviceCustomer 与承运商无关的操作
	serviceCustomer = "customer"
)

// Client CarrierGateway 的 HTTP 实现
type Client struct {
	config Config
	http   *resty.Client
}

var _ CarrierGateway = (*Client)(nil)

// NewClient 创建网关客户端，不做自动重试
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetHeader("X-Api-Key", cfg.APIKey)
	}
	return &Client{config: cfg, http: httpClient}
}

// envelope 请求体
type envelope struct {
	CustomerID string `json:"customer_id"`
	ShipperID  string `json:"shipper_id"`
	Params     any    `json:"params,omitempty"`
}

// ==================== 参考数据 ====================

// GetEnabledCarriers 客户启用的承运商
func (c *Client) GetEnabledCarriers(ctx context.Context, cc CustomerContext) ([]wizard.CarrierProfile, error) {
	var rows []wizard.CarrierProfile
	if err := c.fetchRows(ctx, cc, serviceCustomer, opEnabledCarriers, nil, &rows); err != nil {
		return nil, fmt.Errorf("获取承运商失败: %w", err)
	}
	return rows, nil
}

// GetContainers 客户预设容器
func (c *Client) GetContainers(ctx context.Context, cc CustomerContext) ([]wizard.Container, error) {
	var rows []wizard.Container
	if err := c.fetchRows(ctx, cc, serviceCustomer, opContainers, nil, &rows); err != nil {
		return nil, fmt.Errorf("获取容器失败: %w", err)
	}
	return rows, nil
}

// GetIntegratedShippingAccounts 付款账号
func (c *Client) GetIntegratedShippingAccounts(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.Account, error) {
	var rows []wizard.Account
	if err := c.fetchRows(ctx, cc, carrier, opAccounts, nil, &rows); err != nil {
		return nil, fmt.Errorf("获取付款账号失败: %w", err)
	}
	for i := range rows {
		rows[i].Carrier = nonEmpty(rows[i].Carrier, carrier)
	}
	return rows, nil
}

// GetCustomerAddressIntegratedShippingProviderAccounts bill-to 账号
func (c *Client) GetCustomerAddressIntegratedShippingProviderAccounts(ctx context.Context, cc CustomerContext, carrier string, billingType wizard.BillingType) ([]wizard.BillTo, error) {
	var rows []wizard.BillTo
	params := map[string]any{"billing_type": billingType}
	if err := c.fetchRows(ctx, cc, carrier, opBillTos, params, &rows); err != nil {
		return nil, fmt.Errorf("获取 bill-to 账号失败: %w", err)
	}
	for i := range rows {
		rows[i].Carrier = nonEmpty(rows[i].Carrier, carrier)
	}
	return rows, nil
}

// GetIntegratedShippingServices 承运商服务
func (c *Client) GetIntegratedShippingServices(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.Service, error) {
	var rows []wizard.Service
	if err := c.fetchRows(ctx, cc, carrier, opServices, nil, &rows); err != nil {
		return nil, fmt.Errorf("获取服务失败: %w", err)
	}
	for i := range rows {
		rows[i].Carrier = nonEmpty(rows[i].Carrier, carrier)
	}
	return rows, nil
}

// GetIntegratedShippingPackages 包裹类型
func (c *Client) GetIntegratedShippingPackages(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.Package, error) {
	var rows []wizard.Package
	if err := c.fetchRows(ctx, cc, carrier, opPackages, nil, &rows); err != nil {
		return nil, fmt.Errorf("获取包裹失败: %w", err)
	}
	for i := range rows {
		rows[i].Carrier = nonEmpty(rows[i].Carrier, carrier)
	}
	return rows, nil
}

// GetCarrierImageTypes 面单图像类型（仅 FedEx）
func (c *Client) GetCarrierImageTypes(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.LabelOption, error) {
	var rows []wizard.LabelOption
	if err := c.fetchRows(ctx, cc, carrier, opImageTypes, nil, &rows); err != nil {
		return nil, fmt.Errorf("获取面单图像类型失败: %w", err)
	}
	return rows, nil
}

// GetCarrierStockTypes 面单纸张类型（仅 FedEx）
func (c *Client) GetCarrierStockTypes(ctx context.Context, cc CustomerContext, carrier string) ([]wizard.LabelOption, error) {
	var rows []wizard.LabelOption
	if err := c.fetchRows(ctx, cc, carrier, opStockTypes, nil, &rows); err != nil {
		return nil, fmt.Errorf("获取面单纸张类型失败: %w", err)
	}
	return rows, nil
}

// ==================== 业务操作 ====================

// ValidateAddress 地址校验，返回承运商原始报文
func (c *Client) ValidateAddress(ctx context.Context, cc CustomerContext, carrier string, req AddressRequest) ([]byte, error) {
	raw, err := c.post(ctx, cc, carrier, opValidateAddress, req)
	if err != nil {
		return nil, fmt.Errorf("地址校验失败: %w", err)
	}
	return raw, nil
}

// UpdateIntegratedShippingCustomerAddress 保存客户地址
func (c *Client) UpdateIntegratedShippingCustomerAddress(ctx context.Context, cc CustomerContext, carrier string, req AddressRequest) error {
	if _, err := c.post(ctx, cc, carrier, opUpdateAddress, req); err != nil {
		return fmt.Errorf("更新客户地址失败: %w", err)
	}
	return nil
}

// GetRate 运费报价
func (c *Client) GetRate(ctx context.Context, cc CustomerContext, carrier string, req ShipmentRequest) ([]byte, error) {
	raw, err := c.post(ctx, cc, carrier, opRate, req)
	if err != nil {
		return nil, fmt.Errorf("获取运费报价失败: %w", err)
	}
	return raw, nil
}

// SyncShipment 创建运单
func (c *Client) SyncShipment(ctx context.Context, cc CustomerContext, carrier string, req ShipmentRequest) ([]byte, error) {
	raw, err := c.post(ctx, cc, carrier, opSyncShipment, req)
	if err != nil {
		return nil, fmt.Errorf("创建运单失败: %w", err)
	}
	return raw, nil
}

// VoidShipment 取消运单
func (c *Client) VoidShipment(ctx context.Context, cc CustomerContext, carrier string, req VoidRequest) ([]byte, error) {
	raw, err := c.post(ctx, cc, carrier, opVoidShipment, req)
	if err != nil {
		return nil, fmt.Errorf("取消运单失败: %w", err)
	}
	return raw, nil
}

// ==================== HTTP 请求封装 ====================

// fetchRows 参考数据接口返回数组或 {data: [...]}
func (c *Client) fetchRows(ctx context.Context, cc CustomerContext, service, op string, params any, out any) error {
	raw, err := c.post(ctx, cc, service, op, params)
	if err != nil {
		return err
	}

	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	body := raw
	if json.Unmarshal(raw, &wrapped) == nil && len(wrapped.Data) > 0 {
		body = wrapped.Data
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, cc CustomerContext, service, op string, params any) ([]byte, error) {
	path := fmt.Sprintf("/transform/%s/%s", strings.ToLower(service), op)

	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Customer-Id", cc.CustomerID).
		SetBody(envelope{CustomerID: cc.CustomerID, ShipperID: cc.ShipperID, Params: params})
	if cc.Token != "" {
		req.SetAuthToken(cc.Token)
	}

	start := time.Now()
	resp, err := req.Post(path)
	if err != nil {
		logger.Warnf("[CarrierGateway] %s 请求失败: %v", path, err)
		return nil, &GatewayError{Message: err.Error(), cause: err}
	}
	logger.Debugf("[CarrierGateway] %s -> %d (%s)", path, resp.StatusCode(), time.Since(start))

	if resp.IsError() {
		return nil, newResponseError(resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}
