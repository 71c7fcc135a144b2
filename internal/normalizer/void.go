package normalizer

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// ==================== 取消运单 ====================

// 取消结果状态码（FedEx 与无法识别的报文没有原生状态码）
const (
	VoidStatusCancelled    = "CANCELLED"
	VoidStatusNotCancelled = "NOT_CANCELLED"
	VoidStatusUnrecognized = "UNRECOGNIZED"
)

// Alert 承运商提示信息
type Alert struct {
	Code    string `json:"code"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// VoidResult 归一化后的取消结果
type VoidResult struct {
	Schema            Schema          `json:"schema"`
	Success           bool            `json:"success"`
	StatusCode        string          `json:"status_code"`
	StatusDescription string          `json:"status_description"`
	TransactionID     string          `json:"transaction_id,omitempty"`
	Alerts            []Alert         `json:"alerts,omitempty"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

// NormalizeVoidResult 归一化取消运单报文，永不失败
func NormalizeVoidResult(raw []byte) *VoidResult {
	switch DetectSchema(raw, upsVoidRoot) {
	case SchemaFedEx:
		return fedexVoid(raw)
	case SchemaUPS:
		return upsVoid(raw)
	default:
		return &VoidResult{
			Schema:            SchemaUnknown,
			StatusCode:        VoidStatusUnrecognized,
			StatusDescription: ErrUnrecognizedSchema.Error(),
			Raw:               rawCopy(raw),
		}
	}
}

// fedexVoid transactionId + output.cancelledShipment/cancelledHistory + alerts[]
func fedexVoid(raw []byte) *VoidResult {
	output := gjson.GetBytes(raw, "output")
	result := &VoidResult{
		Schema:        SchemaFedEx,
		Success:       output.Get("cancelledShipment").Bool(),
		TransactionID: gjson.GetBytes(raw, "transactionId").String(),
		Raw:           rawCopy(raw),
	}

	for _, a := range asArray(gjson.GetBytes(raw, "alerts")) {
		result.Alerts = append(result.Alerts, Alert{
			Code:    a.Get("code").String(),
			Type:    a.Get("alertType").String(),
			Message: a.Get("message").String(),
		})
	}
	for _, a := range asArray(output.Get("alerts")) {
		result.Alerts = append(result.Alerts, Alert{
			Code:    a.Get("code").String(),
			Type:    a.Get("alertType").String(),
			Message: a.Get("message").String(),
		})
	}

	if result.Success {
		result.StatusCode = VoidStatusCancelled
		result.StatusDescription = firstNonEmpty(output.Get("message").String(), "Shipment cancelled")
		if output.Get("cancelledHistory").Bool() {
			result.StatusDescription += " (history removed)"
		}
		return result
	}

	result.StatusCode = VoidStatusNotCancelled
	desc := output.Get("message").String()
	if desc == "" && len(result.Alerts) > 0 {
		desc = result.Alerts[0].Message
		if result.Alerts[0].Code != "" {
			result.StatusCode = result.Alerts[0].Code
		}
	}
	result.StatusDescription = firstNonEmpty(desc, "Shipment not cancelled")
	return result
}

// upsVoid VoidShipmentResponse.Response.ResponseStatus 与 SummaryResult.Status，Code=1 为成功
func upsVoid(raw []byte) *VoidResult {
	root := gjson.GetBytes(raw, upsVoidRoot)
	responseStatus := root.Get("Response.ResponseStatus")
	summary := root.Get("SummaryResult.Status")

	result := &VoidResult{
		Schema:        SchemaUPS,
		TransactionID: root.Get("Response.TransactionReference.CustomerContext").String(),
		Raw:           rawCopy(raw),
	}
	for _, a := range asArray(root.Get("Response.Alert")) {
		result.Alerts = append(result.Alerts, Alert{
			Code:    a.Get("Code").String(),
			Message: a.Get("Description").String(),
		})
	}

	responseOK := responseStatus.Get("Code").String() == "1"
	if summary.Exists() {
		result.Success = responseOK && summary.Get("Code").String() == "1"
		result.StatusCode = summary.Get("Code").String()
		result.StatusDescription = firstNonEmpty(summary.Get("Description").String(), responseStatus.Get("Description").String())
	} else {
		result.Success = responseOK
		result.StatusCode = responseStatus.Get("Code").String()
		result.StatusDescription = responseStatus.Get("Description").String()
	}
	return result
}
