package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// GatewayError 网关请求失败（网络错误或 HTTP 4xx/5xx）
// 响应体形如 {message, errors}，errors 可能是对象也可能是数组
type GatewayError struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Errors     json.RawMessage `json:"errors,omitempty"`
	cause      error
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("承运商网关请求失败: %s", e.Message)
	}
	return fmt.Sprintf("承运商网关错误 [%d]: %s", e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.cause }

// Detail 页面展示用的错误信息
// errors 为 {message} 时用其 message；为数组时逐条作为明细
func (e *GatewayError) Detail() (message string, details []string) {
	message = e.Message
	if len(e.Errors) == 0 || !gjson.ValidBytes(e.Errors) {
		return message, nil
	}

	parsed := gjson.ParseBytes(e.Errors)
	switch {
	case parsed.IsArray():
		for _, item := range parsed.Array() {
			if d := errorText(item); d != "" {
				details = append(details, d)
			}
		}
	case parsed.IsObject():
		if m := errorText(parsed); m != "" {
			message = m
		}
	case parsed.Type == gjson.String && parsed.Str != "":
		message = parsed.Str
	}
	return message, details
}

func errorText(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	for _, key := range []string{"message", "Message", "description", "Description"} {
		if v := r.Get(key).String(); v != "" {
			if code := r.Get("code").String(); code != "" {
				return code + ": " + v
			}
			return v
		}
	}
	return ""
}

// AsGatewayError 提取 GatewayError
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// newResponseError 解析失败响应
func newResponseError(status int, body []byte) *GatewayError {
	ge := &GatewayError{StatusCode: status}
	if gjson.ValidBytes(body) {
		root := gjson.ParseBytes(body)
		ge.Message = root.Get("message").String()
		if errs := root.Get("errors"); errs.Exists() {
			ge.Errors = json.RawMessage(errs.Raw)
		}
		if ge.Message == "" {
			ge.Message = root.Get("error").String()
		}
	}
	if ge.Message == "" {
		ge.Message = fmt.Sprintf("HTTP %d", status)
	}
	return ge
}
