package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"carrier_wizard_v1/pkg/logger"
)

// RequestLogger 访问日志，5xx 记为 error，4xx 记为 warn
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		}
		if cc, ok := GetCustomer(c); ok {
			fields = append(fields, "customer_id", cc.CustomerID, "shipper_id", cc.ShipperID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.L().Errorw("[HTTP] 请求失败", fields...)
		case status >= 400:
			logger.L().Warnw("[HTTP] 请求被拒绝", fields...)
		default:
			logger.L().Infow("[HTTP] 请求完成", fields...)
		}
	}
}
