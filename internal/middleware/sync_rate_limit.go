package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 防重复提交中间件 ====================

// SubmitCooldown 防重复提交，需放在 CustomerAuth 之后
//
// 使用示例:
//
//	wizard.POST("/shipment",
//	    middleware.SubmitCooldown(middleware.SubmitOpShipment, 0),
//	    wizardCtl.CreateShipment,
//	)
//
// 参数:
//   - op: 操作类型
//   - interval: 冷却间隔，0 表示使用默认值
func SubmitCooldown(op SubmitOp, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(op)
	}

	return func(c *gin.Context) {
		cc, ok := GetCustomer(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "未提供认证信息")
			return
		}

		result := GetLimiter().Check(SubmitKey(cc.CustomerID, cc.ShipperID, op), interval)
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after_ms": result.RetryAfter.Milliseconds(),
					"op":             op,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 1 {
		return "请求处理中，请稍后重试"
	}
	if seconds < 60 {
		return fmt.Sprintf("请求处理中，请 %d 秒后重试", seconds)
	}
	return fmt.Sprintf("请求处理中，请 %d 分 %d 秒后重试", seconds/60, seconds%60)
}
