package middleware

import (
	"context"
	"reflect"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ==================== 审计上下文 ====================

type auditContextKey struct{}

// AuditInfo 审计信息
type AuditInfo struct {
	CustomerID string
	ShipperID  string
}

// WithAuditInfo 注入审计信息到 context
func WithAuditInfo(ctx context.Context, customerID, shipperID string) context.Context {
	return context.WithValue(ctx, auditContextKey{}, &AuditInfo{
		CustomerID: customerID,
		ShipperID:  shipperID,
	})
}

// GetAuditInfo 从 context 获取审计信息
func GetAuditInfo(ctx context.Context) *AuditInfo {
	if ctx == nil {
		return nil
	}
	if info, ok := ctx.Value(auditContextKey{}).(*AuditInfo); ok {
		return info
	}
	return nil
}

// AuditContext 将客户信息注入 request context，供 GORM 回调使用
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cc, ok := GetCustomer(c); ok && cc.CustomerID != "" {
			ctx := WithAuditInfo(c.Request.Context(), cc.CustomerID, cc.ShipperID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// ==================== GORM 回调 ====================

// RegisterAuditCallbacks 在 Create/Update 时填充 CreatedBy/UpdatedBy
func RegisterAuditCallbacks(db *gorm.DB) error {
	err := db.Callback().Create().Before("gorm:create").Register("audit:create", func(tx *gorm.DB) {
		info := GetAuditInfo(tx.Statement.Context)
		if info == nil {
			return
		}
		setAuditField(tx, "CreatedBy", info.CustomerID)
		setAuditField(tx, "UpdatedBy", info.CustomerID)
	})
	if err != nil {
		return err
	}

	return db.Callback().Update().Before("gorm:update").Register("audit:update", func(tx *gorm.DB) {
		info := GetAuditInfo(tx.Statement.Context)
		if info == nil || tx.Statement.Schema == nil {
			return
		}
		// map 更新同样生效
		if tx.Statement.Schema.LookUpField("UpdatedBy") != nil {
			tx.Statement.SetColumn("UpdatedBy", info.CustomerID)
		}
	})
}

// setAuditField 字段为空时设置
func setAuditField(tx *gorm.DB, fieldName string, value string) {
	if tx.Statement.Schema == nil {
		return
	}

	field := tx.Statement.Schema.LookUpField(fieldName)
	if field == nil {
		return
	}

	switch tx.Statement.ReflectValue.Kind() {
	case reflect.Struct:
		if _, isZero := field.ValueOf(tx.Statement.Context, tx.Statement.ReflectValue); isZero {
			_ = field.Set(tx.Statement.Context, tx.Statement.ReflectValue, value)
		}
	case reflect.Slice:
		for i := 0; i < tx.Statement.ReflectValue.Len(); i++ {
			rv := reflect.Indirect(tx.Statement.ReflectValue.Index(i))
			if _, isZero := field.ValueOf(tx.Statement.Context, rv); isZero {
				_ = field.Set(tx.Statement.Context, rv, value)
			}
		}
	}
}
