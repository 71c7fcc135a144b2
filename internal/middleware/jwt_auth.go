package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"carrier_wizard_v1/internal/gateway"
)

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey      string        // 签名密钥
	AccessTokenTTL time.Duration // Access Token 有效期
	Issuer         string        // 签发者
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey:      "carrier-wizard-secret-key-change-in-production",
		AccessTokenTTL: 2 * time.Hour,
		Issuer:         "carrier-wizard",
	}
}

// 全局配置
var jwtConfig = DefaultJWTConfig()

// SetJWTConfig 设置 JWT 配置
func SetJWTConfig(cfg *JWTConfig) {
	jwtConfig = cfg
}

// GetJWTConfig 获取 JWT 配置
func GetJWTConfig() *JWTConfig {
	return jwtConfig
}

// ==================== Claims 定义 ====================

// CustomerClaims 客户声明，shipper_id 为默认发货人
type CustomerClaims struct {
	CustomerID string `json:"customer_id"`
	ShipperID  string `json:"shipper_id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken 签发 Access Token
func GenerateAccessToken(customerID, shipperID string) (string, error) {
	now := time.Now()
	claims := &CustomerClaims{
		CustomerID: customerID,
		ShipperID:  shipperID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtConfig.Issuer,
			Subject:   "access",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtConfig.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.SecretKey))
}

// ParseToken 解析 Token
func ParseToken(tokenString string) (*CustomerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(jwtConfig.SecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomerClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ==================== Gin 中间件 ====================

// HeaderShipperID 切换发货人
const HeaderShipperID = "X-Shipper-Id"

// ParamShipperID 路由中的发货人参数
const ParamShipperID = "shipperId"

// Context Keys
const (
	ContextKeyCustomer = "customer"
	ContextKeyClaims   = "claims"
)

// CustomerAuth 认证中间件，注入客户上下文
// 发货人依次取路径参数 :shipperId、X-Shipper-Id 请求头、Token 中的默认发货人
func CustomerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "未提供认证信息")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "认证格式错误，应为 Bearer {token}")
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			abort(c, http.StatusUnauthorized, "Token 无效或已过期")
			return
		}
		if claims.Subject != "access" {
			abort(c, http.StatusUnauthorized, "Token 类型错误")
			return
		}
		if claims.CustomerID == "" {
			abort(c, http.StatusUnauthorized, "Token 缺少客户信息")
			return
		}

		shipperID := strings.TrimSpace(c.Param(ParamShipperID))
		if shipperID == "" {
			shipperID = strings.TrimSpace(c.GetHeader(HeaderShipperID))
		}
		if shipperID == "" {
			shipperID = claims.ShipperID
		}
		if shipperID == "" {
			abort(c, http.StatusBadRequest, "缺少发货人")
			return
		}

		c.Set(ContextKeyCustomer, gateway.CustomerContext{
			CustomerID: claims.CustomerID,
			ShipperID:  shipperID,
			Token:      parts[1],
		})
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
	c.Abort()
}

// ==================== 辅助函数 ====================

// GetCustomer 从 Context 获取客户上下文
func GetCustomer(c *gin.Context) (gateway.CustomerContext, bool) {
	if v, exists := c.Get(ContextKeyCustomer); exists {
		cc, ok := v.(gateway.CustomerContext)
		return cc, ok
	}
	return gateway.CustomerContext{}, false
}

// GetCustomerClaims 从 Context 获取完整 Claims
func GetCustomerClaims(c *gin.Context) *CustomerClaims {
	if claims, exists := c.Get(ContextKeyClaims); exists {
		return claims.(*CustomerClaims)
	}
	return nil
}
