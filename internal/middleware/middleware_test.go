package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carrier_wizard_v1/internal/gateway"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(CustomerAuth())
	r.GET("/me", func(c *gin.Context) {
		cc, _ := GetCustomer(c)
		c.JSON(http.StatusOK, cc)
	})
	r.GET("/shippers/:shipperId/me", func(c *gin.Context) {
		cc, _ := GetCustomer(c)
		c.JSON(http.StatusOK, cc)
	})
	r.POST("/submit", SubmitCooldown(SubmitOpShipment, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestCustomerAuth(t *testing.T) {
	token, err := GenerateAccessToken("c-1", "s-default")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		shipper    string
		wantStatus int
		wantBody   string
	}{
		{"缺少认证", "", "", http.StatusUnauthorized, ""},
		{"格式错误", "Token " + token, "", http.StatusUnauthorized, ""},
		{"无效 Token", "Bearer abc.def.ghi", "", http.StatusUnauthorized, ""},
		{"默认发货人", "Bearer " + token, "", http.StatusOK, `{"customer_id":"c-1","shipper_id":"s-default"}`},
		{"请求头切换发货人", "Bearer " + token, "s-2", http.StatusOK, `{"customer_id":"c-1","shipper_id":"s-2"}`},
	}

	r := newAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.shipper != "" {
				req.Header.Set(HeaderShipperID, tt.shipper)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestCustomerAuth_PathShipperWins(t *testing.T) {
	token, err := GenerateAccessToken("c-1", "s-default")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/shippers/s-path/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderShipperID, "s-header")
	w := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"customer_id":"c-1","shipper_id":"s-path"}`, w.Body.String())
}

func TestCustomerAuth_MissingShipper(t *testing.T) {
	token, err := GenerateAccessToken("c-1", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitCooldown(t *testing.T) {
	token, err := GenerateAccessToken("c-cooldown", "s-1")
	require.NoError(t, err)
	r := newAuthRouter()

	send := func(shipper string) int {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(HeaderShipperID, shipper)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send("s-1"))
	assert.Equal(t, http.StatusTooManyRequests, send("s-1"), "冷却期内拒绝")
	assert.Equal(t, http.StatusNoContent, send("s-2"), "不同发货人互不影响")

	GetLimiter().Reset(SubmitKey("c-cooldown", "s-1", SubmitOpShipment))
	assert.Equal(t, http.StatusNoContent, send("s-1"))
}

func TestCooldownLimiter(t *testing.T) {
	l := &CooldownLimiter{}

	assert.True(t, l.Check("k", time.Hour).Allowed)
	res := l.Check("k", time.Hour)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, 59*time.Minute)
	assert.False(t, l.CheckOnly("k", time.Hour).Allowed)
	assert.True(t, l.CheckOnly("other", time.Hour).Allowed)

	assert.True(t, l.Check("k", 0).Allowed, "间隔为 0 时总是放行")

	assert.Equal(t, 0, l.Sweep(time.Hour))
	assert.Equal(t, 1, l.Sweep(0))
	assert.True(t, l.CheckOnly("k", time.Hour).Allowed)
}

type auditedRow struct {
	ID        int64 `gorm:"primaryKey"`
	Name      string
	CreatedBy string
	UpdatedBy string
}

func TestAuditCallbacks(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&auditedRow{}))
	require.NoError(t, RegisterAuditCallbacks(db))

	ctx := WithAuditInfo(context.Background(), "c-1", "s-1")
	row := &auditedRow{Name: "a"}
	require.NoError(t, db.WithContext(ctx).Create(row).Error)
	assert.Equal(t, "c-1", row.CreatedBy)

	ctx2 := WithAuditInfo(context.Background(), "c-2", "s-1")
	require.NoError(t, db.WithContext(ctx2).Model(&auditedRow{}).Where("id = ?", row.ID).
		Updates(map[string]interface{}{"name": "b"}).Error)

	var got auditedRow
	require.NoError(t, db.First(&got, row.ID).Error)
	assert.Equal(t, "c-1", got.CreatedBy)
	assert.Equal(t, "c-2", got.UpdatedBy)

	plain := &auditedRow{Name: "no-ctx"}
	require.NoError(t, db.Create(plain).Error)
	assert.Empty(t, plain.CreatedBy)
}

func TestAuditContext(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextKeyCustomer, gateway.CustomerContext{CustomerID: "c-9", ShipperID: "s-9"})
	}, AuditContext())
	var info *AuditInfo
	r.GET("/", func(c *gin.Context) {
		info = GetAuditInfo(c.Request.Context())
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, info)
	assert.Equal(t, "c-9", info.CustomerID)
}
