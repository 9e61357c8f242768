package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"globfam/config"
	"globfam/database"
	"globfam/middleware"
	"globfam/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

// setupTestDB 使用内存 sqlite 替换全局 DB，适合多语句流程
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = oldDB
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "debug", MaxUploadMB: 1},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour, CookieName: "globfam_session"},
		Import: config.ImportConfig{BatchSize: 100, MaxErrors: 500, DefaultCurrency: "AUD", PreviewRows: 10},
	}
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	t.Cleanup(func() { config.GlobalConfig = nil })
	return cfg
}

// withIdentity 模拟 JWTAuth 写入的上下文
func withIdentity(userID, orgID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("organizationID", orgID)
		c.Set("role", role)
		c.Next()
	}
}

type fixture struct {
	org  models.Organization
	user models.User
}

// seedFixture 创建组织与所有者
func seedFixture(t *testing.T, db *gorm.DB, email string) fixture {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	f := fixture{org: models.Organization{Name: "Silva Family", BaseCurrency: "AUD", Country: "AU"}}
	require.NoError(t, db.Create(&f.org).Error)
	f.user = models.User{
		OrganizationID: f.org.ID,
		Name:           "Ana",
		Email:          email,
		Password:       string(hash),
		Role:           models.RoleOwner,
		Currency:       "AUD",
		Status:         models.UserStatusActive,
	}
	require.NoError(t, db.Create(&f.user).Error)
	return f
}

func createAsset(t *testing.T, db *gorm.DB, orgID uint, name, currency string, typ models.AssetType, balance string) models.Asset {
	bal := decimal.RequireFromString(balance)
	a := models.Asset{
		OrganizationID: orgID,
		CreatedBy:      1,
		Name:           name,
		Type:           typ,
		Currency:       currency,
		OpeningBalance: bal,
		Balance:        bal,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func (f fixture) router() *gin.Engine {
	r := gin.New()
	r.Use(withIdentity(f.user.ID, f.org.ID, f.user.Role))
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorBody      `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func assetBalance(t *testing.T, db *gorm.DB, id uint) decimal.Decimal {
	var a models.Asset
	require.NoError(t, db.Unscoped().First(&a, id).Error)
	return a.Balance
}
