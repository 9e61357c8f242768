package api

import (
	"net/http"
	"testing"

	"globfam/config"
	"globfam/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig(t)

	r := newAuthRouter(cfg)

	body := `{"name":"Ana Silva","email":"Ana@Example.com","password":"password123","base_currency":"BRL","country":"br","locale":"pt-BR"}`
	w := doJSON(r, http.MethodPost, "/register", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg AuthResponse
	env := decode(t, w, &reg)
	assert.True(t, env.Success)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "ana@example.com", reg.User.Email)
	assert.Equal(t, models.RoleOwner, reg.User.Role)
	require.NotNil(t, reg.Organization)
	assert.Equal(t, "Ana Silva's family", reg.Organization.Name)
	assert.Equal(t, "BRL", reg.Organization.BaseCurrency)
	assert.Equal(t, "BR", reg.Organization.Country)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "globfam_session=")

	// 注册时写入默认预算分类
	var cats int64
	require.NoError(t, db.Model(&models.BudgetCategory{}).Where("organization_id = ?", reg.Organization.ID).Count(&cats).Error)
	assert.Greater(t, cats, int64(0))

	// 重复邮箱
	w = doJSON(r, http.MethodPost, "/register", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 登录成功
	w = doJSON(r, http.MethodPost, "/login", `{"email":"ana@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login AuthResponse
	decode(t, w, &login)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, reg.User.ID, login.User.ID)

	// 密码错误
	w = doJSON(r, http.MethodPost, "/login", `{"email":"ana@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env = decode(t, w, nil)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid email or password", env.Error.Message)
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	setupTestDB(t)
	cfg := testConfig(t)
	r := newAuthRouter(cfg)

	w := doJSON(r, http.MethodPost, "/register", `{"name":"Ana","email":"not-an-email","password":"short","base_currency":"usd"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "email")
	assert.Contains(t, env.Error.Fields, "password")
	assert.Contains(t, env.Error.Fields, "base_currency")
}

func TestAuthHandler_Login_Locked(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig(t)
	f := seedFixture(t, db, "locked@example.com")
	require.NoError(t, db.Model(&f.user).Update("status", models.UserStatusLocked).Error)

	r := newAuthRouter(cfg)
	w := doJSON(r, http.MethodPost, "/login", `{"email":"locked@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthHandler_Login_UserNotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := testConfig(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := newAuthRouter(cfg)
	w := doJSON(r, http.MethodPost, "/login", `{"email":"nobody@example.com","password":"password123"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_ProfileAndPassword(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig(t)
	f := seedFixture(t, db, "ana@example.com")

	r := f.router()
	h := NewAuthHandler(cfg)
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.UpdateProfile)
	r.PUT("/password", h.ChangePassword)

	w := doJSON(r, http.MethodPut, "/profile", `{"name":"Ana S.","locale":"en-AU","currency":"USD"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodGet, "/profile", "")
	var user models.User
	decode(t, w, &user)
	assert.Equal(t, "Ana S.", user.Name)
	assert.Equal(t, "en-AU", user.Locale)
	assert.Equal(t, "USD", user.Currency)

	w = doJSON(r, http.MethodPut, "/profile", `{"locale":"not a locale!"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/password", `{"old_password":"wrong-password","new_password":"newpassword123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPut, "/password", `{"old_password":"password123","new_password":"newpassword123"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	login := newAuthRouter(cfg)
	w = doJSON(login, http.MethodPost, "/login", `{"email":"ana@example.com","password":"newpassword123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func newAuthRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	h := NewAuthHandler(cfg)
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	return r
}
