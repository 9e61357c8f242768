package api

import (
	"net/http"
	"testing"

	"globfam/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func organizationRouter(f fixture) *gin.Engine {
	r := f.router()
	h := NewOrganizationHandler()
	r.GET("/organization", h.Get)
	r.GET("/organization/members", h.ListMembers)
	r.POST("/organization/members", h.AddMember)
	return r
}

func TestOrganizationHandler_Members(t *testing.T) {
	db := setupTestDB(t)
	testConfig(t)
	f := seedFixture(t, db, "ana@example.com")
	other := seedFixture(t, db, "bob@example.com")
	r := organizationRouter(f)

	w := doJSON(r, http.MethodGet, "/organization", "")
	require.Equal(t, http.StatusOK, w.Code)
	var org models.Organization
	decode(t, w, &org)
	assert.Equal(t, f.org.ID, org.ID)
	assert.Equal(t, "AUD", org.BaseCurrency)

	w = doJSON(r, http.MethodPost, "/organization/members",
		`{"name":"Leo Silva","email":"Leo@Example.com","password":"password123","role":"VIEWER"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var member models.User
	decode(t, w, &member)
	assert.Equal(t, "leo@example.com", member.Email)
	assert.Equal(t, models.RoleViewer, member.Role)
	assert.Equal(t, f.org.ID, member.OrganizationID)
	assert.Equal(t, "AUD", member.Currency)
	assert.NotContains(t, w.Body.String(), "password123")

	// 邮箱全局唯一
	w = doJSON(r, http.MethodPost, "/organization/members",
		`{"name":"Bob","email":"bob@example.com","password":"password123","role":"MEMBER"}`)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPost, "/organization/members",
		`{"name":"X","email":"x@example.com","password":"short","role":"ADMIN"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "password")
	assert.Contains(t, env.Error.Fields, "role")

	w = doJSON(r, http.MethodGet, "/organization/members", "")
	require.Equal(t, http.StatusOK, w.Code)
	var members []models.User
	decode(t, w, &members)
	require.Len(t, members, 2)
	for _, m := range members {
		assert.NotEqual(t, other.user.ID, m.ID)
	}
}
