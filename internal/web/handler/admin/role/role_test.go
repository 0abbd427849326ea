package role

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/auth"
	"github.com/silkcms/silk-admin/internal/config"
	"github.com/silkcms/silk-admin/internal/db/models"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	app         *fiber.App
	db          *gorm.DB
	authService *auth.Service
	bearer      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open sqlite in-memory db")

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserRole{},
		&models.AccessToken{},
	))

	cfg := &config.Config{
		Webserver: config.Webserver{
			Port: 8080,
			URL:  "http://localhost:8080",
		},
	}

	app := fiber.New()
	authService := auth.NewService(db)

	var svc Service
	svc.Init(app, cfg, db, authService)

	env := &testEnv{app: app, db: db, authService: authService}
	env.seedAdmin(t)

	return env
}

func (e *testEnv) seedAdmin(t *testing.T) {
	t.Helper()

	for _, group := range auth.DefaultPermissionGroups() {
		for _, name := range group.Items {
			require.NoError(t, e.db.Create(&models.Permission{
				Name:      name,
				GuardName: models.GuardAPI,
				Group:     group.Group,
			}).Error)
		}
	}

	role := models.Role{Name: models.RoleSuperAdministrator, GuardName: models.GuardAPI}
	require.NoError(t, e.db.Create(&role).Error)

	var permissionIDs []uint
	require.NoError(t, e.db.Model(&models.Permission{}).Pluck("id", &permissionIDs).Error)
	require.NoError(t, e.authService.SyncRolePermissions(role.ID, permissionIDs))

	admin := models.User{
		ID:       models.BootstrapAdminID,
		Name:     "Super Admin",
		Email:    "admin@admin.com",
		Password: models.HashPassword("changeme"),
		Enabled:  true,
	}
	require.NoError(t, e.db.Create(&admin).Error)
	require.NoError(t, e.db.Create(&models.UserRole{UserID: admin.ID, RoleID: role.ID}).Error)

	bearer, err := e.authService.IssueToken(admin.ID, "authToken")
	require.NoError(t, err)

	e.bearer = bearer
}

func (e *testEnv) request(t *testing.T, method, target string, body any, wantStatus int) envelope {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+e.bearer)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode)

	var out envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func (e *testEnv) createRole(t *testing.T, name string, permissions []string) *models.Role {
	t.Helper()

	out := e.request(t, http.MethodPost, RootPath+"/create", map[string]any{
		"name":        name,
		"permissions": permissions,
	}, http.StatusOK)
	require.True(t, out.Status, "create role failed: %s", out.Message)

	var role models.Role
	require.NoError(t, e.db.Where("name = ? AND guard_name = ?", name, models.GuardAPI).
		First(&role).Error)

	return &role
}

func TestListHidesReservedRoles(t *testing.T) {
	env := newTestEnv(t)
	env.createRole(t, "Editor", nil)

	require.NoError(t, env.db.Create(&models.Role{
		Name:      models.RoleCustomer,
		GuardName: models.GuardAPI,
	}).Error)

	out := env.request(t, http.MethodGet, RootPath+"/", nil, http.StatusOK)
	require.True(t, out.Status)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Editor", rows[0]["name"])
}

func TestListEmpty(t *testing.T) {
	env := newTestEnv(t)

	out := env.request(t, http.MethodGet, RootPath+"/", nil, http.StatusNotFound)

	assert.False(t, out.Status)
	assert.Equal(t, "No roles found!", out.Message)
}

func TestAllPermissionsGrouped(t *testing.T) {
	env := newTestEnv(t)

	out := env.request(t, http.MethodGet, RootPath+"/allPermissions", nil, http.StatusOK)
	require.True(t, out.Status)

	var groups []struct {
		Group       string           `json:"group"`
		Permissions []map[string]any `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &groups))
	require.Len(t, groups, 4)
	assert.Equal(t, "Users", groups[0].Group)
	assert.Len(t, groups[0].Permissions, 5)
}

func TestCreateDuplicateRole(t *testing.T) {
	env := newTestEnv(t)
	env.createRole(t, "Editor", nil)

	out := env.request(t, http.MethodPost, RootPath+"/create", map[string]any{
		"name": "Editor",
	}, http.StatusOK)

	assert.False(t, out.Status)
	assert.Equal(t, "Role already exists", out.Message)

	var count int64
	require.NoError(t, env.db.Model(&models.Role{}).
		Where("name = ?", "Editor").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateWithPermissionAll(t *testing.T) {
	env := newTestEnv(t)

	out := env.request(t, http.MethodPost, RootPath+"/create", map[string]any{
		"name":           "Operator",
		"permission_all": true,
	}, http.StatusOK)
	require.True(t, out.Status)

	var role models.Role
	require.NoError(t, env.db.Where("name = ?", "Operator").First(&role).Error)

	var total, granted int64
	require.NoError(t, env.db.Model(&models.Permission{}).Count(&total).Error)
	require.NoError(t, env.db.Model(&models.RolePermission{}).
		Where("role_id = ?", role.ID).Count(&granted).Error)
	assert.Equal(t, total, granted)
}

func TestEditExcludesSuperAdminScope(t *testing.T) {
	env := newTestEnv(t)
	role := env.createRole(t, "Editor", []string{auth.PermUserView})

	hidden := models.Permission{
		Name:      "Tenant Wipe",
		GuardName: models.GuardAPI,
		Group:     "Users",
		Admin:     models.AdminScopeSuperAdmin,
	}
	require.NoError(t, env.db.Create(&hidden).Error)
	require.NoError(t, env.db.Create(&models.RolePermission{
		RoleID:       role.ID,
		PermissionID: hidden.ID,
	}).Error)

	out := env.request(t, http.MethodGet, RootPath+"/edit/"+itoa(role.ID), nil, http.StatusOK)
	require.True(t, out.Status)

	var data struct {
		Role        map[string]any `json:"role"`
		Permissions []struct {
			Group       string           `json:"group"`
			Permissions []map[string]any `json:"permissions"`
		} `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &data))
	assert.Equal(t, "Editor", data.Role["name"])
	require.Len(t, data.Permissions, 1)
	require.Len(t, data.Permissions[0].Permissions, 1)
	assert.Equal(t, auth.PermUserView, data.Permissions[0].Permissions[0]["name"])
}

func TestUpdateRenameCollision(t *testing.T) {
	env := newTestEnv(t)
	env.createRole(t, "Editor", nil)
	role := env.createRole(t, "Viewer", nil)

	out := env.request(t, http.MethodPost, RootPath+"/update/"+itoa(role.ID), map[string]any{
		"name": "Editor",
	}, http.StatusOK)

	assert.False(t, out.Status)
	assert.Equal(t, "Role already exists", out.Message)
}

func TestUpdateReplacesPermissions(t *testing.T) {
	env := newTestEnv(t)
	role := env.createRole(t, "Editor", []string{auth.PermUserView, auth.PermUserAdd})

	out := env.request(t, http.MethodPost, RootPath+"/update/"+itoa(role.ID), map[string]any{
		"name": "Editor",
		"permissions": []map[string]any{
			{"group": "Users", "names": []string{auth.PermUserEdit}},
			{"group": "Roles", "names": []string{auth.PermRoleView}},
		},
	}, http.StatusOK)
	require.True(t, out.Status)

	var names []string
	require.NoError(t, env.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", role.ID).
		Pluck("permissions.name", &names).Error)
	assert.ElementsMatch(t, []string{auth.PermUserEdit, auth.PermRoleView}, names)
}

func TestRemoveRoleInUse(t *testing.T) {
	env := newTestEnv(t)
	role := env.createRole(t, "Editor", []string{auth.PermUserView})

	user := models.User{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: models.HashPassword("secret-password"),
		Enabled:  true,
	}
	require.NoError(t, env.db.Create(&user).Error)
	require.NoError(t, env.db.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID}).Error)

	out := env.request(t, http.MethodDelete, RootPath+"/remove/"+itoa(role.ID), nil, http.StatusOK)

	assert.False(t, out.Status)
	assert.Equal(t, "Role cannot be deleted because it is assigned to one or more users.", out.Message)

	// The role and its permission associations are left intact.
	var roleCount, grantCount int64
	require.NoError(t, env.db.Model(&models.Role{}).
		Where("id = ?", role.ID).Count(&roleCount).Error)
	require.NoError(t, env.db.Model(&models.RolePermission{}).
		Where("role_id = ?", role.ID).Count(&grantCount).Error)
	assert.Equal(t, int64(1), roleCount)
	assert.Equal(t, int64(1), grantCount)
}

func TestRemoveUnusedRole(t *testing.T) {
	env := newTestEnv(t)
	role := env.createRole(t, "Editor", []string{auth.PermUserView})

	out := env.request(t, http.MethodDelete, RootPath+"/remove/"+itoa(role.ID), nil, http.StatusOK)
	assert.True(t, out.Status)

	var roleCount, grantCount int64
	require.NoError(t, env.db.Model(&models.Role{}).
		Where("id = ?", role.ID).Count(&roleCount).Error)
	require.NoError(t, env.db.Model(&models.RolePermission{}).
		Where("role_id = ?", role.ID).Count(&grantCount).Error)
	assert.Zero(t, roleCount)
	assert.Zero(t, grantCount)
}

func TestAddPermissionsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"group": "Reports",
		"items": []string{"Report View", "Report Add"},
	}

	for i := 0; i < 2; i++ {
		out := env.request(t, http.MethodPost, RootPath+"/add-permissions", body, http.StatusOK)
		require.True(t, out.Status)
		assert.Equal(t, "Permissions added successfully", out.Message)
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Permission{}).
		Where(map[string]interface{}{"group": "Reports"}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDeletePermissionGroup(t *testing.T) {
	env := newTestEnv(t)
	role := env.createRole(t, "Editor", []string{auth.PermPageView})

	out := env.request(t, http.MethodPost, RootPath+"/delete-permission-group", map[string]any{
		"group": "Pages",
	}, http.StatusOK)
	require.True(t, out.Status)

	var count int64
	require.NoError(t, env.db.Model(&models.Permission{}).
		Where(map[string]interface{}{"group": "Pages"}).Count(&count).Error)
	assert.Zero(t, count)

	// Role associations of the removed permissions are gone too.
	var grants int64
	require.NoError(t, env.db.Model(&models.RolePermission{}).
		Where("role_id = ?", role.ID).Count(&grants).Error)
	assert.Zero(t, grants)
}

func TestDeletePermissionGroupNotFound(t *testing.T) {
	env := newTestEnv(t)

	out := env.request(t, http.MethodPost, RootPath+"/delete-permission-group", map[string]any{
		"group": "DoesNotExist",
	}, http.StatusNotFound)

	assert.False(t, out.Status)
	assert.Equal(t, "Permission group not found.", out.Message)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
