package webcontent

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/auth"
	"github.com/silkcms/silk-admin/internal/blobstore"
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
		&models.WebContent{},
		&models.WebContentTranslation{},
	))

	cfg := &config.Config{
		Webserver: config.Webserver{
			Port:      8080,
			URL:       "http://localhost:8080",
			UploadDir: t.TempDir(),
		},
	}

	app := fiber.New()
	authService := auth.NewService(db)
	blobs := blobstore.New(cfg.Webserver.UploadDir, cfg.Webserver.URL)

	var svc Service
	svc.Init(app, cfg, db, authService, blobs)

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

// post sends a multipart write request. files maps form field names to
// fake image content.
func (e *testEnv) post(t *testing.T, target string, fields map[string]string, files map[string][]byte) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}

	for field, content := range files {
		fw, err := w.CreateFormFile(field, "image.png")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+e.bearer)

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp.StatusCode, out
}

func (e *testEnv) get(t *testing.T, target string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+e.bearer)

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp.StatusCode, out
}

// storedFields reads the persisted field map of (slug, lang) back from
// the database.
func (e *testEnv) storedFields(t *testing.T, slug, lang string) map[string]any {
	t.Helper()

	var content models.WebContent
	require.NoError(t, e.db.Where("slug = ?", slug).First(&content).Error)

	var row models.WebContentTranslation
	require.NoError(t, e.db.Where("web_content_id = ? AND language = ?", content.ID, lang).
		First(&row).Error)

	fields := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(row.TranslatedValue), &fields))

	return fields
}

func TestPostUpsertsTranslationRow(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.post(t, "/webContents/contact/en", map[string]string{
		"header_title": "Contact us",
		"email":        "hello@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	// A second write for the same pair replaces the row, it does not add one.
	status, out = env.post(t, "/webContents/contact/en", map[string]string{
		"header_title": "Reach us",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	var contentCount, rowCount int64
	require.NoError(t, env.db.Model(&models.WebContent{}).Count(&contentCount).Error)
	require.NoError(t, env.db.Model(&models.WebContentTranslation{}).Count(&rowCount).Error)
	assert.Equal(t, int64(1), contentCount)
	assert.Equal(t, int64(1), rowCount)

	fields := env.storedFields(t, "contact", "en")
	assert.Equal(t, "Reach us", fields["header_title"])

	// The second write carried no email field, so none survives.
	_, exists := fields["email"]
	assert.False(t, exists)
}

func TestTranslationOverridesFormFields(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.post(t, "/webContents/contact/en", map[string]string{
		"header_title": "From form",
		"translation":  `{"header_title":"From translation","address":"1 Main St"}`,
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	fields := env.storedFields(t, "contact", "en")
	assert.Equal(t, "From translation", fields["header_title"])
	assert.Equal(t, "1 Main St", fields["address"])
}

func TestGetFallsBackToEnglish(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.post(t, "/webContents/contact/en", map[string]string{
		"header_title": "Contact us",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	status, out = env.get(t, "/webContents/contact/ar")
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	var data map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &data))
	assert.Equal(t, "ar", data["language"])
	assert.Equal(t, "en", data["translated_language"])

	translation, ok := data["translation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Contact us", translation["header_title"])

	// The fallback must not create an ar row.
	var count int64
	require.NoError(t, env.db.Model(&models.WebContentTranslation{}).
		Where("language = ?", "ar").Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetResolvesImageURLs(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.post(t, "/webContents/contact/en",
		map[string]string{"header_title": "Contact us"},
		map[string][]byte{FieldHeaderImage: []byte("image-bytes")},
	)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	status, out = env.get(t, "/webContents/contact/en")
	require.Equal(t, http.StatusOK, status)

	var data map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &data))

	url, ok := data[FieldHeaderImage].(string)
	require.True(t, ok, "header_image should be a resolved URL")
	assert.Contains(t, url, "http://localhost:8080/storage/web_contents/")
}

func TestSectionImageCarryForward(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.post(t, "/webContents/home/en",
		map[string]string{
			"translation": `{"client_section":[{"title":"Acme"}]}`,
		},
		map[string][]byte{"translation.client_section.0.image": []byte("logo-bytes")},
	)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	fields := env.storedFields(t, "home", "en")
	entries := fields["client_section"].([]any)
	first := entries[0].(map[string]any)
	storedPath, ok := first["image"].(string)
	require.True(t, ok)
	require.NotEmpty(t, storedPath)

	// Rewriting the entry without a new file keeps the stored path.
	status, out = env.post(t, "/webContents/home/en", map[string]string{
		"translation": `{"client_section":[{"title":"Acme Renamed"}]}`,
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	fields = env.storedFields(t, "home", "en")
	entries = fields["client_section"].([]any)
	first = entries[0].(map[string]any)
	assert.Equal(t, "Acme Renamed", first["title"])
	assert.Equal(t, storedPath, first["image"])
}

func TestSectionImageRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.post(t, "/webContents/home/en",
		map[string]string{
			"translation": `{"client_section":[{"title":"Acme"}]}`,
		},
		map[string][]byte{"translation.client_section.0.image": []byte("logo-bytes")},
	)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	fields := env.storedFields(t, "home", "en")
	storedPath, ok := fields["client_section"].([]any)[0].(map[string]any)["image"].(string)
	require.True(t, ok)
	require.NotEmpty(t, storedPath)

	// Fetch and re-post the translation map exactly as returned, the way
	// an editing client does.
	status, out = env.get(t, "/webContents/home/en")
	require.Equal(t, http.StatusOK, status)

	var data map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &data))

	echoed, err := json.Marshal(data["translation"])
	require.NoError(t, err)

	status, out = env.post(t, "/webContents/home/en", map[string]string{
		"translation": string(echoed),
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	// The stored path survives unchanged, not the echoed URL, and the
	// presentation-only old_image key is not persisted.
	fields = env.storedFields(t, "home", "en")
	first := fields["client_section"].([]any)[0].(map[string]any)
	assert.Equal(t, storedPath, first["image"])

	_, exists := first["old_image"]
	assert.False(t, exists)
}

func TestSectionEntryWithoutImageStoresNull(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.post(t, "/webContents/home/en", map[string]string{
		"translation": `{"client_section":[{"title":"Acme"}]}`,
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	fields := env.storedFields(t, "home", "en")
	first := fields["client_section"].([]any)[0].(map[string]any)

	value, exists := first["image"]
	require.True(t, exists)
	assert.Nil(t, value)
}

func TestSectionOldImageInResponse(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.post(t, "/webContents/home/en",
		map[string]string{
			"translation": `{"client_section":[{"title":"Acme"}]}`,
		},
		map[string][]byte{"translation.client_section.0.image": []byte("logo-bytes")},
	)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	status, out = env.get(t, "/webContents/home/en")
	require.Equal(t, http.StatusOK, status)

	var data map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &data))

	entries := data["translation"].(map[string]any)["client_section"].([]any)
	first := entries[0].(map[string]any)

	oldImage, ok := first["old_image"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, oldImage)

	url, ok := first["image"].(string)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8080/storage/"+oldImage, url)
}

func TestUnknownSlug(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.get(t, "/webContents/blog/en")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, out.Status)
	assert.Equal(t, "Resource not found.", out.Message)

	status, out = env.post(t, "/webContents/blog/en", map[string]string{"header_title": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, out.Status)
}

func TestMissingRecord(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.get(t, "/webContents/home/en")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, out.Status)
	assert.Equal(t, "Web content not found.", out.Message)
}

func TestInvalidLanguage(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.get(t, "/webContents/home/de")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, out.Status)
	assert.Equal(t, "Invalid language", out.Message)
}

func TestMissingLanguageDefaultsToEnglish(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.post(t, "/webContents/contact", map[string]string{
		"header_title": "Contact us",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Status, out.Message)

	var count int64
	require.NoError(t, env.db.Model(&models.WebContentTranslation{}).
		Where("language = ?", "en").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
