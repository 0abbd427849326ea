package language

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New()

	app.Get("/content/:slug/:lang?", Validate, func(c *fiber.Ctx) error {
		return c.SendString(FromCtx(c))
	})

	return app
}

func TestValidate(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantLang   string
	}{
		{"missing language defaults to en", "/content/home", http.StatusOK, "en"},
		{"english", "/content/home/en", http.StatusOK, "en"},
		{"arabic", "/content/home/ar", http.StatusOK, "ar"},
		{"russian", "/content/home/ru", http.StatusOK, "ru"},
		{"chinese", "/content/home/ch", http.StatusOK, "ch"},
		{"unknown language", "/content/home/de", http.StatusBadRequest, ""},
		{"iso code not in allow list", "/content/home/zh", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus != http.StatusOK {
				var body struct {
					Status  bool   `json:"status"`
					Message string `json:"message"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.False(t, body.Status)
				assert.Equal(t, "Invalid language", body.Message)

				return
			}

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLang, string(body))
		})
	}
}
