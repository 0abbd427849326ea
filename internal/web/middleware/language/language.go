// Package language validates the language path segment of content routes.
package language

import (
	"github.com/gofiber/fiber/v2"
)

const (
	// LocalsKey is the fiber.Locals key holding the validated language.
	LocalsKey = "lang"

	// Default is substituted when no language segment is present.
	Default = "en"
)

// allowed is the fixed language allow-list.
var allowed = map[string]bool{
	"en": true,
	"ar": true,
	"ru": true,
	"ch": true,
}

// Validate is fiber middleware checking the :lang route parameter against
// the allow-list. A missing parameter defaults to "en"; an unknown one is
// rejected with a 400 envelope before the handler runs.
func Validate(c *fiber.Ctx) error {
	lang := c.Params("lang")
	if lang == "" {
		lang = Default
	}

	if !allowed[lang] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  false,
			"message": "Invalid language",
		})
	}

	c.Locals(LocalsKey, lang)

	return c.Next()
}

// FromCtx returns the validated language stored by Validate.
func FromCtx(c *fiber.Ctx) string {
	if lang, ok := c.Locals(LocalsKey).(string); ok && lang != "" {
		return lang
	}

	return Default
}
