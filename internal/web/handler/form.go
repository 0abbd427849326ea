package handler

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
)

// FormValue returns the form value for key and whether the field was sent
// at all. Partial-update handlers need the distinction between "absent"
// and "sent empty".
func FormValue(c *fiber.Ctx, key string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		vals, ok := form.Value[key]
		if !ok || len(vals) == 0 {
			return "", false
		}

		return vals[0], true
	}

	args := c.Request().PostArgs()
	if !args.Has(key) {
		return "", false
	}

	return string(args.Peek(key)), true
}

// FormFile returns the uploaded file for key, or nil when the field was
// not sent.
func FormFile(c *fiber.Ctx, key string) *multipart.FileHeader {
	file, err := c.FormFile(key)
	if err != nil {
		return nil
	}

	return file
}
