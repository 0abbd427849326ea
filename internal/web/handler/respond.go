package handler

import (
	"github.com/gofiber/fiber/v2"
)

// Envelope is the uniform JSON response body of the API.
// Business-rule failures are reported with HTTP 200 and Status false,
// distinguishing "processed and refused" from "malformed or unroutable".
type Envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// OK sends a successful envelope.
func OK(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

// Fail sends a business-rule failure: HTTP 200 with Status false.
func Fail(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Status:  false,
		Message: message,
	})
}

// FailStatus sends a failure envelope with an explicit HTTP status code.
func FailStatus(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{
		Status:  false,
		Message: message,
	})
}
