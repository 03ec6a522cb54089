package utils

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends a success JSON response
func SuccessResponse(c *fiber.Ctx, data any, message string, code ...int) error {
	statusCode := fiber.StatusOK
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"message": message,
	})
}

// ErrorResponse sends an error JSON response with a failure flag and message.
// If an explicit HTTP status code is provided it is used; otherwise 500 is sent.
func ErrorResponse(c *fiber.Ctx, message string, code ...int) error {
	statusCode := fiber.StatusInternalServerError
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// APIErrorResponse sends a structured APIError as JSON using its own status
func APIErrorResponse(c *fiber.Ctx, apiErr *APIError) error {
	return c.Status(apiErr.Status).JSON(fiber.Map{
		"success": false,
		"error":   apiErr,
	})
}
