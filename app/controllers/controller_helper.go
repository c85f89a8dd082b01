package controllers

import "github.com/gofiber/fiber/v2"

// Response envelope used by every JSON endpoint.
const (
	statusSuccess = "Success"
	statusFail    = "Fail"
)

func respondSuccess(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"status":  statusSuccess,
		"message": "",
		"data":    data,
	})
}

func respondFail(c *fiber.Ctx, httpStatus int, message string) error {
	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  statusFail,
		"message": message,
		"data":    nil,
	})
}
