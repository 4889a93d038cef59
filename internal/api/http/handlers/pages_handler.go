package handlers

import "github.com/gofiber/fiber/v2"

// PagesHandler serves placeholder responses for the page routes the access
// middleware gates. Actual rendering lives outside this service; the routes
// exist so navigation and redirect behavior is exercised end to end.
type PagesHandler struct{}

// NewPagesHandler returns a new handler instance.
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// Render returns a stub page body for the named page.
func (h *PagesHandler) Render(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"data": fiber.Map{"page": name},
		})
	}
}
