package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/classwatch/internal/templates"
)

// HistoryHandler shows the recorded seat changes of a watched section
func HistoryHandler(watches WatchRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		sectionID := c.Params("section_id")

		ws, err := watches.GetSection(ctx, sectionID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading section")
		}
		if ws == nil {
			return c.Status(fiber.StatusNotFound).SendString("Section not found")
		}

		snapshots, err := watches.Snapshots(ctx, sectionID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading snapshots")
		}

		return render(c, templates.History(pageContext(c, "History"), *ws, snapshots))
	}
}
