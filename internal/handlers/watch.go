package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/classwatch/internal/model"
	"github.com/jjenkins/classwatch/internal/service"
	"github.com/jjenkins/classwatch/internal/templates"
)

// WatchHandler adds the section to the signed-in user's watchlist
func WatchHandler(catalog CourseCatalog, watches WatchRepository, sessions *Sessions, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		userID, _ := currentUserID(c)
		courseID, sectionID := c.Params("course_id"), c.Params("section_id")

		section := catalog.GetSection(ctx, courseID, sectionID)
		if section == nil {
			return c.Status(fiber.StatusNotFound).SendString("Section not found")
		}

		ws := model.WatchedSectionFrom(*section, service.SeatChecksum(*section))
		if err := watches.Watch(ctx, userID, ws); err != nil {
			logger.Error("failed to watch section", slog.String("section_id", sectionID), slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error saving watch")
		}

		sessions.flash(c, "Now watching "+section.CourseName+" "+section.String())
		return c.Redirect(templates.SectionURL(courseID, sectionID))
	}
}

// UnwatchHandler removes the section from the signed-in user's watchlist
func UnwatchHandler(watches WatchRepository, sessions *Sessions, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUserID(c)
		courseID, sectionID := c.Params("course_id"), c.Params("section_id")

		if err := watches.Unwatch(c.UserContext(), userID, sectionID); err != nil {
			logger.Error("failed to unwatch section", slog.String("section_id", sectionID), slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error removing watch")
		}

		sessions.flash(c, "Stopped watching section")
		return c.Redirect(templates.SectionURL(courseID, sectionID))
	}
}

// WatchlistHandler lists the signed-in user's watched sections with their last known seats
func WatchlistHandler(watches WatchRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUserID(c)

		sections, err := watches.ListForUser(c.UserContext(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading watchlist")
		}

		return render(c, templates.Watchlist(pageContext(c, "Watchlist"), sections))
	}
}
