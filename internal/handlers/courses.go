package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/classwatch/internal/model"
	"github.com/jjenkins/classwatch/internal/service"
	"github.com/jjenkins/classwatch/internal/templates"
)

const unknownCourse = "Unknown Course"

// CourseHandler lists every section of a course, full ones included
func CourseHandler(catalog CourseCatalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID := c.Params("course_id")
		sections := catalog.GetSections(c.UserContext(), courseID, service.DefaultCount, true)

		name := unknownCourse
		if len(sections) > 0 && sections[0].CourseName != model.UnknownName {
			name = sections[0].CourseName
		}

		return render(c, templates.Sections(pageContext(c, name), name, sections))
	}
}

// SectionHandler shows one section and whether the signed-in user watches it
func SectionHandler(catalog CourseCatalog, watches WatchRepository, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		section := catalog.GetSection(ctx, c.Params("course_id"), c.Params("section_id"))

		view := templates.SectionView{Section: section}
		title := "Section not found"
		if section == nil {
			c.Status(fiber.StatusNotFound)
		} else {
			title = section.String()
			if userID, ok := currentUserID(c); ok {
				watching, err := watches.IsWatching(ctx, userID, section.ID)
				if err != nil {
					logger.Error("failed to check watch", slog.String("section_id", section.ID), slog.Any("error", err))
				}
				view.Watching = watching
			}
		}

		return render(c, templates.SectionDetail(pageContext(c, title), view))
	}
}
