package handlers

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/classwatch/internal/service"
	"github.com/jjenkins/classwatch/internal/templates"
)

// IndexHandler shows the search form and, for a posted query, the matching
// courses of the current term
func IndexHandler(catalog CourseCatalog, metrics MetricsSource, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		results := templates.SearchResults{}
		if c.Method() == fiber.MethodPost {
			results.Query = strings.TrimSpace(c.FormValue("query"))
			if results.Query != "" {
				results.Term = catalog.CurrentTerm(ctx)
				results.Courses = catalog.SearchCourse(ctx, results.Query, service.DefaultCount, results.Term)
				results.Searched = true
			}
		}

		home := templates.HomeMetrics{}
		if metrics != nil {
			m, err := metrics.Calculate(ctx)
			if err != nil {
				logger.Error("failed to calculate metrics", slog.Any("error", err))
			} else {
				home.HasData = m.WatchedSections > 0
				home.WatchedSections = m.WatchedSections
				home.OpenSections = m.OpenSections
				home.TotalUsers = m.TotalUsers
				home.MostWatched = m.MostWatched
			}
		}

		return render(c, templates.Index(pageContext(c, "Search"), results, home))
	}
}
