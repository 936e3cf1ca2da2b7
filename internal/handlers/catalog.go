package handlers

import (
	"context"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jjenkins/classwatch/internal/model"
	"github.com/jjenkins/classwatch/internal/service"
)

// CourseCatalog is the read side of the scheduling service used by the pages.
// Lookups never fail; missing data comes back empty or nil.
type CourseCatalog interface {
	CurrentTerm(ctx context.Context) *model.Term
	SearchCourse(ctx context.Context, query string, count int, term *model.Term) []model.Course
	GetSections(ctx context.Context, courseID string, count int, includeFull bool) []model.Section
	GetSection(ctx context.Context, courseID, sectionID string) *model.Section
	GetCourseName(ctx context.Context, courseID string) (string, bool)
}

// UserRepository stores accounts
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// WatchRepository stores who watches which section
type WatchRepository interface {
	Watch(ctx context.Context, userID int64, ws model.WatchedSection) error
	Unwatch(ctx context.Context, userID int64, sectionID string) error
	IsWatching(ctx context.Context, userID int64, sectionID string) (bool, error)
	ListForUser(ctx context.Context, userID int64) ([]model.WatchedSection, error)
	GetSection(ctx context.Context, sectionID string) (*model.WatchedSection, error)
	Snapshots(ctx context.Context, sectionID string) ([]model.SectionSnapshot, error)
}

// MetricsSource computes the figures on the home page
type MetricsSource interface {
	Calculate(ctx context.Context) (*service.WatchMetrics, error)
}

// render writes page with whatever status the handler already set on c
func render(c *fiber.Ctx, page templ.Component) error {
	handler := adaptor.HTTPHandler(templ.Handler(page, templ.WithStatus(c.Response().StatusCode())))
	return handler(c)
}
