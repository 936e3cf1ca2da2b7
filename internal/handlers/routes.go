package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Deps are the collaborators the web pages need
type Deps struct {
	Catalog  CourseCatalog
	Users    UserRepository
	Watches  WatchRepository
	Metrics  MetricsSource
	Sessions *Sessions
	Logger   *slog.Logger
}

// Mount registers every page on app
func Mount(app *fiber.App, d Deps) {
	app.Use(d.Sessions.Middleware())
	app.Use(d.Sessions.CSRF())

	// Account routes
	app.Get("/login", LoginHandler(d.Users, d.Sessions, d.Logger))
	app.Post("/login", LoginHandler(d.Users, d.Sessions, d.Logger))
	app.Get("/register", RegisterHandler(d.Users, d.Sessions, d.Logger))
	app.Post("/register", RegisterHandler(d.Users, d.Sessions, d.Logger))
	app.Get("/logout", LogoutHandler(d.Sessions, d.Logger))

	// Catalog routes
	app.Get("/courses/:course_id", CourseHandler(d.Catalog))
	app.Get("/courses/:course_id/sections/:section_id", SectionHandler(d.Catalog, d.Watches, d.Logger))

	// Everything below needs a signed-in user
	auth := app.Group("", RequireLogin())
	index := IndexHandler(d.Catalog, d.Metrics, d.Logger)
	auth.Get("/", index)
	auth.Get("/index", index)
	auth.Post("/index", index)
	auth.Post("/courses/:course_id/sections/:section_id/watch", WatchHandler(d.Catalog, d.Watches, d.Sessions, d.Logger))
	auth.Post("/courses/:course_id/sections/:section_id/unwatch", UnwatchHandler(d.Watches, d.Sessions, d.Logger))
	auth.Get("/watchlist", WatchlistHandler(d.Watches))
	auth.Get("/sections/:section_id/history", HistoryHandler(d.Watches))
}
