package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/jjenkins/classwatch/internal/model"
	"github.com/jjenkins/classwatch/internal/templates"
)

const (
	keyUserID   = "user_id"
	keyUsername = "username"
	keyFlash    = "flash"
	keyCSRF     = "csrf"

	// csrfField is the hidden form input carrying the token
	csrfField  = "_csrf"
	csrfCookie = "csrf_"
)

// Sessions wraps the cookie session store and the signed-in user
type Sessions struct {
	store  *session.Store
	secure bool
	logger *slog.Logger
}

// NewSessions creates an in-memory session store
func NewSessions(secure bool, logger *slog.Logger) *Sessions {
	return &Sessions{
		store: session.New(session.Config{
			Expiration:     24 * time.Hour,
			CookieHTTPOnly: true,
			CookieSecure:   secure,
			CookieSameSite: "Lax",
		}),
		secure: secure,
		logger: logger,
	}
}

// Middleware loads the signed-in user and any pending flash message into locals
func (s *Sessions) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.store.Get(c)
		if err != nil {
			s.logger.Error("failed to load session", slog.Any("error", err))
			return c.Next()
		}

		if id, ok := sess.Get(keyUserID).(int64); ok {
			c.Locals(keyUserID, id)
		}
		if name, ok := sess.Get(keyUsername).(string); ok {
			c.Locals(keyUsername, name)
		}
		if flash, ok := sess.Get(keyFlash).(string); ok {
			c.Locals(keyFlash, flash)
			sess.Delete(keyFlash)
			if err := sess.Save(); err != nil {
				s.logger.Error("failed to save session", slog.Any("error", err))
			}
		}

		return c.Next()
	}
}

// CSRF rejects form posts whose _csrf field does not match the token cookie
// issued on an earlier page view
func (s *Sessions) CSRF() fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "form:" + csrfField,
		CookieName:     csrfCookie,
		CookieSameSite: "Lax",
		CookieSecure:   s.secure,
		CookieHTTPOnly: true,
		Expiration:     time.Hour,
		ContextKey:     keyCSRF,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			s.logger.Warn("rejected form post", slog.String("path", c.Path()), slog.Any("error", err))
			return fiber.ErrForbidden
		},
	})
}

// RequireLogin redirects anonymous visitors to the login page
func RequireLogin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := currentUserID(c); !ok {
			return c.Redirect("/login")
		}
		return c.Next()
	}
}

// login starts a fresh session for u, carrying msg as the next flash message
func (s *Sessions) login(c *fiber.Ctx, u *model.User, msg string) error {
	sess, err := s.store.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(keyUserID, u.ID)
	sess.Set(keyUsername, u.Username)
	if msg != "" {
		sess.Set(keyFlash, msg)
	}
	return sess.Save()
}

func (s *Sessions) logout(c *fiber.Ctx) error {
	sess, err := s.store.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}

// flash stores a message shown on the next page view
func (s *Sessions) flash(c *fiber.Ctx, msg string) {
	sess, err := s.store.Get(c)
	if err != nil {
		s.logger.Error("failed to load session", slog.Any("error", err))
		return
	}
	sess.Set(keyFlash, msg)
	if err := sess.Save(); err != nil {
		s.logger.Error("failed to save session", slog.Any("error", err))
	}
}

func currentUserID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(keyUserID).(int64)
	return id, ok
}

func pageContext(c *fiber.Ctx, title string) templates.PageContext {
	pc := templates.PageContext{Title: title}
	pc.Username, _ = c.Locals(keyUsername).(string)
	pc.Flash, _ = c.Locals(keyFlash).(string)
	pc.CSRFToken, _ = c.Locals(keyCSRF).(string)
	return pc
}
