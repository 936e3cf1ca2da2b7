package handlers

import (
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/jjenkins/classwatch/internal/model"
	"github.com/jjenkins/classwatch/internal/store"
	"github.com/jjenkins/classwatch/internal/templates"
)

const (
	maxUsernameLength = 32
	minPasswordLength = 8
)

// LoginHandler shows and processes the sign-in form
func LoginHandler(users UserRepository, sessions *Sessions, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := currentUserID(c); ok {
			return c.Redirect("/index")
		}
		if c.Method() != fiber.MethodPost {
			return render(c, templates.Login(pageContext(c, "Sign in"), templates.AuthForm{}))
		}

		form := templates.AuthForm{Username: strings.TrimSpace(c.FormValue("username"))}
		password := c.FormValue("password")

		u, err := users.GetByUsername(c.UserContext(), form.Username)
		if err != nil {
			logger.Error("failed to load user", slog.String("username", form.Username), slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error signing in")
		}
		if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			form.Error = "Invalid username or password"
			c.Status(fiber.StatusUnauthorized)
			return render(c, templates.Login(pageContext(c, "Sign in"), form))
		}

		if err := sessions.login(c, u, "Successfully logged in as "+u.Username); err != nil {
			logger.Error("failed to start session", slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error signing in")
		}
		return c.Redirect("/index")
	}
}

// RegisterHandler shows and processes the account creation form
func RegisterHandler(users UserRepository, sessions *Sessions, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := currentUserID(c); ok {
			return c.Redirect("/index")
		}
		if c.Method() != fiber.MethodPost {
			return render(c, templates.Register(pageContext(c, "Register"), templates.AuthForm{}))
		}

		form := templates.AuthForm{
			Username: strings.TrimSpace(c.FormValue("username")),
			Email:    strings.TrimSpace(c.FormValue("email")),
		}
		password := c.FormValue("password")

		if msg := validateRegistration(form, password, c.FormValue("password2")); msg != "" {
			form.Error = msg
			c.Status(fiber.StatusBadRequest)
			return render(c, templates.Register(pageContext(c, "Register"), form))
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("failed to hash password", slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error creating account")
		}

		u := &model.User{Username: form.Username, Email: form.Email, PasswordHash: string(hash)}
		err = users.Create(c.UserContext(), u)
		if errors.Is(err, store.ErrDuplicate) {
			form.Error = "That username or email is already registered"
			c.Status(fiber.StatusConflict)
			return render(c, templates.Register(pageContext(c, "Register"), form))
		}
		if err != nil {
			logger.Error("failed to create user", slog.String("username", form.Username), slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error creating account")
		}

		if err := sessions.login(c, u, "Successfully registered "+u.Username+"!"); err != nil {
			logger.Error("failed to start session", slog.Any("error", err))
			return c.Redirect("/login")
		}
		return c.Redirect("/index")
	}
}

// LogoutHandler ends the session
func LogoutHandler(sessions *Sessions, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := sessions.logout(c); err != nil {
			logger.Error("failed to end session", slog.Any("error", err))
		}
		return c.Redirect("/index")
	}
}

func validateRegistration(form templates.AuthForm, password, confirm string) string {
	switch {
	case form.Username == "" || len(form.Username) > maxUsernameLength:
		return "Username must be between 1 and 32 characters"
	case !validEmail(form.Email):
		return "Please enter a valid email address"
	case len(password) < minPasswordLength:
		return "Password must be at least 8 characters"
	case password != confirm:
		return "Passwords do not match"
	}
	return ""
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
