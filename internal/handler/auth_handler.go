package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/service"
	"github.com/classpoint/classpoint-api/internal/utils"
)

// AuthHandler wires registration and login HTTP routes.
type AuthHandler struct {
	auth       service.AuthService
	users      service.UserService
	validator  *validator.Validate
	cookieName string
	cookieTTL  time.Duration
	logger     zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth service.AuthService, users service.UserService, validator *validator.Validate, cookieName string, cookieTTL time.Duration, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		users:      users,
		validator:  validator,
		cookieName: cookieName,
		cookieTTL:  cookieTTL,
		logger:     logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches public auth endpoints to the router group.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/register", h.register)
	router.Post("/login", h.login)
	router.Post("/logout", h.logout)
}

// RegisterProtected attaches endpoints that require authentication.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Get("/me", h.me)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	user, err := h.auth.Register(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful", user)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	result, err := h.auth.Login(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    result.Token,
		Expires:  time.Now().Add(h.cookieTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return utils.SendSuccess(c, "login successful", result)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	user, err := h.users.Get(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *AuthHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUsernameTaken):
		return utils.SendError(c, fiber.StatusBadRequest, "username already exists")
	case errors.Is(err, service.ErrEmailTaken):
		return utils.SendError(c, fiber.StatusBadRequest, "email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, "wrong information")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
