package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/middleware"
	"github.com/classpoint/classpoint-api/internal/service"
	"github.com/classpoint/classpoint-api/internal/utils"
)

// UserHandler wires account administration routes, tutor only.
type UserHandler struct {
	users     service.UserService
	students  service.StudentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(users service.UserService, students service.StudentService, validator *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:     users,
		students:  students,
		validator: validator,
		logger:    logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches user administration endpoints to the router group.
func (h *UserHandler) Register(router fiber.Router) {
	router.Put("/:id", middleware.WithAuth(h.update, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Delete("/:id", middleware.WithAuth(h.delete, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	user, err := h.users.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if payload.Points != nil {
		h.students.InvalidateLeaderboard(c.Context())
	}
	return utils.SendSuccess(c, "account updated", user)
}

func (h *UserHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.users.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	h.students.InvalidateLeaderboard(c.Context())
	return utils.SendSuccess(c, "account deleted", fiber.Map{"id": id})
}

func (h *UserHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrUsernameTaken):
		return utils.SendError(c, fiber.StatusBadRequest, "username already exists")
	case errors.Is(err, service.ErrEmailTaken):
		return utils.SendError(c, fiber.StatusBadRequest, "email already exists")
	case errors.Is(err, service.ErrNoUpdates):
		return utils.SendError(c, fiber.StatusBadRequest, "no updates provided")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
