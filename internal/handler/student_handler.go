package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classpoint/classpoint-api/internal/middleware"
	"github.com/classpoint/classpoint-api/internal/service"
	"github.com/classpoint/classpoint-api/internal/utils"
)

// StudentHandler wires leaderboard, progress and class-overview routes.
type StudentHandler struct {
	students service.StudentService
	users    service.UserService
	logger   zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students service.StudentService, users service.UserService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		students: students,
		users:    users,
		logger:   logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student statistics endpoints to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("/leaderboard", h.leaderboard)
	router.Get("/student-progress", middleware.WithAuth(h.progress, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Get("/students/list", middleware.WithAuth(h.listStudents, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Get("/students/overview", middleware.WithAuth(h.overview, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
}

func (h *StudentHandler) leaderboard(c *fiber.Ctx) error {
	entries, err := h.students.Leaderboard(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "leaderboard retrieved", entries)
}

func (h *StudentHandler) progress(c *fiber.Ctx) error {
	progress, err := h.students.Progress(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "progress retrieved", progress)
}

func (h *StudentHandler) listStudents(c *fiber.Ctx) error {
	students, err := h.users.ListStudents(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *StudentHandler) overview(c *fiber.Ctx) error {
	overview, err := h.students.Overview(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "overview retrieved", overview)
}

func (h *StudentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
