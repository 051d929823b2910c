package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/middleware"
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/service"
	"github.com/classpoint/classpoint-api/internal/storage"
	"github.com/classpoint/classpoint-api/internal/utils"
)

// SubmissionHandler wires submission HTTP routes.
type SubmissionHandler struct {
	submissions service.SubmissionService
	reconciler  service.PointsReconciler
	students    service.StudentService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(
	submissions service.SubmissionService,
	reconciler service.PointsReconciler,
	students service.StudentService,
	validator *validator.Validate,
	logger zerolog.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
		reconciler:  reconciler,
		students:    students,
		validator:   validator,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission endpoints to the router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/file", h.file)
	router.Post("", middleware.WithAuth(h.create, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Delete("/:id", h.delete)
	router.Post("/:id/award", middleware.WithAuth(h.award, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	taskValue := strings.TrimSpace(c.FormValue("task_id"))
	taskID, err := strconv.ParseUint(taskValue, 10, 64)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task_id")
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	result, err := h.submissions.Create(c.Context(), actorFromContext(c), uint(taskID), c.FormValue("text"), file)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission received", result)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.Role != models.RoleStudent {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	taskID, err := parseQueryUint(c, "task_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.submissions.ListMine(c.Context(), actor.ID, taskID)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.submissions.Get(c.Context(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.reconciler.DeleteSubmission(c.Context(), actorFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	h.students.InvalidateLeaderboard(c.Context())
	return utils.SendSuccess(c, "submission deleted", fiber.Map{"id": id})
}

func (h *SubmissionHandler) award(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AwardRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	if err := h.reconciler.AwardSubmission(c.Context(), id, *payload.AwardedPoints, payload.Comment); err != nil {
		return h.handleError(c, err)
	}

	h.students.InvalidateLeaderboard(c.Context())
	return utils.SendSuccess(c, "points awarded", fiber.Map{
		"submission_id":  id,
		"awarded_points": *payload.AwardedPoints,
	})
}

func (h *SubmissionHandler) file(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	path, err := h.submissions.ResolveFile(c.Context(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.SendFile(path)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrFileNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "file not found")
	case errors.Is(err, service.ErrTaskNotAssigned):
		return utils.SendError(c, fiber.StatusForbidden, "task not assigned")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrAwardedImmutable):
		return utils.SendError(c, fiber.StatusForbidden, "awarded submissions cannot be deleted")
	case errors.Is(err, service.ErrEmptySubmission):
		return utils.SendError(c, fiber.StatusBadRequest, "submission text or PDF is required")
	case errors.Is(err, service.ErrNegativeAward):
		return utils.SendError(c, fiber.StatusBadRequest, "awarded points must be non-negative")
	case errors.Is(err, service.ErrAwardExceedsMax):
		return utils.SendError(c, fiber.StatusBadRequest, "points exceed penalty-adjusted max")
	case errors.Is(err, storage.ErrNotPDF):
		return utils.SendError(c, fiber.StatusBadRequest, "only PDF uploads are allowed")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
