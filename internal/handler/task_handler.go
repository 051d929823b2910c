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
	"github.com/classpoint/classpoint-api/internal/service"
	"github.com/classpoint/classpoint-api/internal/storage"
	"github.com/classpoint/classpoint-api/internal/utils"
)

// TaskHandler wires task HTTP routes.
type TaskHandler struct {
	tasks       service.TaskService
	submissions service.SubmissionService
	reconciler  service.PointsReconciler
	students    service.StudentService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewTaskHandler constructs the handler.
func NewTaskHandler(
	tasks service.TaskService,
	submissions service.SubmissionService,
	reconciler service.PointsReconciler,
	students service.StudentService,
	validator *validator.Validate,
	logger zerolog.Logger,
) *TaskHandler {
	return &TaskHandler{
		tasks:       tasks,
		submissions: submissions,
		reconciler:  reconciler,
		students:    students,
		validator:   validator,
		logger:      logger.With().Str("component", "task_handler").Logger(),
	}
}

// Register attaches task endpoints to the router group.
func (h *TaskHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/file", h.file)
	router.Post("", middleware.WithAuth(h.create, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Put("/:id", middleware.WithAuth(h.update, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Delete("/:id", middleware.WithAuth(h.delete, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Get("/:id/assignments", middleware.WithAuth(h.assignments, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Get("/:id/submissions", middleware.WithAuth(h.taskSubmissions, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Post("/:id/students/:studentId/award", middleware.WithAuth(h.awardPair, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
}

func (h *TaskHandler) list(c *fiber.Ctx) error {
	tasks, err := h.tasks.List(c.Context(), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "tasks retrieved", tasks)
}

func (h *TaskHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	task, err := h.tasks.Get(c.Context(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "task retrieved", task)
}

func (h *TaskHandler) create(c *fiber.Ctx) error {
	payload := dto.TaskCreateRequest{
		Title:       strings.TrimSpace(c.FormValue("title")),
		Description: c.FormValue("description"),
		Deadline:    strings.TrimSpace(c.FormValue("deadline")),
	}
	if points := c.FormValue("points"); points != "" {
		parsed, err := strconv.Atoi(points)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid points")
		}
		payload.Points = &parsed
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	ids, err := parseIDList(form.Value["student_ids"])
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	payload.AssignedStudentIDs = ids

	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	task, err := h.tasks.Create(c.Context(), actorFromContext(c), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "task created", task)
}

func (h *TaskHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TaskUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	if err := h.tasks.Update(c.Context(), id, payload, userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	h.students.InvalidateLeaderboard(c.Context())
	return utils.SendSuccess(c, "task updated", fiber.Map{"id": id})
}

func (h *TaskHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.tasks.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	h.students.InvalidateLeaderboard(c.Context())
	return utils.SendSuccess(c, "task deleted", fiber.Map{"id": id})
}

func (h *TaskHandler) assignments(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentIDs, err := h.tasks.AssignedStudents(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "assignments retrieved", fiber.Map{"student_ids": studentIDs})
}

func (h *TaskHandler) file(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	path, err := h.tasks.ResolveFile(c.Context(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.SendFile(path)
}

func (h *TaskHandler) taskSubmissions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.submissions.ListForTask(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *TaskHandler) awardPair(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
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

	if err := h.reconciler.AwardTaskStudent(c.Context(), taskID, studentID, *payload.AwardedPoints, payload.Comment); err != nil {
		return h.handleError(c, err)
	}

	h.students.InvalidateLeaderboard(c.Context())
	return utils.SendSuccess(c, "points awarded", fiber.Map{
		"task_id":        taskID,
		"student_id":     studentID,
		"awarded_points": *payload.AwardedPoints,
	})
}

func (h *TaskHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrFileNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "file not found")
	case errors.Is(err, service.ErrTaskNotAssigned):
		return utils.SendError(c, fiber.StatusForbidden, "task not assigned")
	case errors.Is(err, service.ErrInvalidDeadline):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid deadline format")
	case errors.Is(err, service.ErrNoStudentsSelected):
		return utils.SendError(c, fiber.StatusBadRequest, "select at least one student")
	case errors.Is(err, service.ErrInvalidStudentList):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student list")
	case errors.Is(err, service.ErrNoUpdates):
		return utils.SendError(c, fiber.StatusBadRequest, "no updates provided")
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
