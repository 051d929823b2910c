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

// ShopHandler wires reward shop HTTP routes.
type ShopHandler struct {
	shop      service.ShopService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewShopHandler constructs the handler.
func NewShopHandler(shop service.ShopService, validator *validator.Validate, logger zerolog.Logger) *ShopHandler {
	return &ShopHandler{
		shop:      shop,
		validator: validator,
		logger:    logger.With().Str("component", "shop_handler").Logger(),
	}
}

// Register attaches shop endpoints to the router group.
func (h *ShopHandler) Register(router fiber.Router) {
	router.Get("/rewards", h.listRewards)
	router.Post("/rewards", middleware.WithAuth(h.createReward, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Put("/rewards/:id", middleware.WithAuth(h.updateReward, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Delete("/rewards/:id", middleware.WithAuth(h.deleteReward, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
	router.Post("/rewards/:id/purchase", middleware.WithAuth(h.purchase, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Get("/purchases", middleware.WithAuth(h.myPurchases, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Get("/purchases/all", middleware.WithAuth(h.allPurchases, middleware.AuthOptions{Role: middleware.AuthRoleTutor}))
}

func (h *ShopHandler) listRewards(c *fiber.Ctx) error {
	rewards, err := h.shop.ListRewards(c.Context(), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "rewards retrieved", rewards)
}

func (h *ShopHandler) createReward(c *fiber.Ctx) error {
	var payload dto.RewardCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	reward, err := h.shop.CreateReward(c.Context(), actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reward created", reward)
}

func (h *ShopHandler) updateReward(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RewardUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	if err := h.shop.UpdateReward(c.Context(), id, payload); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "reward updated", fiber.Map{"id": id})
}

func (h *ShopHandler) deleteReward(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.shop.DeleteReward(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "reward deleted", fiber.Map{"id": id})
}

func (h *ShopHandler) purchase(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	purchase, err := h.shop.Purchase(c.Context(), userIDFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reward purchased", purchase)
}

func (h *ShopHandler) myPurchases(c *fiber.Ctx) error {
	purchases, err := h.shop.ListMyPurchases(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "purchases retrieved", purchases)
}

func (h *ShopHandler) allPurchases(c *fiber.Ctx) error {
	purchases, err := h.shop.ListAllPurchases(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "purchases retrieved", purchases)
}

func (h *ShopHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRewardNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "reward not found")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrInsufficientPoints):
		return utils.SendError(c, fiber.StatusBadRequest, "not enough points for this reward")
	case errors.Is(err, service.ErrNoUpdates):
		return utils.SendError(c, fiber.StatusBadRequest, "no updates provided")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
