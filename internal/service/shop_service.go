package service

import (
	"context"
	"errors"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/observability"
	"github.com/classpoint/classpoint-api/internal/repository"
)

// ShopService covers the reward catalogue, purchases and ledger reads.
// Purchases spend points atomically and append an immutable ledger row.
type ShopService interface {
	ListRewards(ctx context.Context, actor Actor) ([]dto.RewardResponse, error)
	CreateReward(ctx context.Context, actor Actor, req dto.RewardCreateRequest) (dto.RewardResponse, error)
	UpdateReward(ctx context.Context, id uint, req dto.RewardUpdateRequest) error
	DeleteReward(ctx context.Context, id uint) error
	Purchase(ctx context.Context, studentID, rewardID uint) (dto.PurchaseResponse, error)
	ListMyPurchases(ctx context.Context, studentID uint) ([]dto.PurchaseResponse, error)
	ListAllPurchases(ctx context.Context) ([]dto.PurchaseResponse, error)
}

type shopService struct {
	rewards   repository.RewardRepository
	ledger    repository.LedgerRepository
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewShopService constructs the shop service.
func NewShopService(rewards repository.RewardRepository, ledger repository.LedgerRepository, logger zerolog.Logger, now func() time.Time) ShopService {
	return &shopService{
		rewards:   rewards,
		ledger:    ledger,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "shop_service").Logger(),
		tracer:    otel.Tracer("github.com/classpoint/classpoint-api/internal/service/shop"),
		now:       now,
	}
}

func (s *shopService) ListRewards(ctx context.Context, actor Actor) ([]dto.RewardResponse, error) {
	activeOnly := actor.Role != models.RoleTutor
	rewards, err := s.rewards.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	out := make([]dto.RewardResponse, 0, len(rewards))
	for _, reward := range rewards {
		out = append(out, dto.NewRewardResponse(reward))
	}
	return out, nil
}

func (s *shopService) CreateReward(ctx context.Context, actor Actor, req dto.RewardCreateRequest) (dto.RewardResponse, error) {
	reward := models.Reward{
		Title:       s.sanitizer.Sanitize(req.Title),
		Description: s.sanitizer.Sanitize(req.Description),
		Cost:        *req.Cost,
		Active:      true,
		CreatedBy:   actor.ID,
	}
	if err := s.rewards.Create(ctx, &reward); err != nil {
		return dto.RewardResponse{}, err
	}

	s.logger.Info().Uint("reward_id", reward.ID).Int("cost", reward.Cost).Msg("reward created")
	return dto.NewRewardResponse(reward), nil
}

func (s *shopService) UpdateReward(ctx context.Context, id uint, req dto.RewardUpdateRequest) error {
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = s.sanitizer.Sanitize(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = s.sanitizer.Sanitize(*req.Description)
	}
	if req.Cost != nil {
		updates["cost"] = *req.Cost
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return ErrNoUpdates
	}
	updates["updated_at"] = s.now()

	if err := s.rewards.Update(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRewardNotFound
		}
		return err
	}
	return nil
}

func (s *shopService) DeleteReward(ctx context.Context, id uint) error {
	if err := s.rewards.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRewardNotFound
		}
		return err
	}

	s.logger.Info().Uint("reward_id", id).Msg("reward deleted")
	return nil
}

func (s *shopService) Purchase(ctx context.Context, studentID, rewardID uint) (dto.PurchaseResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shop.purchase", trace.WithAttributes(
		attribute.Int64("reward.id", int64(rewardID)),
		attribute.Int64("student.id", int64(studentID)),
	))
	defer span.End()

	var entry models.RewardPurchaseLedger
	err := s.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
		reward, err := tx.RewardForUpdate(rewardID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRewardNotFound
			}
			return err
		}
		if !reward.Active {
			return ErrRewardNotFound
		}

		student, err := tx.UserForUpdate(studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if reward.Cost > student.Points {
			return ErrInsufficientPoints
		}

		purchasedAt := s.now()
		purchase := models.Purchase{
			RewardID:       &reward.ID,
			StudentID:      &student.ID,
			CostAtPurchase: reward.Cost,
			PurchasedAt:    purchasedAt,
		}
		if err := tx.CreatePurchase(&purchase); err != nil {
			return err
		}

		after, err := tx.AdjustBalance(student.ID, -reward.Cost)
		if err != nil {
			return err
		}

		entry = models.RewardPurchaseLedger{
			PurchaseID:        &purchase.ID,
			RewardID:          &reward.ID,
			StudentID:         &student.ID,
			RewardTitle:       reward.Title,
			RewardDescription: reward.Description,
			RewardCost:        reward.Cost,
			CostAtPurchase:    reward.Cost,
			StudentUsername:   student.Username,
			StudentEmail:      student.Email,
			PointsBefore:      student.Points,
			PointsAfter:       after,
			PurchasedAt:       purchasedAt,
		}
		return tx.CreateLedgerEntry(&entry)
	})
	if err != nil {
		return dto.PurchaseResponse{}, err
	}

	observability.Purchases().Inc()
	s.logger.Info().
		Uint("student_id", studentID).
		Uint("reward_id", rewardID).
		Int("cost", entry.CostAtPurchase).
		Int("balance_after", entry.PointsAfter).
		Msg("reward purchased")
	return dto.NewPurchaseResponse(entry), nil
}

func (s *shopService) ListMyPurchases(ctx context.Context, studentID uint) ([]dto.PurchaseResponse, error) {
	return s.listLedger(ctx, &studentID)
}

func (s *shopService) ListAllPurchases(ctx context.Context) ([]dto.PurchaseResponse, error) {
	return s.listLedger(ctx, nil)
}

func (s *shopService) listLedger(ctx context.Context, studentID *uint) ([]dto.PurchaseResponse, error) {
	entries, err := s.rewards.ListLedger(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PurchaseResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.NewPurchaseResponse(entry))
	}
	return out, nil
}
