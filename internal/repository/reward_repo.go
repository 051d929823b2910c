package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/models"
)

// RewardRepository defines reward catalogue operations and ledger reads.
// The purchase transaction itself runs through the ledger repository.
type RewardRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Reward, error)
	GetByID(ctx context.Context, id uint) (models.Reward, error)
	Create(ctx context.Context, reward *models.Reward) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	ListLedger(ctx context.Context, studentID *uint) ([]models.RewardPurchaseLedger, error)
}

type rewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository instantiates a GORM-backed reward repository.
func NewRewardRepository(db *gorm.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) List(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	query := r.db.WithContext(ctx).Model(&models.Reward{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var rewards []models.Reward
	if err := query.Order("created_at DESC").Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *rewardRepository) GetByID(ctx context.Context, id uint) (models.Reward, error) {
	var reward models.Reward
	if err := r.db.WithContext(ctx).First(&reward, id).Error; err != nil {
		return models.Reward{}, err
	}
	return reward, nil
}

func (r *rewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *rewardRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.Reward{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *rewardRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Reward{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *rewardRepository) ListLedger(ctx context.Context, studentID *uint) ([]models.RewardPurchaseLedger, error) {
	query := r.db.WithContext(ctx).Model(&models.RewardPurchaseLedger{})
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}

	var entries []models.RewardPurchaseLedger
	if err := query.Order("purchased_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
