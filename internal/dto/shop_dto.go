package dto

import (
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/timeutil"
)

// RewardCreateRequest is the payload for adding a shop reward.
type RewardCreateRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Cost        *int   `json:"cost" validate:"required,gte=0"`
}

// RewardUpdateRequest is a partial reward edit.
type RewardUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Cost        *int    `json:"cost" validate:"omitempty,gte=0"`
	Active      *bool   `json:"active"`
}

// RewardResponse is the shop catalog payload.
type RewardResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
	Active      bool   `json:"active"`
}

// NewRewardResponse converts a Reward model into a DTO.
func NewRewardResponse(reward models.Reward) RewardResponse {
	return RewardResponse{
		ID:          reward.ID,
		Title:       reward.Title,
		Description: reward.Description,
		Cost:        reward.Cost,
		Active:      reward.Active,
	}
}

// PurchaseResponse is built from the immutable purchase ledger, so it
// survives reward and account deletion.
type PurchaseResponse struct {
	ID              uint    `json:"id"`
	RewardTitle     string  `json:"rewardTitle"`
	CostAtPurchase  int     `json:"costAtPurchase"`
	StudentUsername string  `json:"studentUsername"`
	StudentEmail    *string `json:"studentEmail"`
	PointsBefore    int     `json:"pointsBefore"`
	PointsAfter     int     `json:"pointsAfter"`
	PurchasedAt     string  `json:"purchasedAt"`
}

// NewPurchaseResponse converts a ledger entry into a DTO.
func NewPurchaseResponse(entry models.RewardPurchaseLedger) PurchaseResponse {
	return PurchaseResponse{
		ID:              entry.ID,
		RewardTitle:     entry.RewardTitle,
		CostAtPurchase:  entry.CostAtPurchase,
		StudentUsername: entry.StudentUsername,
		StudentEmail:    entry.StudentEmail,
		PointsBefore:    entry.PointsBefore,
		PointsAfter:     entry.PointsAfter,
		PurchasedAt:     timeutil.FormatISO(entry.PurchasedAt),
	}
}
