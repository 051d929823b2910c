package models

import "time"

// Reward is a shop item students can redeem points for.
type Reward struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Cost        int       `gorm:"not null;default:0" json:"cost"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedBy   uint      `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Purchase records a single redemption. CostAtPurchase snapshots the reward
// cost so later price edits never rewrite history.
type Purchase struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RewardID       *uint     `gorm:"index" json:"reward_id"`
	StudentID      *uint     `gorm:"index" json:"student_id"`
	CostAtPurchase int       `gorm:"not null" json:"cost_at_purchase"`
	PurchasedAt    time.Time `gorm:"not null" json:"purchased_at"`
}

// RewardPurchaseLedger is the immutable denormalized record written together
// with every Purchase. Purchase history listings read this table only; rows
// are never updated or deleted, even when the reward or student later change.
type RewardPurchaseLedger struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	PurchaseID        *uint     `gorm:"index" json:"purchase_id"`
	RewardID          *uint     `json:"reward_id"`
	StudentID         *uint     `gorm:"index" json:"student_id"`
	RewardTitle       string    `gorm:"size:255;not null" json:"reward_title"`
	RewardDescription string    `gorm:"type:text" json:"reward_description"`
	RewardCost        int       `gorm:"not null" json:"reward_cost"`
	CostAtPurchase    int       `gorm:"not null" json:"cost_at_purchase"`
	StudentUsername   string    `gorm:"size:64;not null" json:"student_username"`
	StudentEmail      *string   `gorm:"size:255" json:"student_email"`
	PointsBefore      int       `gorm:"not null" json:"points_before"`
	PointsAfter       int       `gorm:"not null" json:"points_after"`
	PurchasedAt       time.Time `gorm:"not null" json:"purchased_at"`
	CreatedAt         time.Time `json:"created_at"`
}
