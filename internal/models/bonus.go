package models

import (
	"time"

	"github.com/google/uuid"
)

type MilestoneType string

const (
	MilestoneMagnets MilestoneType = "magnets"
	MilestoneBreeds  MilestoneType = "breeds"
)

// Bonus is a granted milestone reward, unique per (client, count, type).
type Bonus struct {
	BaseModel
	ClientID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_bonuses_milestone,priority:1" json:"client_id"`
	MilestoneCount int           `gorm:"not null;uniqueIndex:idx_bonuses_milestone,priority:2" json:"milestone_count"`
	MilestoneType  MilestoneType `gorm:"type:varchar(16);not null;uniqueIndex:idx_bonuses_milestone,priority:3" json:"milestone_type"`
	Reward         string        `gorm:"not null" json:"reward"`
	OrderID        *uuid.UUID    `gorm:"type:uuid;index" json:"order_id"`
	GivenAt        time.Time     `gorm:"not null" json:"given_at"`
}

func (Bonus) TableName() string {
	return "bonuses"
}

// BonusStock is the per-reward stock counter.
type BonusStock struct {
	Reward    string    `gorm:"primaryKey" json:"reward"`
	Stock     int       `gorm:"not null;check:stock >= 0" json:"stock"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BonusStock) TableName() string {
	return "bonus_stock"
}
