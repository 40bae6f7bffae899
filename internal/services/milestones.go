package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/joywood/internal/models"
)

// Milestone is a collection threshold that earns a physical reward.
type Milestone struct {
	Count  int                  `json:"count"`
	Type   models.MilestoneType `json:"type"`
	Reward string               `json:"reward"`
}

// Milestones is the fixed reward table.
var Milestones = []Milestone{
	{Count: 5, Type: models.MilestoneMagnets, Reward: "Кисть для клея Titebrush TM Titebond"},
	{Count: 10, Type: models.MilestoneBreeds, Reward: "Клей Titebond III 473 мл"},
	{Count: 30, Type: models.MilestoneBreeds, Reward: "Клей Titebond III 946 мл"},
	{Count: 50, Type: models.MilestoneBreeds, Reward: "Клей Titebond III 3,785 л"},
}

// MilestoneKey identifies a milestone regardless of its reward.
type MilestoneKey struct {
	Count int
	Type  models.MilestoneType
}

// PendingMilestones lists reached milestones that have not been granted yet.
func PendingMilestones(totalMagnets, uniqueBreeds int, granted map[MilestoneKey]bool) []Milestone {
	pending := make([]Milestone, 0)
	for _, m := range Milestones {
		current := totalMagnets
		if m.Type == models.MilestoneBreeds {
			current = uniqueBreeds
		}
		if current >= m.Count && !granted[MilestoneKey{Count: m.Count, Type: m.Type}] {
			pending = append(pending, m)
		}
	}
	return pending
}

// EvaluatePendingMilestones computes the pending milestones of a client.
func (l *Ledger) EvaluatePendingMilestones(ctx context.Context, clientID uuid.UUID) ([]Milestone, error) {
	db := l.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.Client{}).Where("id = ?", clientID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, notFound("client not found")
	}
	return pendingMilestones(db, clientID)
}

func pendingMilestones(tx *gorm.DB, clientID uuid.UUID) ([]Milestone, error) {
	var total, unique int64
	if err := tx.Model(&models.ClientMagnet{}).
		Where("client_id = ?", clientID).
		Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count magnets: %w", err)
	}
	if err := tx.Model(&models.ClientMagnet{}).
		Where("client_id = ?", clientID).
		Distinct("breed").
		Count(&unique).Error; err != nil {
		return nil, fmt.Errorf("count breeds: %w", err)
	}

	var bonuses []models.Bonus
	if err := tx.Select("milestone_count", "milestone_type").
		Where("client_id = ?", clientID).
		Find(&bonuses).Error; err != nil {
		return nil, fmt.Errorf("load bonuses: %w", err)
	}
	granted := make(map[MilestoneKey]bool, len(bonuses))
	for _, b := range bonuses {
		granted[MilestoneKey{Count: b.MilestoneCount, Type: b.MilestoneType}] = true
	}

	return PendingMilestones(int(total), int(unique), granted), nil
}

// GrantBonusInput is a manager's request to hand out a milestone reward.
type GrantBonusInput struct {
	ClientID       uuid.UUID
	MilestoneCount int
	MilestoneType  models.MilestoneType
	Reward         string
	OrderID        *uuid.UUID
}

// GrantBonus records a milestone reward and takes one unit of its stock.
// A milestone is granted at most once per client.
func (l *Ledger) GrantBonus(ctx context.Context, in GrantBonusInput) (*models.Bonus, error) {
	reward := strings.TrimSpace(in.Reward)
	if in.MilestoneCount <= 0 || reward == "" {
		return nil, invalidInput("milestone_count, milestone_type and reward are required")
	}
	if in.MilestoneType != models.MilestoneMagnets && in.MilestoneType != models.MilestoneBreeds {
		return nil, invalidInput("milestone_type must be %q or %q", models.MilestoneMagnets, models.MilestoneBreeds)
	}

	bonus := models.Bonus{
		ClientID:       in.ClientID,
		MilestoneCount: in.MilestoneCount,
		MilestoneType:  in.MilestoneType,
		Reward:         reward,
		OrderID:        in.OrderID,
		GivenAt:        l.now(),
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockClient(tx, in.ClientID); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&bonus)
		if res.Error != nil {
			return fmt.Errorf("insert bonus: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict("bonus for %d %s is already issued", in.MilestoneCount, in.MilestoneType)
		}

		ok, err := l.guard.ReserveBonus(ctx, tx, reward)
		if err != nil {
			return err
		}
		if !ok {
			return outOfStock("bonus «%s» is out of stock", reward)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Bonus] granted %q to client %s for %d %s", reward, in.ClientID, in.MilestoneCount, in.MilestoneType)
	return &bonus, nil
}

// ListBonuses returns a client's granted bonuses, newest first.
func (l *Ledger) ListBonuses(ctx context.Context, clientID uuid.UUID) ([]models.Bonus, error) {
	var bonuses []models.Bonus
	if err := l.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("given_at DESC").
		Find(&bonuses).Error; err != nil {
		return nil, err
	}
	return bonuses, nil
}
