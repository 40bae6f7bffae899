package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/joywood/internal/models"
)

// InventoryGuard owns the magnet and bonus stock counters. The reserve and
// release methods run on the caller's transaction; stock never drops below zero
// because every decrement is a conditional update on stock > 0.
type InventoryGuard struct {
	db *gorm.DB
}

// NewInventoryGuard constructs InventoryGuard.
func NewInventoryGuard(db *gorm.DB) *InventoryGuard {
	return &InventoryGuard{db: db}
}

// Reserve takes one unit of an active breed. It reports false when the breed
// is unknown, inactive or exhausted.
func (g *InventoryGuard) Reserve(ctx context.Context, tx *gorm.DB, breed string) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.MagnetInventory{}).
		Where("breed = ? AND active = ? AND stock > 0", breed, true).
		Update("stock", gorm.Expr("stock - 1"))
	if res.Error != nil {
		return false, fmt.Errorf("reserve %s: %w", breed, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Release returns one unit of a breed to stock.
func (g *InventoryGuard) Release(ctx context.Context, tx *gorm.DB, breed string) error {
	if err := tx.WithContext(ctx).
		Model(&models.MagnetInventory{}).
		Where("breed = ?", breed).
		Update("stock", gorm.Expr("stock + 1")).Error; err != nil {
		return fmt.Errorf("release %s: %w", breed, err)
	}
	return nil
}

// ClampedDecrement takes one unit when any is left and ignores the active flag.
// The welcome gift goes out regardless of stock gating.
func (g *InventoryGuard) ClampedDecrement(ctx context.Context, tx *gorm.DB, breed string) error {
	if err := tx.WithContext(ctx).
		Model(&models.MagnetInventory{}).
		Where("breed = ? AND stock > 0", breed).
		Update("stock", gorm.Expr("stock - 1")).Error; err != nil {
		return fmt.Errorf("take %s: %w", breed, err)
	}
	return nil
}

// ReserveBonus takes one unit of a bonus reward.
func (g *InventoryGuard) ReserveBonus(ctx context.Context, tx *gorm.DB, reward string) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.BonusStock{}).
		Where("reward = ? AND stock > 0", reward).
		Update("stock", gorm.Expr("stock - 1"))
	if res.Error != nil {
		return false, fmt.Errorf("reserve bonus %s: %w", reward, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReleaseBonus returns one unit of a bonus reward, creating the stock row when missing.
func (g *InventoryGuard) ReleaseBonus(ctx context.Context, tx *gorm.DB, reward string) error {
	row := models.BonusStock{Reward: reward, Stock: 1}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "reward"}},
			DoUpdates: clause.Assignments(map[string]any{
				"stock":      gorm.Expr("bonus_stock.stock + 1"),
				"updated_at": tx.NowFunc(),
			}),
		}).
		Create(&row).Error; err != nil {
		return fmt.Errorf("release bonus %s: %w", reward, err)
	}
	return nil
}

// stockFailure explains why Reserve refused a breed.
func (g *InventoryGuard) stockFailure(ctx context.Context, tx *gorm.DB, breed string) error {
	var inv models.MagnetInventory
	err := tx.WithContext(ctx).Take(&inv, "breed = ?", breed).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return outOfStock("magnet «%s» is not stocked", breed)
	case err != nil:
		return err
	case !inv.Active:
		return outOfStock("magnet «%s» is withdrawn from the promotion", breed)
	default:
		return outOfStock("magnet «%s» is out of stock (left: %d)", breed, inv.Stock)
	}
}

func (g *InventoryGuard) stockOf(ctx context.Context, tx *gorm.DB, breed string) (int, error) {
	var inv models.MagnetInventory
	if err := tx.WithContext(ctx).Select("stock").Take(&inv, "breed = ?", breed).Error; err != nil {
		return 0, err
	}
	return inv.Stock, nil
}

// InventoryItem is one row of a bulk stock update.
type InventoryItem struct {
	Breed    string `json:"breed"`
	Stars    int    `json:"stars"`
	Category string `json:"category"`
	Stock    int    `json:"stock"`
}

// ListInventory returns every breed ordered by tier.
func (g *InventoryGuard) ListInventory(ctx context.Context) ([]models.MagnetInventory, error) {
	var items []models.MagnetInventory
	if err := g.db.WithContext(ctx).Order("stars, breed").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertInventory sets stock for the given breeds, creating active rows for new ones.
// Existing rows keep their tier, category and active flag.
func (g *InventoryGuard) UpsertInventory(ctx context.Context, items []InventoryItem) (int, error) {
	if len(items) == 0 {
		return 0, invalidInput("items must be a non-empty list of {breed, stars, category, stock}")
	}

	rows := make([]models.MagnetInventory, 0, len(items))
	for _, item := range items {
		breed := strings.TrimSpace(item.Breed)
		if breed == "" {
			continue
		}
		if item.Stock < 0 {
			return 0, invalidInput("stock for «%s» must not be negative", breed)
		}
		stars := item.Stars
		if stars == 0 {
			stars = 1
		}
		if stars < 1 || stars > 3 {
			return 0, invalidInput("stars for «%s» must be between 1 and 3", breed)
		}
		rows = append(rows, models.MagnetInventory{
			Breed:    breed,
			Stars:    stars,
			Category: strings.TrimSpace(item.Category),
			Stock:    item.Stock,
			Active:   true,
		})
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "breed"}},
				DoUpdates: clause.AssignmentColumns([]string{"stock", "updated_at"}),
			}).Create(&rows[i]).Error; err != nil {
				return fmt.Errorf("upsert inventory %s: %w", rows[i].Breed, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// SetBreedActive toggles whether a breed may be issued.
func (g *InventoryGuard) SetBreedActive(ctx context.Context, breed string, active bool) error {
	res := g.db.WithContext(ctx).
		Model(&models.MagnetInventory{}).
		Where("breed = ?", breed).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("breed «%s» not found", breed)
	}
	return nil
}

// ListBonusStock returns stock per bonus reward.
func (g *InventoryGuard) ListBonusStock(ctx context.Context) ([]models.BonusStock, error) {
	var stock []models.BonusStock
	if err := g.db.WithContext(ctx).Order("reward").Find(&stock).Error; err != nil {
		return nil, err
	}
	return stock, nil
}

// SetBonusStock overwrites the stock of a bonus reward.
func (g *InventoryGuard) SetBonusStock(ctx context.Context, reward string, stock int) error {
	reward = strings.TrimSpace(reward)
	if reward == "" {
		return invalidInput("reward is required")
	}
	if stock < 0 {
		return invalidInput("stock must not be negative")
	}

	row := models.BonusStock{Reward: reward, Stock: stock}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reward"}},
		DoUpdates: clause.AssignmentColumns([]string{"stock", "updated_at"}),
	}).Create(&row).Error
}
