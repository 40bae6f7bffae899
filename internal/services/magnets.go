package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/joywood/internal/models"
	"github.com/example/joywood/internal/utils"
)

// IssueMagnetInput is a manager's request to hand a magnet to a client.
type IssueMagnetInput struct {
	ClientID uuid.UUID
	Breed    string
	Stars    int
	Category string
}

// IssuedMagnet describes a magnet that was issued.
type IssuedMagnet struct {
	ID         uuid.UUID `json:"id"`
	Breed      string    `json:"breed"`
	Stars      int       `json:"stars"`
	Phone      string    `json:"phone"`
	GivenAt    time.Time `json:"given_at"`
	StockAfter int       `json:"stock_after"`
}

// IssueMagnet issues one magnet in transit, linked to the client's latest order.
func (l *Ledger) IssueMagnet(ctx context.Context, in IssueMagnetInput) (*IssuedMagnet, error) {
	breed := strings.TrimSpace(in.Breed)
	category := strings.TrimSpace(in.Category)
	if breed == "" || category == "" {
		return nil, invalidInput("breed, stars and category are required")
	}
	if in.Stars < 1 || in.Stars > 3 {
		return nil, invalidInput("stars must be between 1 and 3")
	}

	var issued *IssuedMagnet
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := lockClient(tx, in.ClientID)
		if err != nil {
			return err
		}

		orderID, err := latestOrderID(tx, client.ID)
		if err != nil {
			return err
		}

		magnet := models.ClientMagnet{
			ClientID: client.ID,
			Phone:    client.Phone,
			Breed:    breed,
			Stars:    in.Stars,
			Category: category,
			Status:   models.MagnetStatusInTransit,
			OrderID:  orderID,
			GivenAt:  l.now(),
		}
		inserted, err := insertMagnet(tx, &magnet)
		if err != nil {
			return err
		}
		if !inserted {
			return conflict("breed «%s» is already in this client's collection", breed)
		}

		ok, err := l.guard.Reserve(ctx, tx, breed)
		if err != nil {
			return err
		}
		if !ok {
			return l.guard.stockFailure(ctx, tx, breed)
		}

		stock, err := l.guard.stockOf(ctx, tx, breed)
		if err != nil {
			return fmt.Errorf("read stock: %w", err)
		}

		issued = &IssuedMagnet{
			ID:         magnet.ID,
			Breed:      breed,
			Stars:      magnet.Stars,
			Phone:      client.Phone,
			GivenAt:    magnet.GivenAt,
			StockAfter: stock,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.invalidateRatings()
	log.Printf("[Magnet] issued %s to client %s, stock left %d", issued.Breed, in.ClientID, issued.StockAfter)
	return issued, nil
}

// IssueWelcome hands the welcome magnet to a client on the caller's transaction.
// It reports false when the client already holds the welcome breed.
func (l *Ledger) IssueWelcome(ctx context.Context, tx *gorm.DB, client *models.Client, orderID *uuid.UUID) (bool, error) {
	magnet := models.ClientMagnet{
		ClientID: client.ID,
		Phone:    client.Phone,
		Breed:    l.welcome.Breed,
		Stars:    l.welcome.Stars,
		Category: l.welcome.Category,
		Status:   models.MagnetStatusInTransit,
		OrderID:  orderID,
		GivenAt:  l.now(),
	}
	inserted, err := insertMagnet(tx.WithContext(ctx), &magnet)
	if err != nil || !inserted {
		return false, err
	}
	if err := l.guard.ClampedDecrement(ctx, tx, l.welcome.Breed); err != nil {
		return false, err
	}
	return true, nil
}

type ScanOutcome string

const (
	ScanNotInCollection ScanOutcome = "not_in_collection"
	ScanRevealed        ScanOutcome = "revealed"
	ScanAlreadyRevealed ScanOutcome = "already_revealed"
)

// ScanResult is the outcome of a client scanning a physical magnet.
type ScanResult struct {
	Result     ScanOutcome `json:"result"`
	Breed      string      `json:"breed"`
	BreedKnown *bool       `json:"breed_known,omitempty"`
	MagnetID   *uuid.UUID  `json:"magnet_id,omitempty"`
	Stars      int         `json:"stars,omitempty"`
	Category   string      `json:"category,omitempty"`
	ClientName string      `json:"client_name,omitempty"`
	IsWelcome  bool        `json:"is_welcome,omitempty"`
}

// Scan reveals an in-transit magnet. Scanning an already revealed magnet is a no-op.
func (l *Ledger) Scan(ctx context.Context, phone, breed string) (*ScanResult, error) {
	key, ok := utils.PhoneKey(phone)
	if !ok {
		return nil, invalidInput("phone must contain at least 10 digits")
	}
	breed = strings.TrimSpace(breed)
	if breed == "" {
		return nil, invalidInput("breed is required")
	}

	db := l.db.WithContext(ctx)
	client, err := findClientByPhoneKey(db, key)
	if err != nil {
		return nil, err
	}

	var magnet models.ClientMagnet
	err = db.Take(&magnet, "client_id = ? AND breed = ?", client.ID, breed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var known int64
		if err := db.Model(&models.MagnetInventory{}).
			Where("breed = ? AND active = ?", breed, true).
			Count(&known).Error; err != nil {
			return nil, err
		}
		isKnown := known > 0
		return &ScanResult{Result: ScanNotInCollection, Breed: breed, BreedKnown: &isKnown}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load magnet: %w", err)
	}

	result := &ScanResult{
		Result:     ScanAlreadyRevealed,
		Breed:      breed,
		MagnetID:   &magnet.ID,
		Stars:      magnet.Stars,
		Category:   magnet.Category,
		ClientName: client.Name,
	}
	if magnet.Status != models.MagnetStatusInTransit {
		return result, nil
	}

	res := db.Model(&models.ClientMagnet{}).
		Where("id = ? AND status = ?", magnet.ID, models.MagnetStatusInTransit).
		Updates(map[string]any{
			"status":      models.MagnetStatusRevealed,
			"revealed_at": l.now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("reveal magnet: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		result.Result = ScanRevealed
		result.IsWelcome = breed == l.welcome.Breed
		l.invalidateRatings()
		log.Printf("[Magnet] client %s revealed %s", client.ID, breed)
	}
	return result, nil
}

// RemoveMagnet deletes a magnet and returns its unit to stock.
func (l *Ledger) RemoveMagnet(ctx context.Context, magnetID uuid.UUID) (*models.ClientMagnet, error) {
	var magnet models.ClientMagnet
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Take(&magnet, "id = ?", magnetID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("magnet not found")
		}
		if err != nil {
			return err
		}
		if err := l.guard.Release(ctx, tx, magnet.Breed); err != nil {
			return err
		}
		return tx.Delete(&models.ClientMagnet{}, "id = ?", magnet.ID).Error
	})
	if err != nil {
		return nil, err
	}

	l.invalidateRatings()
	log.Printf("[Magnet] removed %s from client %s", magnet.Breed, magnet.ClientID)
	return &magnet, nil
}

// ListMagnets returns a client's magnets, newest first.
func (l *Ledger) ListMagnets(ctx context.Context, clientID uuid.UUID) ([]models.ClientMagnet, error) {
	var magnets []models.ClientMagnet
	if err := l.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("given_at DESC").
		Find(&magnets).Error; err != nil {
		return nil, err
	}
	return magnets, nil
}

// findClientByPhoneKey resolves a client by the last ten digits of their phone.
func findClientByPhoneKey(db *gorm.DB, key string) (*models.Client, error) {
	var client models.Client
	err := db.Where("phone_digits LIKE ?", "%"+key).
		Order("created_at ASC").
		Take(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("participant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find client by phone: %w", err)
	}
	return &client, nil
}
