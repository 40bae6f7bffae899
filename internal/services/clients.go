package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/joywood/internal/models"
	"github.com/example/joywood/internal/utils"
)

// AddClientInput is a manager-created client. Either full contact data or an
// Ozon order code alone is required.
type AddClientInput struct {
	Name          string
	Phone         string
	Channel       string
	OzonOrderCode string
	Actor         string
}

// AddClient creates a client. Clients known only by an Ozon code stay
// unregistered until they complete their contact data.
func (l *Ledger) AddClient(ctx context.Context, in AddClientInput) (*models.Client, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	code := strings.TrimSpace(in.OzonOrderCode)
	channel := strings.TrimSpace(in.Channel)

	client := models.Client{Name: name, Phone: phone, Channel: channel, CreatedBy: in.Actor}
	if code != "" {
		client.OzonOrderCode = &code
	}

	switch {
	case name != "" && phone != "":
		client.Registered = true
	case code != "":
		if client.Channel == "" {
			client.Channel = defaultOrderChannel
		}
		if client.Name == "" {
			client.Name = "Client " + code
		}
	default:
		return nil, invalidInput("either name and phone or an Ozon order code is required")
	}

	if err := l.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	log.Printf("[Client] %s added client %s (registered=%t)", in.Actor, client.ID, client.Registered)
	return &client, nil
}

// UpdateClient changes name and phone. Real contact data marks the client registered.
func (l *Ledger) UpdateClient(ctx context.Context, clientID uuid.UUID, name, phone string) (*models.Client, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" && phone == "" {
		return nil, invalidInput("name or phone is required")
	}

	updates := map[string]any{}
	if name != "" {
		updates["name"] = name
	}
	if phone != "" {
		updates["phone"] = phone
		updates["phone_digits"] = utils.PhoneDigits(phone)
	}
	if utf8.RuneCountInString(name) >= 2 || len(utils.PhoneDigits(phone)) >= 11 {
		updates["registered"] = true
	}

	db := l.db.WithContext(ctx)
	res := db.Model(&models.Client{}).Where("id = ?", clientID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("client not found")
	}

	var client models.Client
	if err := db.Take(&client, "id = ?", clientID).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// UpdateClientComment replaces the manager comment of a client.
func (l *Ledger) UpdateClientComment(ctx context.Context, clientID uuid.UUID, comment string) error {
	res := l.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", clientID).
		Update("comment", strings.TrimSpace(comment))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("client not found")
	}
	return nil
}

// DeleteClientCascade removes a client with everything attached to it.
// Stock is not restored.
func (l *Ledger) DeleteClientCascade(ctx context.Context, clientID uuid.UUID) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client models.Client
		err := tx.Take(&client, "id = ?", clientID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("client not found")
		}
		if err != nil {
			return err
		}

		for _, model := range []any{&models.ClientMagnet{}, &models.Bonus{}, &models.PolicyConsent{}, &models.Order{}} {
			if err := tx.Where("client_id = ?", clientID).Delete(model).Error; err != nil {
				return fmt.Errorf("delete client data: %w", err)
			}
		}
		return tx.Delete(&models.Client{}, "id = ?", clientID).Error
	})
	if err != nil {
		return err
	}

	l.invalidateRatings()
	log.Printf("[Client] deleted client %s with all data", clientID)
	return nil
}

// GetClient loads a client by id.
func (l *Ledger) GetClient(ctx context.Context, clientID uuid.UUID) (*models.Client, error) {
	var client models.Client
	err := l.db.WithContext(ctx).Take(&client, "id = ?", clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("client not found")
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}
