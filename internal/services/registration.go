package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/joywood/internal/models"
	"github.com/example/joywood/internal/utils"
)

const (
	EventOzonCodeNotMatched = "ozon_code_not_matched"
	EventRegisteredMerged   = "registered_merged"
	EventRegisteredNew      = "registered_new"
	EventNotFound           = "not_found"
)

var (
	codeSeparator = regexp.MustCompile(`[-\s]`)
	numericPrefix = regexp.MustCompile(`^\d+$`)
)

// RegistrationService handles client self-registration.
type RegistrationService struct {
	db *gorm.DB
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(db *gorm.DB) *RegistrationService {
	return &RegistrationService{db: db}
}

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Name          string
	Phone         string
	OzonOrderCode string
}

// RegisterResult identifies the registered client.
type RegisterResult struct {
	ID     uuid.UUID `json:"id"`
	Merged bool      `json:"merged"`
}

// Register links a client's contact data to the promotion. With an Ozon code
// the data is merged into the unregistered client created from that order;
// otherwise a client with the same phone is updated or a new one is created.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	code := strings.TrimSpace(in.OzonOrderCode)
	if utf8.RuneCountInString(name) < 2 {
		return nil, invalidInput("name must be at least 2 characters")
	}
	if len(phone) < 6 {
		return nil, invalidInput("phone is required")
	}

	prefix := ""
	if code != "" {
		if first := strings.TrimSpace(codeSeparator.Split(code, 2)[0]); numericPrefix.MatchString(first) {
			prefix = first
		}
	}

	db := s.db.WithContext(ctx)
	result := &RegisterResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		if prefix != "" {
			var client models.Client
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("registered = ? AND ozon_order_code LIKE ?", false, prefix+"%").
				Order("created_at ASC").
				Take(&client).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("we could not find your orders yet, try again after delivery")
			}
			if err != nil {
				return fmt.Errorf("match unregistered client: %w", err)
			}

			if err := tx.Model(&models.Client{}).Where("id = ?", client.ID).Updates(map[string]any{
				"name":         prefix + " " + name,
				"phone":        phone,
				"phone_digits": utils.PhoneDigits(phone),
				"channel":      defaultOrderChannel,
				"registered":   true,
			}).Error; err != nil {
				return fmt.Errorf("merge client: %w", err)
			}
			result.ID = client.ID
			result.Merged = true
			return logLookup(tx, phone, EventRegisteredMerged, fmt.Sprintf("code=%s client=%s", code, client.ID))
		}

		var client models.Client
		err := tx.Take(&client, "phone = ?", phone).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			client = models.Client{Name: name, Phone: phone, Registered: true}
			if code != "" {
				client.OzonOrderCode = &code
				client.Channel = defaultOrderChannel
			}
			if err := tx.Create(&client).Error; err != nil {
				return fmt.Errorf("create client: %w", err)
			}
		case err != nil:
			return fmt.Errorf("find client by phone: %w", err)
		default:
			updates := map[string]any{"name": name, "registered": true}
			if code != "" {
				updates["ozon_order_code"] = code
			}
			if err := tx.Model(&models.Client{}).Where("id = ?", client.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update client: %w", err)
			}
		}
		result.ID = client.ID
		return logLookup(tx, phone, EventRegisteredNew, fmt.Sprintf("code=%s client=%s", code, client.ID))
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if logErr := logLookup(db, phone, EventOzonCodeNotMatched, "code="+code); logErr != nil {
				log.Printf("[Register] failed to log unmatched code: %v", logErr)
			}
		}
		return nil, err
	}

	log.Printf("[Register] client %s registered (merged=%t)", result.ID, result.Merged)
	return result, nil
}

func logLookup(db *gorm.DB, phone, event, details string) error {
	entry := models.LookupLog{Phone: phone, Event: event, Details: details}
	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("lookup log: %w", err)
	}
	return nil
}
