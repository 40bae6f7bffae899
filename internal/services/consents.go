package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/example/joywood/internal/models"
	"github.com/example/joywood/internal/utils"
)

// ConsentService records privacy policy acceptances.
type ConsentService struct {
	db *gorm.DB
}

// NewConsentService constructs ConsentService.
func NewConsentService(db *gorm.DB) *ConsentService {
	return &ConsentService{db: db}
}

// ConsentInput is one acceptance of the privacy policy.
type ConsentInput struct {
	Phone         string
	PolicyVersion string
	IPAddress     string
	UserAgent     string
}

// Save stores a consent, linking it to the client with the same phone when one exists.
func (s *ConsentService) Save(ctx context.Context, in ConsentInput) error {
	key, ok := utils.PhoneKey(in.Phone)
	if !ok {
		return invalidInput("phone must contain at least 10 digits")
	}

	db := s.db.WithContext(ctx)
	consent := models.PolicyConsent{
		Phone:         strings.TrimSpace(in.Phone),
		PolicyVersion: truncate(strings.TrimSpace(in.PolicyVersion), 100),
		IPAddress:     truncate(in.IPAddress, 45),
		UserAgent:     truncate(in.UserAgent, 500),
	}

	client, err := findClientByPhoneKey(db, key)
	switch {
	case err == nil:
		consent.ClientID = &client.ID
	case !errors.Is(err, ErrNotFound):
		return err
	}

	if err := db.Create(&consent).Error; err != nil {
		return fmt.Errorf("save consent: %w", err)
	}
	log.Printf("[Consent] stored consent version %q for %s", consent.PolicyVersion, consent.Phone)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
