package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/joywood/internal/models"
	"github.com/example/joywood/internal/utils"
)

// StarXP is the raccoon experience earned per revealed magnet by star tier.
var StarXP = map[int]int{1: 10, 2: 25, 3: 50}

// RaccoonLevel is one step of the collector progression.
type RaccoonLevel struct {
	MinXP      int    `json:"min_xp"`
	Level      int    `json:"level"`
	Name       string `json:"name"`
	EmptySlots int    `json:"empty_slots"`
}

// RaccoonLevels is ordered by MinXP.
var RaccoonLevels = []RaccoonLevel{
	{MinXP: 0, Level: 1, Name: "Сборщик щепы", EmptySlots: 3},
	{MinXP: 50, Level: 2, Name: "Сортировщик пород", EmptySlots: 5},
	{MinXP: 200, Level: 3, Name: "Шлифовщик", EmptySlots: 7},
	{MinXP: 450, Level: 4, Name: "Столяр на опыте", EmptySlots: 10},
	{MinXP: 800, Level: 5, Name: "Хранитель секретов", EmptySlots: 12},
	{MinXP: 1000, Level: 6, Name: "Резчик по легендам", EmptySlots: 15},
}

// Raccoon is the progression state computed from revealed magnets.
type Raccoon struct {
	XP         int     `json:"xp"`
	Level      int     `json:"level"`
	LevelName  string  `json:"level_name"`
	EmptySlots int     `json:"empty_slots"`
	NextXP     *int    `json:"next_xp"`
	Progress   float64 `json:"progress"`
}

// CalcRaccoon computes the raccoon level for the given revealed magnets.
func CalcRaccoon(revealed []models.ClientMagnet) Raccoon {
	xp := 0
	for _, m := range revealed {
		xp += StarXP[m.Stars]
	}

	current := RaccoonLevels[0]
	var next *RaccoonLevel
	for i, lvl := range RaccoonLevels {
		if xp < lvl.MinXP {
			next = &RaccoonLevels[i]
			break
		}
		current = lvl
	}

	r := Raccoon{XP: xp, Level: current.Level, LevelName: current.Name, EmptySlots: current.EmptySlots, Progress: 1}
	if next != nil {
		nextXP := next.MinXP
		r.NextXP = &nextXP
		r.Progress = float64(xp-current.MinXP) / float64(next.MinXP-current.MinXP)
	}
	return r
}

// HiddenMagnet is an in-transit magnet whose breed is not shown yet.
type HiddenMagnet struct {
	ID       uuid.UUID `json:"id"`
	Stars    int       `json:"stars"`
	Category string    `json:"category"`
	GivenAt  time.Time `json:"given_at"`
}

// ConsentStatus tells whether the client has to accept the current privacy policy.
type ConsentStatus struct {
	Needed        bool   `json:"needed"`
	PolicyURL     string `json:"policy_url,omitempty"`
	PolicyVersion string `json:"policy_version,omitempty"`
}

// CollectionView is everything a client sees about their collection.
type CollectionView struct {
	ClientName     string                `json:"client_name"`
	Registered     bool                  `json:"registered"`
	Magnets        []models.ClientMagnet `json:"magnets"`
	InTransit      []HiddenMagnet        `json:"in_transit"`
	Bonuses        []models.Bonus        `json:"bonuses"`
	InactiveBreeds []string              `json:"inactive_breeds"`
	Raccoon        Raccoon               `json:"raccoon"`
	Rating         *Rating               `json:"rating"`
	Consent        ConsentStatus         `json:"consent"`
}

// CollectionService builds the client-facing collection view.
type CollectionService struct {
	db       *gorm.DB
	ratings  *RatingCache
	settings *SettingsService
}

// NewCollectionService constructs CollectionService.
func NewCollectionService(db *gorm.DB, ratings *RatingCache, settings *SettingsService) *CollectionService {
	return &CollectionService{db: db, ratings: ratings, settings: settings}
}

// Collection looks a client up by phone and returns their collection.
func (s *CollectionService) Collection(ctx context.Context, phone string) (*CollectionView, error) {
	key, ok := utils.PhoneKey(phone)
	if !ok {
		return nil, invalidInput("phone must contain at least 10 digits")
	}

	db := s.db.WithContext(ctx)
	client, err := findClientByPhoneKey(db, key)
	if err != nil {
		if le, ok := AsLedgerError(err); ok && le.Kind == KindNotFound {
			_ = logLookup(db, strings.TrimSpace(phone), EventNotFound, "")
		}
		return nil, err
	}

	var magnets []models.ClientMagnet
	if err := db.Where("client_id = ?", client.ID).Order("given_at ASC").Find(&magnets).Error; err != nil {
		return nil, fmt.Errorf("load magnets: %w", err)
	}

	view := &CollectionView{
		ClientName:     client.Name,
		Registered:     client.Registered,
		Magnets:        []models.ClientMagnet{},
		InTransit:      []HiddenMagnet{},
		InactiveBreeds: []string{},
	}
	for _, m := range magnets {
		if m.Status == models.MagnetStatusInTransit {
			view.InTransit = append(view.InTransit, HiddenMagnet{ID: m.ID, Stars: m.Stars, Category: m.Category, GivenAt: m.GivenAt})
			continue
		}
		view.Magnets = append(view.Magnets, m)
	}
	view.Raccoon = CalcRaccoon(view.Magnets)

	if err := db.Where("client_id = ?", client.ID).Order("given_at ASC").Find(&view.Bonuses).Error; err != nil {
		return nil, fmt.Errorf("load bonuses: %w", err)
	}
	if view.Bonuses == nil {
		view.Bonuses = []models.Bonus{}
	}

	if err := db.Model(&models.MagnetInventory{}).
		Where("active = ?", false).
		Order("breed").
		Pluck("breed", &view.InactiveBreeds).Error; err != nil {
		return nil, fmt.Errorf("load inactive breeds: %w", err)
	}
	if view.InactiveBreeds == nil {
		view.InactiveBreeds = []string{}
	}

	if s.ratings != nil {
		if view.Rating, err = s.ratings.Rating(ctx, client.ID); err != nil {
			return nil, err
		}
	}

	if view.Consent, err = s.consentStatus(db, client.ID); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *CollectionService) consentStatus(db *gorm.DB, clientID uuid.UUID) (ConsentStatus, error) {
	settings, err := s.settings.all(db)
	if err != nil {
		return ConsentStatus{}, err
	}
	url := settings[models.SettingPrivacyPolicyURL]
	if url == "" {
		return ConsentStatus{}, nil
	}
	version := settings[models.SettingPrivacyPolicyUpdatedAt]
	if version == "" {
		version = url
	}

	var accepted int64
	if err := db.Model(&models.PolicyConsent{}).
		Where("client_id = ? AND policy_version = ?", clientID, version).
		Count(&accepted).Error; err != nil {
		return ConsentStatus{}, fmt.Errorf("check consent: %w", err)
	}
	return ConsentStatus{Needed: accepted == 0, PolicyURL: url, PolicyVersion: version}, nil
}
