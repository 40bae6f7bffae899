package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/joywood/internal/models"
)

// WelcomeGift describes the magnet handed out with a client's first order.
type WelcomeGift struct {
	Breed    string
	Stars    int
	Category string
}

// LedgerOptions configures a Ledger.
type LedgerOptions struct {
	Clock   Clock
	Welcome WelcomeGift
	Ratings *RatingCache
}

// Ledger is the reward ledger: it issues magnets, grants milestone bonuses and
// mutates orders and clients while keeping stock and uniqueness invariants.
type Ledger struct {
	db      *gorm.DB
	guard   *InventoryGuard
	clock   Clock
	welcome WelcomeGift
	ratings *RatingCache
}

// NewLedger constructs Ledger.
func NewLedger(db *gorm.DB, guard *InventoryGuard, opts LedgerOptions) *Ledger {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Welcome.Breed == "" {
		opts.Welcome = WelcomeGift{Breed: "Падук", Stars: 2, Category: "Особенный"}
	}
	return &Ledger{
		db:      db,
		guard:   guard,
		clock:   opts.Clock,
		welcome: opts.Welcome,
		ratings: opts.Ratings,
	}
}

// Welcome returns the configured welcome gift.
func (l *Ledger) Welcome() WelcomeGift {
	return l.welcome
}

func (l *Ledger) now() time.Time {
	return l.clock.Now().UTC()
}

func (l *Ledger) invalidateRatings() {
	if l.ratings != nil {
		l.ratings.Invalidate()
	}
}

// lockClient loads a client row and locks it for the rest of the transaction.
func lockClient(tx *gorm.DB, clientID uuid.UUID) (*models.Client, error) {
	var client models.Client
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&client, "id = ?", clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("client not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	return &client, nil
}

func latestOrderID(tx *gorm.DB, clientID uuid.UUID) (*uuid.UUID, error) {
	var order models.Order
	err := tx.Select("id").
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest order: %w", err)
	}
	return &order.ID, nil
}

// insertMagnet inserts a magnet unless the client already owns the breed.
func insertMagnet(tx *gorm.DB, magnet *models.ClientMagnet) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(magnet)
	if res.Error != nil {
		return false, fmt.Errorf("insert magnet: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func magnetGivenSince(tx *gorm.DB, clientID uuid.UUID, since time.Time) (bool, error) {
	var count int64
	if err := tx.Model(&models.ClientMagnet{}).
		Where("client_id = ? AND given_at >= ?", clientID, since).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// lockCodePrefix serialises order intake for one client code prefix until the
// transaction ends. A missing client row cannot be locked with FOR UPDATE.
// SQLite already serialises writers.
func lockCodePrefix(tx *gorm.DB, prefix string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "order-code:"+prefix).Error
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
