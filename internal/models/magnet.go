package models

import (
	"time"

	"github.com/google/uuid"
)

type MagnetStatus string

const (
	MagnetStatusInTransit MagnetStatus = "in_transit"
	MagnetStatusRevealed  MagnetStatus = "revealed"
)

// ClientMagnet is a collectible issued to a client. A client holds at most one
// magnet per breed; status only moves from in_transit to revealed.
type ClientMagnet struct {
	BaseModel
	ClientID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_client_magnets_client_breed,priority:1" json:"client_id"`
	Phone      string       `json:"phone"`
	Breed      string       `gorm:"not null;uniqueIndex:idx_client_magnets_client_breed,priority:2" json:"breed"`
	Stars      int          `gorm:"not null" json:"stars"`
	Category   string       `json:"category"`
	Status     MagnetStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	OrderID    *uuid.UUID   `gorm:"type:uuid;index" json:"order_id"`
	GivenAt    time.Time    `gorm:"not null;index" json:"given_at"`
	RevealedAt *time.Time   `json:"revealed_at,omitempty"`
}

// MagnetInventory is the per-breed stock counter.
type MagnetInventory struct {
	Breed     string    `gorm:"primaryKey" json:"breed"`
	Stars     int       `gorm:"not null" json:"stars"`
	Category  string    `json:"category"`
	Stock     int       `gorm:"not null;check:stock >= 0" json:"stock"`
	Active    bool      `gorm:"not null" json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MagnetInventory) TableName() string {
	return "magnet_inventory"
}
