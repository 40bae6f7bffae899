package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const OrderStatusActive = "active"

// Order is a purchase event. The first order of a client triggers the welcome gift.
type Order struct {
	BaseModel
	ClientID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_orders_client_code,priority:1" json:"client_id"`
	Client        *Client         `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	OrderCode     *string         `gorm:"uniqueIndex:idx_orders_client_code,priority:2;index" json:"order_code"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Channel       string          `json:"channel"`
	Status        string          `gorm:"type:varchar(32);not null" json:"status"`
	Comment       string          `json:"comment"`
	MagnetComment string          `json:"magnet_comment"`
	CreatedBy     string          `json:"created_by,omitempty"`
}
