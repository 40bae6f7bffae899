package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/joywood/internal/utils"
)

// Client is a promotion participant. Rows created from an Ozon order code alone
// stay unregistered until the client completes their contact data.
type Client struct {
	BaseModel
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	PhoneDigits   string  `gorm:"index" json:"-"`
	Channel       string  `json:"channel"`
	OzonOrderCode *string `gorm:"index" json:"ozon_order_code"`
	Registered    bool    `gorm:"not null" json:"registered"`
	Comment       string  `json:"comment"`
	CreatedBy     string  `json:"created_by,omitempty"`
}

// BeforeSave keeps the digits-only phone copy in sync for phone lookups.
func (c *Client) BeforeSave(tx *gorm.DB) error {
	c.PhoneDigits = utils.PhoneDigits(c.Phone)
	return nil
}

// OrderCodes splits the stored comma separated Ozon code list.
func (c *Client) OrderCodes() []string {
	if c.OzonOrderCode == nil || *c.OzonOrderCode == "" {
		return nil
	}
	parts := strings.Split(*c.OzonOrderCode, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, p)
		}
	}
	return codes
}

// PolicyConsent records a client's acceptance of the privacy policy.
type PolicyConsent struct {
	BaseModel
	ClientID      *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	Phone         string     `json:"phone"`
	PolicyVersion string     `gorm:"size:100" json:"policy_version"`
	IPAddress     string     `gorm:"size:45" json:"ip_address"`
	UserAgent     string     `gorm:"size:500" json:"user_agent"`
}

// LookupLog is the audit trail of self-service lookups and registrations.
type LookupLog struct {
	BaseModel
	Phone   string `gorm:"index" json:"phone"`
	Event   string `gorm:"type:varchar(64);index" json:"event"`
	Details string `json:"details"`
}

func (LookupLog) TableName() string {
	return "lookup_log"
}
