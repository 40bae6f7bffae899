package models

import "time"

// Setting is a key-value application setting.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	SettingPrivacyPolicyURL       = "privacy_policy_url"
	SettingPrivacyPolicyUpdatedAt = "privacy_policy_updated_at"
)
