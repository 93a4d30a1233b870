package model

import (
	"time"
)

// Well-known setting keys
const (
	SettingHighValueThreshold = "HIGH_VALUE_THRESHOLD"
)

// Setting is a string-typed key/value configuration entry editable at runtime
type Setting struct {
	Key       string    `gorm:"type:varchar(100);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
