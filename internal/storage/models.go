package storage

import (
	"time"

	"gorm.io/gorm"
)

// Alert condition and frequency values. "change" is accepted at the model
// level but has no evaluation semantics without a stored price baseline.
const (
	ConditionAbove  = "above"
	ConditionBelow  = "below"
	ConditionChange = "change"

	FrequencyOnce      = "once"
	FrequencyRecurring = "recurring"
)

// Alert types driving the evaluation phases.
const (
	AlertTypePrice           = "price"
	AlertTypeGas             = "gas"
	AlertTypeWhale           = "whale"
	AlertTypeAccountActivity = "account-activity"
)

// Alert is a user-defined alert definition.
type Alert struct {
	ID              int64   `gorm:"primaryKey;autoIncrement"`
	OwnerID         string  `gorm:"size:64;not null;index"`
	Type            string  `gorm:"size:32;not null;index"`
	Chain           string  `gorm:"size:64;not null"` // "<family>/<network>"
	Token           string  `gorm:"size:64"`
	AccountAddress  string  `gorm:"size:128"`
	Condition       string  `gorm:"size:16;not null"`
	Value           float64 `gorm:"type:decimal(20,6);not null"`
	NotifyChannel   string  `gorm:"size:32;not null"`  // telegram, smtp, webhook, log
	NotifyTarget    string  `gorm:"size:255;not null"` // chat id, email address, hook path
	Frequency       string  `gorm:"size:16;not null;default:recurring"`
	CooldownMins    int     `gorm:"not null;default:5"`
	IsActive        bool    `gorm:"not null;default:true;index"`
	LastTriggeredTS int64   `gorm:"not null;default:0"`
	CreatedTS       int64   `gorm:"not null;index"`
}

func (Alert) TableName() string {
	return "alerts"
}

// APICache persists provider responses keyed by (chain, method, params)
// signature. Entries are replaced, never mutated in place.
type APICache struct {
	CacheKey  string `gorm:"primaryKey;size:191"`
	Payload   []byte `gorm:"type:mediumblob;not null"`
	ExpiresTS int64  `gorm:"not null;index"`
	CreatedTS int64  `gorm:"not null"`
}

func (APICache) TableName() string {
	return "api_cache"
}

// EventLog is the notification audit trail.
type EventLog struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	AlertID   int64  `gorm:"not null;index"`
	EventType string `gorm:"size:32;not null;index"`
	Status    string `gorm:"size:16;not null"` // sent, failed
	Message   string `gorm:"type:text"`
	CreatedTS int64  `gorm:"not null;index"`
}

func (EventLog) TableName() string {
	return "event_log"
}

// BeforeCreate hooks for timestamps
func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedTS == 0 {
		a.CreatedTS = time.Now().Unix()
	}
	return nil
}

func (c *APICache) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedTS == 0 {
		c.CreatedTS = time.Now().Unix()
	}
	return nil
}

func (e *EventLog) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedTS == 0 {
		e.CreatedTS = time.Now().Unix()
	}
	return nil
}
