// Package notify dispatches alert notifications to their configured
// channels. Senders format a channel-specific message from one payload.
package notify

import (
	"context"
	"time"
)

// Notification carries everything a sender needs to format a message.
type Notification struct {
	AlertID     int64
	AlertType   string // price, gas, whale, account-activity
	Chain       string
	Token       string
	Condition   string
	Threshold   float64
	Observed    float64 // the metric value that satisfied the condition
	Message     string  // pre-formatted summary line
	Channel     string  // requested sender name (log, telegram, smtp, webhook); empty means all
	Target      string  // channel-specific destination (chat id, email, hook path)
	Timestamp   time.Time
	Environment string
}

// Sender defines the interface for notification senders
type Sender interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}
