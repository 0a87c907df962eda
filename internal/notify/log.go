package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender writes notifications to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Name() string { return "log" }

// Send logs the notification
func (s *LogSender) Send(ctx context.Context, n *Notification) error {
	s.log.WithFields(logrus.Fields{
		"alert_id":   n.AlertID,
		"alert_type": n.AlertType,
		"chain":      n.Chain,
		"token":      n.Token,
		"condition":  n.Condition,
		"threshold":  n.Threshold,
		"observed":   n.Observed,
	}).Info(n.Message)
	return nil
}
