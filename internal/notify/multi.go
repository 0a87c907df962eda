package notify

import (
	"context"
	"fmt"
)

// MultiSender fans one notification out to several senders
type MultiSender struct {
	senders []Sender
}

// NewMultiSender creates a new multi-sender
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{
		senders: senders,
	}
}

func (s *MultiSender) Name() string { return "multi" }

// Send routes the notification to the sender matching its channel, or to
// all configured senders when no channel is set. A channel with no
// configured sender falls back to every sender rather than dropping the
// notification.
func (s *MultiSender) Send(ctx context.Context, n *Notification) error {
	targets := s.senders
	if n.Channel != "" {
		var matched []Sender
		for _, sender := range s.senders {
			if sender.Name() == n.Channel {
				matched = append(matched, sender)
			}
		}
		if len(matched) > 0 {
			targets = matched
		}
	}

	var errs []error
	for _, sender := range targets {
		if err := sender.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sender.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multi-sender errors: %v", errs)
	}

	return nil
}
