package notify

import (
	"context"

	mqcontracts "mailnight/contracts/mq"
)

// Publisher is the part of the broker client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// MQNotifier turns mail events into broker messages; PushHandler delivers
// them to the hub on the consuming side.
type MQNotifier struct {
	publisher Publisher
}

func NewMQNotifier(p Publisher) *MQNotifier {
	return &MQNotifier{publisher: p}
}

func (n *MQNotifier) EmailSent(ctx context.Context, p mqcontracts.EmailSentPayload) error {
	return n.publisher.Publish(ctx, mqcontracts.RoutingKeyEmailSent, p)
}

func (n *MQNotifier) UnreadCount(ctx context.Context, userID, count int) error {
	return n.publisher.Publish(ctx, mqcontracts.RoutingKeyMailboxUnread, mqcontracts.UnreadCountPayload{
		UserID: userID,
		Count:  count,
	})
}

// Nop drops every notification. Used when notifications are disabled.
type Nop struct{}

func (Nop) EmailSent(context.Context, mqcontracts.EmailSentPayload) error { return nil }
func (Nop) UnreadCount(context.Context, int, int) error                  { return nil }
