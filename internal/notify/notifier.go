// Package notify announces strong matches to downstream subscribers.
package notify

import (
	"context"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/models"
)

const EventStrongMatch = "match.strong"

// SNSPublisher is satisfied by *aws.SNSClient.
type SNSPublisher interface {
	PublishJSON(ctx context.Context, topicARN string, payload interface{}, attributes map[string]string) (string, error)
}

// StrongMatchEvent is the message body subscribers receive. Identity and score
// only; explanation detail stays behind the match API.
type StrongMatchEvent struct {
	Event        string    `json:"event"`
	MatchID      string    `json:"matchId"`
	AssignmentID string    `json:"assignmentId"`
	ProfileID    string    `json:"profileId"`
	OverallScore int       `json:"overallScore"`
	IsColdStart  bool      `json:"isColdStart"`
	ExpiresAt    time.Time `json:"expiresAt"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type StrongMatchNotifier struct {
	publisher SNSPublisher
	topicARN  string
	enabled   bool
	now       func() time.Time
	logger    logger.Logger
}

// NewStrongMatchNotifier returns a notifier that publishes to topicARN. A nil
// publisher or empty topic gives a disabled notifier.
func NewStrongMatchNotifier(publisher SNSPublisher, topicARN string, log logger.Logger) *StrongMatchNotifier {
	return &StrongMatchNotifier{
		publisher: publisher,
		topicARN:  topicARN,
		enabled:   publisher != nil && topicARN != "",
		now:       time.Now,
		logger:    log.WithFields(map[string]interface{}{"component": "strong-match-notifier"}),
	}
}

func (n *StrongMatchNotifier) Enabled() bool {
	return n != nil && n.enabled
}

func (n *StrongMatchNotifier) Notify(ctx context.Context, m *models.Match) error {
	if !n.Enabled() {
		return nil
	}

	event := StrongMatchEvent{
		Event:        EventStrongMatch,
		MatchID:      m.ID,
		AssignmentID: m.AssignmentID,
		ProfileID:    m.ProfileID,
		OverallScore: m.OverallScore,
		IsColdStart:  m.IsColdStart,
		ExpiresAt:    m.ExpiresAt,
		OccurredAt:   n.now().UTC(),
	}
	attrs := map[string]string{
		"eventType":    EventStrongMatch,
		"assignmentId": m.AssignmentID,
	}

	messageID, err := n.publisher.PublishJSON(ctx, n.topicARN, event, attrs)
	if err != nil {
		return errors.NewNotificationSendFailedError(EventStrongMatch, err)
	}

	n.logger.Info("Strong match notification published", map[string]interface{}{
		"matchId":   m.ID,
		"messageId": messageID,
	})
	return nil
}
