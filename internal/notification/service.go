package notification

import (
	"context"
	"strings"

	"Sahaaya/internal/acknowledgement"
	"Sahaaya/internal/apperror"
	"Sahaaya/internal/auth"
	"Sahaaya/internal/campaign"
	"Sahaaya/internal/config"
	"Sahaaya/internal/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type CampaignFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*campaign.Campaign, error)
}

type UserDirectory interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]auth.User, error)
}

type Mailer interface {
	Enabled() bool
	SendEmail(ctx context.Context, to, subject, body string) error
}

// DeliveryRecorder remembers which addresses a published acknowledgement reached.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, id primitive.ObjectID, emails []string) error
}

// NotificationService emails published acknowledgements to campaign supporters.
type NotificationService struct {
	campaigns  CampaignFinder
	users      UserDirectory
	mailer     Mailer
	deliveries DeliveryRecorder
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewNotificationService(campaigns CampaignFinder, users UserDirectory, mailer Mailer, deliveries DeliveryRecorder, m *metrics.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		campaigns:  campaigns,
		users:      users,
		mailer:     mailer,
		deliveries: deliveries,
		metrics:    m,
		logger:     logger,
	}
}

func (s *NotificationService) Enabled() bool {
	return s.mailer != nil && s.mailer.Enabled()
}

// SendAcknowledgement mails ack to every confirmed donor and participant of
// its campaign. Failed sends are logged and skipped. It returns the addresses
// that were reached.
func (s *NotificationService) SendAcknowledgement(ctx context.Context, ack acknowledgement.Acknowledgement) ([]string, error) {
	if !s.Enabled() {
		return nil, config.ErrEmailDisabled
	}

	c, err := s.campaigns.FindByID(ctx, ack.CampaignID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("campaign not found")
	}

	users, err := s.users.FindByIDs(ctx, c.Supporters())
	if err != nil {
		return nil, err
	}

	var sentTo []string
	for _, user := range users {
		email := strings.TrimSpace(user.Email)
		if email == "" {
			continue
		}
		body, err := renderThankYou(thankYouData{
			Name:          user.Name,
			CampaignTitle: c.Title,
			NGOName:       ack.NGOName,
			NGOLocation:   ack.NGOLocation,
			Message:       ack.Message,
		})
		if err != nil {
			return sentTo, err
		}
		if err := s.mailer.SendEmail(ctx, email, thankYouSubject+c.Title, body); err != nil {
			s.logger.Warn("failed to send acknowledgement email",
				zap.String("acknowledgement_id", ack.ID.Hex()),
				zap.String("to", email),
				zap.Error(err))
			s.metrics.RecordEmail("failed")
			continue
		}
		s.metrics.RecordEmail("sent")
		sentTo = append(sentTo, email)
	}

	if err := s.deliveries.RecordDelivery(ctx, ack.ID, sentTo); err != nil {
		return sentTo, err
	}
	s.logger.Info("acknowledgement delivered",
		zap.String("acknowledgement_id", ack.ID.Hex()),
		zap.Int("recipients", len(sentTo)))
	return sentTo, nil
}
