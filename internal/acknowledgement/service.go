package acknowledgement

import (
	"context"
	"errors"
	"strings"
	"time"

	"Sahaaya/internal/apperror"
	"Sahaaya/internal/auth"
	"Sahaaya/internal/campaign"
	"Sahaaya/internal/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CampaignFinder is the campaign lookup the workflow depends on.
type CampaignFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*campaign.Campaign, error)
}

// Announcer is told about every acknowledgement that gets published.
type Announcer interface {
	Enqueue(ack Acknowledgement)
}

type Service struct {
	repo      Repository
	campaigns CampaignFinder
	announcer Announcer
	gate      *auth.Gate
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, campaigns CampaignFinder, announcer Announcer, gate *auth.Gate, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		campaigns: campaigns,
		announcer: announcer,
		gate:      gate,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate creates the draft acknowledgement of an approved NGO-affiliated
// campaign. When one already exists it is returned together with an
// AlreadyExists error.
func (s *Service) Generate(ctx context.Context, caller *auth.Identity, req GenerateRequest) (*Acknowledgement, error) {
	campaignID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.CampaignID))
	if err != nil {
		return nil, apperror.NotFound("campaign not found")
	}
	c, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, s.internal(err, "failed to fetch campaign")
	}
	if c == nil {
		return nil, apperror.NotFound("campaign not found")
	}
	if !c.IsNGOAffiliated || c.NGODetails == nil {
		return nil, apperror.Validation("acknowledgements can only be generated for NGO-affiliated campaigns")
	}
	if err := s.gate.Require(caller, auth.ObjAcknowledgement, auth.ActWrite); err != nil {
		return nil, err
	}
	if !s.gate.IsOwner(c.Creator, caller.UserID) {
		return nil, apperror.Forbidden("only the campaign creator can generate acknowledgements")
	}
	if err := c.RequireApproved(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByCampaign(ctx, campaignID)
	if err != nil {
		return nil, s.internal(err, "failed to fetch acknowledgement")
	}
	if existing != nil {
		return existing, apperror.AlreadyExists("acknowledgement already exists for this campaign")
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = DefaultMessage
	}
	now := s.now()
	ack := &Acknowledgement{
		ID:          primitive.NewObjectID(),
		CampaignID:  campaignID,
		NGOName:     c.NGODetails.Name,
		NGOLocation: c.NGODetails.Location,
		Message:     message,
		GeneratedBy: caller.UserID,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, ack); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// lost a race with a concurrent generate
			existing, findErr := s.repo.FindByCampaign(ctx, campaignID)
			if findErr != nil {
				return nil, s.internal(findErr, "failed to fetch acknowledgement")
			}
			return existing, apperror.AlreadyExists("acknowledgement already exists for this campaign")
		}
		return nil, s.internal(err, "failed to generate acknowledgement")
	}

	s.logger.Info("acknowledgement generated",
		zap.String("acknowledgement_id", ack.ID.Hex()),
		zap.String("campaign_id", campaignID.Hex()))
	return ack, nil
}

// Publish moves a draft to published. Publishing twice is rejected.
func (s *Service) Publish(ctx context.Context, id primitive.ObjectID, caller *auth.Identity) (*Acknowledgement, error) {
	ack, err := s.ownedAcknowledgement(ctx, id, caller, "publish")
	if err != nil {
		return nil, err
	}
	if ack.Status == StatusPublished {
		return nil, apperror.InvalidState("acknowledgement is already published")
	}

	published, err := s.repo.MarkPublished(ctx, id, s.now())
	if err != nil {
		return nil, s.internal(err, "failed to publish acknowledgement")
	}
	if published == nil {
		return nil, apperror.InvalidState("acknowledgement is already published")
	}

	s.metrics.RecordPublish()
	s.logger.Info("acknowledgement published", zap.String("acknowledgement_id", id.Hex()))
	if s.announcer != nil {
		s.announcer.Enqueue(*published)
	}
	return published, nil
}

// UpdateMessage replaces the message text in any status.
func (s *Service) UpdateMessage(ctx context.Context, id primitive.ObjectID, caller *auth.Identity, message string) (*Acknowledgement, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.Validation("message is required")
	}
	if _, err := s.ownedAcknowledgement(ctx, id, caller, "update"); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateMessage(ctx, id, message, s.now())
	if err != nil {
		return nil, s.internal(err, "failed to update acknowledgement")
	}
	if updated == nil {
		return nil, apperror.NotFound("acknowledgement not found")
	}
	return updated, nil
}

func (s *Service) GetByCampaign(ctx context.Context, campaignID primitive.ObjectID) (*Acknowledgement, error) {
	ack, err := s.repo.FindByCampaign(ctx, campaignID)
	if err != nil {
		return nil, s.internal(err, "failed to fetch acknowledgement")
	}
	if ack == nil {
		return nil, apperror.NotFound("acknowledgement not found for this campaign")
	}
	return ack, nil
}

// ListMine returns the acknowledgements the caller generated, newest first.
func (s *Service) ListMine(ctx context.Context, caller *auth.Identity) (*ListResponse, error) {
	if err := s.gate.Require(caller, auth.ObjAcknowledgement, auth.ActWrite); err != nil {
		return nil, err
	}
	acks, err := s.repo.ListByGenerator(ctx, caller.UserID)
	if err != nil {
		return nil, s.internal(err, "failed to fetch acknowledgements")
	}
	return &ListResponse{Count: len(acks), Acknowledgements: acks}, nil
}

func (s *Service) ownedAcknowledgement(ctx context.Context, id primitive.ObjectID, caller *auth.Identity, action string) (*Acknowledgement, error) {
	ack, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.internal(err, "failed to fetch acknowledgement")
	}
	if ack == nil {
		return nil, apperror.NotFound("acknowledgement not found")
	}
	if err := s.gate.Require(caller, auth.ObjAcknowledgement, auth.ActWrite); err != nil {
		return nil, err
	}
	if !s.gate.IsOwner(ack.GeneratedBy, caller.UserID) {
		return nil, apperror.Forbidden("only the creator can " + action + " this acknowledgement")
	}
	return ack, nil
}

func (s *Service) internal(err error, msg string) error {
	s.logger.Error(msg, zap.Error(err))
	return apperror.Internal(err, msg)
}
