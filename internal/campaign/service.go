package campaign

import (
	"context"
	"errors"
	"strings"
	"time"

	"Sahaaya/internal/apperror"
	"Sahaaya/internal/auth"
	"Sahaaya/internal/config"
	"Sahaaya/internal/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxWriteAttempts bounds how often a read-modify-write is retried after a
// version conflict before the caller is asked to retry.
const maxWriteAttempts = 3

type Service struct {
	repo       Repository
	gate       *auth.Gate
	metrics    *metrics.Metrics
	logger     *zap.Logger
	feePercent float64
	now        func() time.Time
}

func NewService(repo Repository, gate *auth.Gate, m *metrics.Metrics, cfg *config.AppConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		gate:       gate,
		metrics:    m,
		logger:     logger,
		feePercent: cfg.PlatformFeePercent,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) view(c *Campaign, caller *auth.Identity, withDonations bool) View {
	opts := viewOptions{feePercent: s.feePercent, withDonations: withDonations}
	if caller != nil {
		opts.caller = &caller.UserID
	}
	return newView(c, opts)
}

// Propose records a new pending campaign owned by the caller.
func (s *Service) Propose(ctx context.Context, caller *auth.Identity, req ProposeRequest) (*View, error) {
	if err := s.gate.Require(caller, auth.ObjCampaign, auth.ActPropose); err != nil {
		return nil, err
	}
	c, err := NewCampaign(req, caller.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, s.internal(err, "failed to create campaign")
	}

	s.metrics.RecordProposal()
	s.logger.Info("campaign proposed",
		zap.String("campaign_id", c.ID.Hex()),
		zap.String("creator", caller.UserID.Hex()))
	v := s.view(c, caller, true)
	return &v, nil
}

// List returns campaigns newest first, without their donation ledgers.
// caller may be nil for anonymous requests.
func (s *Service) List(ctx context.Context, caller *auth.Identity, filter ListFilter) ([]View, error) {
	campaigns, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.internal(err, "failed to fetch campaigns")
	}
	views := make([]View, 0, len(campaigns))
	for i := range campaigns {
		views = append(views, s.view(&campaigns[i], caller, false))
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID, caller *auth.Identity) (*View, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(c, caller, true)
	return &v, nil
}

// AdminList returns every campaign including donations.
func (s *Service) AdminList(ctx context.Context, caller *auth.Identity, filter ListFilter) ([]View, error) {
	if err := s.gate.Require(caller, auth.ObjCampaign, auth.ActListAll); err != nil {
		return nil, err
	}
	campaigns, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.internal(err, "failed to fetch campaigns")
	}
	views := make([]View, 0, len(campaigns))
	for i := range campaigns {
		views = append(views, s.view(&campaigns[i], nil, true))
	}
	return views, nil
}

func (s *Service) Approve(ctx context.Context, id primitive.ObjectID, caller *auth.Identity) (*View, error) {
	return s.decide(ctx, id, caller, StatusApproved, auth.ActApprove)
}

func (s *Service) Reject(ctx context.Context, id primitive.ObjectID, caller *auth.Identity) (*View, error) {
	return s.decide(ctx, id, caller, StatusRejected, auth.ActReject)
}

func (s *Service) decide(ctx context.Context, id primitive.ObjectID, caller *auth.Identity, status, act string) (*View, error) {
	c, err := s.mutate(ctx, id, func(c *Campaign) error {
		if err := s.gate.Require(caller, auth.ObjCampaign, act); err != nil {
			return err
		}
		c.Decide(status, s.now())
		return nil
	}, s.repo.Replace)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDecision(status)
	s.logger.Info("campaign decided",
		zap.String("campaign_id", id.Hex()),
		zap.String("status", status),
		zap.String("admin", caller.UserID.Hex()))
	v := s.view(c, nil, true)
	return &v, nil
}

// Join enrolls the caller and returns the new popularity score.
func (s *Service) Join(ctx context.Context, id primitive.ObjectID, caller *auth.Identity) (*JoinResult, error) {
	var score int
	_, err := s.mutate(ctx, id, func(c *Campaign) error {
		if err := s.gate.Require(caller, auth.ObjCampaign, auth.ActJoin); err != nil {
			return err
		}
		var err error
		score, err = c.Join(caller.UserID, s.now())
		return err
	}, s.repo.Replace)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordJoin()
	return &JoinResult{PopularityScore: score}, nil
}

// Donate records a pending pledge from the caller.
func (s *Service) Donate(ctx context.Context, id primitive.ObjectID, caller *auth.Identity, req DonateRequest) (*Donation, error) {
	if err := ValidateDonationAmount(req.Amount); err != nil {
		return nil, err
	}

	var donation *Donation
	_, err := s.mutate(ctx, id, func(c *Campaign) error {
		if err := s.gate.Require(caller, auth.ObjCampaign, auth.ActDonate); err != nil {
			return err
		}
		var err error
		donation, err = c.Pledge(caller.UserID, req.Amount, req.PaymentRef, s.now())
		return err
	}, s.repo.Replace)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPledge()
	return donation, nil
}

// ConfirmReceived marks a donation received, credits the named goal and the
// donor's running total. All three changes are stored atomically. goalID may
// be empty; it is only parsed once the campaign and the caller have been checked.
func (s *Service) ConfirmReceived(ctx context.Context, campaignID, donationID primitive.ObjectID, goalID string, caller *auth.Identity) (*Donation, error) {
	var donation *Donation
	_, err := s.mutate(ctx, campaignID, func(c *Campaign) error {
		if err := s.gate.Require(caller, auth.ObjDonation, auth.ActConfirm); err != nil {
			return err
		}
		goal, err := parseGoalID(goalID)
		if err != nil {
			return err
		}
		donation, err = c.ConfirmDonation(donationID, goal, s.now())
		return err
	}, func(ctx context.Context, c *Campaign) error {
		return s.repo.ConfirmDonation(ctx, c, donation.Donor, donation.Amount)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordConfirmation(donation.Amount)
	s.logger.Info("donation confirmed",
		zap.String("campaign_id", campaignID.Hex()),
		zap.String("donation_id", donationID.Hex()),
		zap.Float64("amount", donation.Amount))
	return donation, nil
}

func (s *Service) DashboardStats(ctx context.Context, caller *auth.Identity) (*DashboardStats, error) {
	if err := s.gate.Require(caller, auth.ObjDashboard, auth.ActRead); err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, s.internal(err, "failed to fetch dashboard stats")
	}
	return stats, nil
}

func parseGoalID(raw string) (*primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperror.Validation("goal_id is malformed")
	}
	return &id, nil
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (*Campaign, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.internal(err, "failed to fetch campaign")
	}
	if c == nil {
		return nil, apperror.NotFound("campaign not found")
	}
	return c, nil
}

// mutate loads the campaign, applies change and saves it. On a version
// conflict the campaign is re-read and change runs again against the fresh
// state, so its checks always see the latest membership and statuses.
func (s *Service) mutate(ctx context.Context, id primitive.ObjectID, change func(*Campaign) error, save func(context.Context, *Campaign) error) (*Campaign, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		c, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := change(c); err != nil {
			return nil, err
		}

		err = save(ctx, c)
		if errors.Is(err, ErrVersionConflict) {
			s.logger.Debug("campaign write conflict, retrying",
				zap.String("campaign_id", id.Hex()),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, s.internal(err, "failed to save campaign")
		}
		return c, nil
	}
	return nil, apperror.InvalidState("campaign was modified concurrently, please retry")
}

func (s *Service) internal(err error, msg string) error {
	s.logger.Error(msg, zap.Error(err))
	return apperror.Internal(err, msg)
}
