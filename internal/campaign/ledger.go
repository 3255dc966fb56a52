package campaign

import (
	"math"
	"slices"
	"strings"
	"time"

	"Sahaaya/internal/apperror"
	"Sahaaya/internal/calculator"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = validator.New()

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NewCampaign validates a proposal and builds a pending campaign owned by creator.
func NewCampaign(req ProposeRequest, creator primitive.ObjectID, now time.Time) (*Campaign, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	about := strings.TrimSpace(req.About)
	if title == "" || description == "" || about == "" {
		return nil, apperror.Validation("title, description and about are required")
	}

	date, ok := parseDate(req.Date)
	if !ok {
		return nil, apperror.Validation("date must be a valid date")
	}
	if req.TargetParticipants <= 0 {
		return nil, apperror.Validation("target_participants must be greater than 0")
	}
	if !(req.EstimatedBudget > 0) || math.IsInf(req.EstimatedBudget, 0) {
		return nil, apperror.Validation("estimated_budget must be greater than 0")
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = DefaultCategory
	}
	if !slices.Contains(Categories, category) {
		return nil, apperror.Validation("category must be one of " + strings.Join(Categories, ", "))
	}

	contact := Contact{Email: strings.TrimSpace(req.Contact.Email), Phone: strings.TrimSpace(req.Contact.Phone)}
	if contact.Email != "" {
		if err := validate.Var(contact.Email, "email"); err != nil {
			return nil, apperror.Validation("contact email must be a valid email")
		}
	}

	var ngo *NGODetails
	if req.IsNGOAffiliated {
		if req.NGODetails == nil || strings.TrimSpace(req.NGODetails.Name) == "" || strings.TrimSpace(req.NGODetails.Location) == "" {
			return nil, apperror.Validation("ngo_details with name and location are required for NGO-affiliated campaigns")
		}
		ngo = &NGODetails{Name: strings.TrimSpace(req.NGODetails.Name), Location: strings.TrimSpace(req.NGODetails.Location)}
	} else if req.NGODetails != nil {
		return nil, apperror.Validation("ngo_details are only allowed for NGO-affiliated campaigns")
	}

	goals := make([]Goal, 0, len(req.Goals))
	for _, g := range req.Goals {
		desc := strings.TrimSpace(g.Description)
		if desc == "" {
			return nil, apperror.Validation("every goal needs a description")
		}
		if g.TargetAmount < 0 || math.IsNaN(g.TargetAmount) || math.IsInf(g.TargetAmount, 0) {
			return nil, apperror.Validation("goal target_amount must not be negative")
		}
		goals = append(goals, Goal{ID: primitive.NewObjectID(), Description: desc, TargetAmount: g.TargetAmount})
	}

	documents := req.Documents
	if documents == nil {
		documents = []string{}
	}

	return &Campaign{
		ID:                 primitive.NewObjectID(),
		Title:              title,
		Description:        description,
		About:              about,
		Category:           category,
		Location:           strings.TrimSpace(req.Location),
		Date:               date,
		SubmittedDate:      now,
		ImageURL:           strings.TrimSpace(req.ImageURL),
		Documents:          documents,
		Contact:            contact,
		Status:             StatusPending,
		Creator:            creator,
		TargetParticipants: req.TargetParticipants,
		EstimatedBudget:    req.EstimatedBudget,
		Participants:       []primitive.ObjectID{},
		PopularityScore:    0,
		IsNGOAffiliated:    req.IsNGOAffiliated,
		NGODetails:         ngo,
		Donations:          []Donation{},
		Goals:              goals,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// RequireApproved fails with InvalidState unless the campaign is approved.
func (c *Campaign) RequireApproved() error {
	if c.Status != StatusApproved {
		return apperror.InvalidState("campaign is not approved")
	}
	return nil
}

// Decide records an admin decision. A decided campaign may be decided again;
// the latest decision wins.
func (c *Campaign) Decide(status string, now time.Time) {
	c.Status = status
	c.UpdatedAt = now
}

func (c *Campaign) HasParticipant(userID primitive.ObjectID) bool {
	return slices.Contains(c.Participants, userID)
}

// Join enrolls userID and returns the recomputed popularity score.
func (c *Campaign) Join(userID primitive.ObjectID, now time.Time) (int, error) {
	if err := c.RequireApproved(); err != nil {
		return 0, err
	}
	if c.HasParticipant(userID) {
		return 0, apperror.AlreadyExists("already joined")
	}
	c.Participants = append(c.Participants, userID)
	c.RecomputePopularity()
	c.UpdatedAt = now
	return c.PopularityScore, nil
}

func (c *Campaign) RecomputePopularity() {
	c.PopularityScore = calculator.PopularityScore(len(c.Participants), max(c.TargetParticipants, 1))
}

// ValidateDonationAmount rejects non-positive and non-finite amounts.
func ValidateDonationAmount(amount float64) error {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return apperror.Validation("donation amount must be greater than 0")
	}
	return nil
}

// Pledge appends a pending donation. Goals and donor totals are untouched
// until the donation is confirmed.
func (c *Campaign) Pledge(donor primitive.ObjectID, amount float64, paymentRef string, now time.Time) (*Donation, error) {
	if err := ValidateDonationAmount(amount); err != nil {
		return nil, err
	}
	if err := c.RequireApproved(); err != nil {
		return nil, err
	}
	c.Donations = append(c.Donations, Donation{
		ID:         primitive.NewObjectID(),
		Donor:      donor,
		Amount:     amount,
		PaymentRef: strings.TrimSpace(paymentRef),
		Status:     DonationPending,
		Date:       now,
	})
	c.UpdatedAt = now
	donation := c.Donations[len(c.Donations)-1]
	return &donation, nil
}

func (c *Campaign) donationIndex(id primitive.ObjectID) int {
	return slices.IndexFunc(c.Donations, func(d Donation) bool { return d.ID == id })
}

func (c *Campaign) goalIndex(id primitive.ObjectID) int {
	return slices.IndexFunc(c.Goals, func(g Goal) bool { return g.ID == id })
}

// ConfirmDonation marks a donation received and credits goalID when it names
// one of the campaign's goals. A goal id that does not resolve is ignored.
func (c *Campaign) ConfirmDonation(donationID primitive.ObjectID, goalID *primitive.ObjectID, now time.Time) (*Donation, error) {
	i := c.donationIndex(donationID)
	if i < 0 {
		return nil, apperror.NotFound("donation not found")
	}
	donation := &c.Donations[i]
	if donation.Status == DonationReceived {
		return nil, apperror.InvalidState("donation already marked as received")
	}

	donation.Status = DonationReceived
	receivedAt := now
	donation.ReceivedAt = &receivedAt

	if goalID != nil {
		if g := c.goalIndex(*goalID); g >= 0 {
			c.Goals[g].CollectedAmount += donation.Amount
			credited := *goalID
			donation.GoalID = &credited
		}
	}
	c.UpdatedAt = now

	confirmed := *donation
	return &confirmed, nil
}

// TotalReceived sums confirmed donations.
func (c *Campaign) TotalReceived() float64 {
	amounts := make([]float64, 0, len(c.Donations))
	for _, d := range c.Donations {
		if d.Status == DonationReceived {
			amounts = append(amounts, d.Amount)
		}
	}
	return calculator.TotalDonations(amounts)
}

// TotalPledged sums every donation regardless of status.
func (c *Campaign) TotalPledged() float64 {
	amounts := make([]float64, 0, len(c.Donations))
	for _, d := range c.Donations {
		amounts = append(amounts, d.Amount)
	}
	return calculator.TotalDonations(amounts)
}

// PercentComplete is the share of the goal collected, 0 to 100.
func (g Goal) PercentComplete() int {
	return calculator.CompletionPercentage(g.CollectedAmount, g.TargetAmount)
}

// Supporters returns confirmed donors and participants, without duplicates.
func (c *Campaign) Supporters() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(c.Participants)+len(c.Donations))
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if !id.IsZero() && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, d := range c.Donations {
		if d.Status == DonationReceived {
			add(d.Donor)
		}
	}
	for _, p := range c.Participants {
		add(p)
	}
	return ids
}
