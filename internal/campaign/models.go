package campaign

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	DonationPending  = "pending"
	DonationReceived = "received"

	DefaultCategory = "Other"
)

// Categories lists the accepted campaign categories.
var Categories = []string{"Environment", "Education", "Animal Welfare", "Healthcare", "Other"}

// Campaign is a proposed fundraising effort. Donations and goals are embedded
// so they are always written together with their campaign.
type Campaign struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title              string               `bson:"title" json:"title"`
	Description        string               `bson:"description" json:"description"`
	About              string               `bson:"about" json:"about"`
	Category           string               `bson:"category" json:"category"`
	Location           string               `bson:"location,omitempty" json:"location,omitempty"`
	Date               time.Time            `bson:"date" json:"date"` // target date
	SubmittedDate      time.Time            `bson:"submitted_date" json:"submitted_date"`
	ImageURL           string               `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Documents          []string             `bson:"documents" json:"documents"`
	Contact            Contact              `bson:"contact" json:"contact"`
	Status             string               `bson:"status" json:"status"`
	Creator            primitive.ObjectID   `bson:"creator" json:"creator"` // immutable
	TargetParticipants int                  `bson:"target_participants" json:"target_participants"`
	EstimatedBudget    float64              `bson:"estimated_budget" json:"estimated_budget"`
	Participants       []primitive.ObjectID `bson:"participants" json:"participants"`
	PopularityScore    int                  `bson:"popularity_score" json:"popularity_score"`
	IsNGOAffiliated    bool                 `bson:"is_ngo_affiliated" json:"is_ngo_affiliated"`
	NGODetails         *NGODetails          `bson:"ngo_details,omitempty" json:"ngo_details,omitempty"`
	Donations          []Donation           `bson:"donations" json:"donations"`
	Goals              []Goal               `bson:"goals" json:"goals"`
	Version            int64                `bson:"version" json:"-"` // bumped on every write
	CreatedAt          time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time            `bson:"updated_at" json:"updated_at"`
}

type Contact struct {
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type NGODetails struct {
	Name     string `bson:"name" json:"name"`
	Location string `bson:"location" json:"location"`
}

// Donation is a self-reported pledge. Only an admin moves it to received.
type Donation struct {
	ID         primitive.ObjectID  `bson:"_id" json:"id"`
	Donor      primitive.ObjectID  `bson:"donor" json:"donor"`
	Amount     float64             `bson:"amount" json:"amount"` // immutable
	PaymentRef string              `bson:"payment_ref,omitempty" json:"payment_ref,omitempty"`
	Status     string              `bson:"status" json:"status"`
	Date       time.Time           `bson:"date" json:"date"`
	ReceivedAt *time.Time          `bson:"received_at,omitempty" json:"received_at,omitempty"`
	GoalID     *primitive.ObjectID `bson:"goal_id,omitempty" json:"goal_id,omitempty"` // goal credited on confirmation
}

type Goal struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	Description     string             `bson:"description" json:"description"`
	TargetAmount    float64            `bson:"target_amount" json:"target_amount"`
	CollectedAmount float64            `bson:"collected_amount" json:"collected_amount"` // only grows, via confirmation
}

type ProposeRequest struct {
	Title              string      `json:"title" validate:"required"`
	Description        string      `json:"description" validate:"required"`
	About              string      `json:"about" validate:"required"`
	Category           string      `json:"category"`
	Location           string      `json:"location"`
	Date               string      `json:"date" validate:"required"`
	ImageURL           string      `json:"image_url"`
	Documents          []string    `json:"documents"`
	Contact            Contact     `json:"contact"`
	TargetParticipants int         `json:"target_participants"`
	EstimatedBudget    float64     `json:"estimated_budget"`
	IsNGOAffiliated    bool        `json:"is_ngo_affiliated"`
	NGODetails         *NGODetails `json:"ngo_details"`
	Goals              []GoalInput `json:"goals"`
}

type GoalInput struct {
	Description  string  `json:"description"`
	TargetAmount float64 `json:"target_amount"`
}

type DonateRequest struct {
	Amount     float64 `json:"amount"`
	PaymentRef string  `json:"payment_ref"`
}

type ConfirmRequest struct {
	GoalID string `json:"goal_id"`
}

type JoinResult struct {
	PopularityScore int `json:"popularity_score"`
}

type DashboardStats struct {
	TotalCampaigns    int64   `json:"total_campaigns"`
	PendingCampaigns  int64   `json:"pending_campaigns"`
	ApprovedCampaigns int64   `json:"approved_campaigns"`
	RejectedCampaigns int64   `json:"rejected_campaigns"`
	TotalUsers        int64   `json:"total_users"`
	TotalDonations    float64 `json:"total_donations"` // sum of received donations
}

// ListFilter narrows a campaign listing. Zero values match everything.
type ListFilter struct {
	Status string
}
