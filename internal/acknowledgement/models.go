package acknowledgement

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"

	DefaultMessage = "We sincerely thank all participants and donors for their valuable contribution to this campaign."
)

// Acknowledgement is the thank-you document of an NGO-affiliated campaign.
// There is at most one per campaign.
type Acknowledgement struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CampaignID  primitive.ObjectID `bson:"campaign_id" json:"campaign_id"`   // unique
	NGOName     string             `bson:"ngo_name" json:"ngo_name"`         // copied from the campaign at creation
	NGOLocation string             `bson:"ngo_location" json:"ngo_location"` // copied from the campaign at creation
	Message     string             `bson:"message" json:"message"`
	GeneratedBy primitive.ObjectID `bson:"generated_by" json:"generated_by"`
	Status      string             `bson:"status" json:"status"` // draft -> published, one way
	PublishedAt *time.Time         `bson:"published_at,omitempty" json:"published_at,omitempty"`
	DeliveredTo []string           `bson:"delivered_to,omitempty" json:"delivered_to,omitempty"` // emails the published message reached
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

type GenerateRequest struct {
	CampaignID string `json:"campaign_id" validate:"required"`
	Message    string `json:"message"`
}

type UpdateMessageRequest struct {
	Message string `json:"message"`
}

type ListResponse struct {
	Count            int               `json:"count"`
	Acknowledgements []Acknowledgement `json:"acknowledgements"`
}
