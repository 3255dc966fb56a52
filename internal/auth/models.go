package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email            string             `bson:"email" json:"email"` // unique
	Name             string             `bson:"name" json:"name"`
	Picture          string             `bson:"picture,omitempty" json:"picture,omitempty"`
	PasswordHash     string             `bson:"password_hash" json:"-"`
	Role             string             `bson:"role" json:"role"`
	GovtIDURL        string             `bson:"govt_id_url,omitempty" json:"govt_id_url,omitempty"`
	IsGovtIDVerified bool               `bson:"is_govt_id_verified" json:"is_govt_id_verified"`
	TotalDonated     float64            `bson:"total_donated" json:"total_donated"` // only incremented by donation confirmation
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// CampaignSummary is the read-only projection of a campaign shown on a profile.
type CampaignSummary struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Profile is a user with the campaigns they created and joined, derived from
// the campaigns collection on every read.
type Profile struct {
	User
	CreatedCampaigns []CampaignSummary `json:"created_campaigns"`
	JoinedCampaigns  []CampaignSummary `json:"joined_campaigns"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type Credential struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileUpdateRequest struct {
	Name      string `json:"name"`
	Picture   string `json:"picture" validate:"omitempty,url"`
	GovtIDURL string `json:"govt_id_url" validate:"omitempty,url"`
}

type VerifyIDRequest struct {
	GovtIDURL string `json:"govt_id_url" validate:"required,url"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
