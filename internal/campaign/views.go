package campaign

import (
	"Sahaaya/internal/calculator"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GoalView struct {
	Goal
	PercentComplete int `json:"percent_complete"`
}

type DonationView struct {
	Donation
	NetAmount float64 `json:"net_amount"` // amount after the platform fee
}

// View is the outward shape of a campaign with its derived values.
type View struct {
	Campaign
	Donations     []DonationView `json:"donations,omitempty"`
	Goals         []GoalView     `json:"goals"`
	IsJoined      *bool          `json:"is_joined,omitempty"` // set only when the caller is known
	TotalReceived float64        `json:"total_received"`
	TotalPledged  float64        `json:"total_pledged"`
}

type viewOptions struct {
	caller        *primitive.ObjectID
	feePercent    float64
	withDonations bool
}

func newView(c *Campaign, opts viewOptions) View {
	v := View{
		Campaign:      *c,
		Goals:         make([]GoalView, 0, len(c.Goals)),
		TotalReceived: c.TotalReceived(),
		TotalPledged:  c.TotalPledged(),
	}
	for _, g := range c.Goals {
		v.Goals = append(v.Goals, GoalView{Goal: g, PercentComplete: g.PercentComplete()})
	}
	if opts.withDonations {
		v.Donations = make([]DonationView, 0, len(c.Donations))
		for _, d := range c.Donations {
			net, err := calculator.CalculateDonationAfterFee(d.Amount, opts.feePercent)
			if err != nil {
				net = 0
			}
			v.Donations = append(v.Donations, DonationView{Donation: d, NetAmount: net})
		}
	}
	if opts.caller != nil {
		joined := c.HasParticipant(*opts.caller)
		v.IsJoined = &joined
	}
	return v
}
