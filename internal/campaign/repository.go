package campaign

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrVersionConflict means the campaign changed between read and write.
var ErrVersionConflict = errors.New("campaign was modified concurrently")

// Repository persists campaigns. Writes are conditional on the version that
// was read; a stale write returns ErrVersionConflict and changes nothing.
type Repository interface {
	Create(ctx context.Context, c *Campaign) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Campaign, error)
	List(ctx context.Context, filter ListFilter) ([]Campaign, error)
	Replace(ctx context.Context, c *Campaign) error
	// ConfirmDonation saves c and adds amount to the donor's running total
	// in one transaction.
	ConfirmDonation(ctx context.Context, c *Campaign, donor primitive.ObjectID, amount float64) error
	Stats(ctx context.Context) (*DashboardStats, error)
}

type mongoRepository struct {
	client    *mongo.Client
	campaigns *mongo.Collection
	users     *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		client:    db.Client(),
		campaigns: db.Collection("campaigns"),
		users:     db.Collection("users"),
	}
}

func (r *mongoRepository) Create(ctx context.Context, c *Campaign) error {
	c.Version = 1
	_, err := r.campaigns.InsertOne(ctx, c)
	return err
}

func (r *mongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Campaign, error) {
	var c Campaign
	err := r.campaigns.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *mongoRepository) List(ctx context.Context, filter ListFilter) ([]Campaign, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.campaigns.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	campaigns := []Campaign{}
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// replaceVersioned writes c as version c.Version+1 if the stored version is
// still c.Version. It leaves c untouched so a retried transaction can call it again.
func (r *mongoRepository) replaceVersioned(ctx context.Context, c *Campaign) error {
	next := *c
	next.Version = c.Version + 1

	res, err := r.campaigns.ReplaceOne(ctx, bson.M{"_id": c.ID, "version": c.Version}, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *mongoRepository) Replace(ctx context.Context, c *Campaign) error {
	if err := r.replaceVersioned(ctx, c); err != nil {
		return err
	}
	c.Version++
	return nil
}

func (r *mongoRepository) ConfirmDonation(ctx context.Context, c *Campaign, donor primitive.ObjectID, amount float64) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := r.replaceVersioned(sc, c); err != nil {
			return nil, err
		}
		_, err := r.users.UpdateOne(sc,
			bson.M{"_id": donor},
			bson.M{"$inc": bson.M{"total_donated": amount}},
		)
		return nil, err
	})
	if err != nil {
		return err
	}
	c.Version++
	return nil
}

func (r *mongoRepository) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	byStatus, err := r.campaigns.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	var counts []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := byStatus.All(ctx, &counts); err != nil {
		return nil, err
	}
	for _, row := range counts {
		stats.TotalCampaigns += row.Count
		switch row.Status {
		case StatusPending:
			stats.PendingCampaigns = row.Count
		case StatusApproved:
			stats.ApprovedCampaigns = row.Count
		case StatusRejected:
			stats.RejectedCampaigns = row.Count
		}
	}

	received, err := r.campaigns.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$unwind", Value: "$donations"}},
		{{Key: "$match", Value: bson.M{"donations.status": DonationReceived}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$donations.amount"}}}},
	})
	if err != nil {
		return nil, err
	}
	var totals []struct {
		Total float64 `bson:"total"`
	}
	if err := received.All(ctx, &totals); err != nil {
		return nil, err
	}
	if len(totals) > 0 {
		stats.TotalDonations = totals[0].Total
	}

	stats.TotalUsers, err = r.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
