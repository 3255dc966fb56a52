package acknowledgement

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned by Create when the campaign already has an acknowledgement.
var ErrDuplicate = errors.New("acknowledgement already exists for campaign")

// Repository stores acknowledgements. Lookups return (nil, nil) when nothing matches.
type Repository interface {
	Create(ctx context.Context, ack *Acknowledgement) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Acknowledgement, error)
	FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) (*Acknowledgement, error)
	ListByGenerator(ctx context.Context, userID primitive.ObjectID) ([]Acknowledgement, error)
	// MarkPublished publishes a draft. It returns nil when id is not a draft.
	MarkPublished(ctx context.Context, id primitive.ObjectID, at time.Time) (*Acknowledgement, error)
	UpdateMessage(ctx context.Context, id primitive.ObjectID, message string, at time.Time) (*Acknowledgement, error)
	RecordDelivery(ctx context.Context, id primitive.ObjectID, emails []string) error
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("acknowledgements")}
}

func (r *mongoRepository) Create(ctx context.Context, ack *Acknowledgement) error {
	_, err := r.collection.InsertOne(ctx, ack)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *mongoRepository) findOne(ctx context.Context, filter bson.M) (*Acknowledgement, error) {
	var ack Acknowledgement
	err := r.collection.FindOne(ctx, filter).Decode(&ack)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ack, nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Acknowledgement, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepository) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) (*Acknowledgement, error) {
	return r.findOne(ctx, bson.M{"campaign_id": campaignID})
}

func (r *mongoRepository) ListByGenerator(ctx context.Context, userID primitive.ObjectID) ([]Acknowledgement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"generated_by": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	acks := []Acknowledgement{}
	if err := cursor.All(ctx, &acks); err != nil {
		return nil, err
	}
	return acks, nil
}

func (r *mongoRepository) findOneAndSet(ctx context.Context, filter, set bson.M) (*Acknowledgement, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ack Acknowledgement
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&ack)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ack, nil
}

func (r *mongoRepository) MarkPublished(ctx context.Context, id primitive.ObjectID, at time.Time) (*Acknowledgement, error) {
	return r.findOneAndSet(ctx,
		bson.M{"_id": id, "status": StatusDraft},
		bson.M{"status": StatusPublished, "published_at": at, "updated_at": at},
	)
}

func (r *mongoRepository) UpdateMessage(ctx context.Context, id primitive.ObjectID, message string, at time.Time) (*Acknowledgement, error) {
	return r.findOneAndSet(ctx,
		bson.M{"_id": id},
		bson.M{"message": message, "updated_at": at},
	)
}

func (r *mongoRepository) RecordDelivery(ctx context.Context, id primitive.ObjectID, emails []string) error {
	if len(emails) == 0 {
		return nil
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"delivered_to": bson.M{"$each": emails}}},
	)
	return err
}
