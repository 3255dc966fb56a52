package auth

import (
	"context"
	"time"

	"Sahaaya/internal/apperror"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository stores identity records. Lookups return (nil, nil) when the
// user does not exist.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, req ProfileUpdateRequest) (*User, error)
	SetGovtID(ctx context.Context, id primitive.ObjectID, url string) (*User, error)
	CampaignsCreatedBy(ctx context.Context, id primitive.ObjectID) ([]CampaignSummary, error)
	CampaignsJoinedBy(ctx context.Context, id primitive.ObjectID) ([]CampaignSummary, error)
}

type mongoUserRepository struct {
	collection *mongo.Collection
	campaigns  *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{
		collection: db.Collection("users"),
		campaigns:  db.Collection("campaigns"),
	}
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mongoUserRepository) CreateUser(ctx context.Context, user *User) error {
	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.AlreadyExists("email already registered")
		}
		return err
	}
	return nil
}

func (r *mongoUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, req ProfileUpdateRequest) (*User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.Picture != "" {
		set["picture"] = req.Picture
	}
	if req.GovtIDURL != "" {
		set["govt_id_url"] = req.GovtIDURL
	}
	return r.findOneAndSet(ctx, id, set)
}

func (r *mongoUserRepository) SetGovtID(ctx context.Context, id primitive.ObjectID, url string) (*User, error) {
	return r.findOneAndSet(ctx, id, bson.M{
		"govt_id_url":         url,
		"is_govt_id_verified": true,
		"updated_at":          time.Now().UTC(),
	})
}

func (r *mongoUserRepository) findOneAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (*User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) CampaignsCreatedBy(ctx context.Context, id primitive.ObjectID) ([]CampaignSummary, error) {
	return r.campaignSummaries(ctx, bson.M{"creator": id})
}

func (r *mongoUserRepository) CampaignsJoinedBy(ctx context.Context, id primitive.ObjectID) ([]CampaignSummary, error) {
	return r.campaignSummaries(ctx, bson.M{"participants": id})
}

func (r *mongoUserRepository) campaignSummaries(ctx context.Context, filter bson.M) ([]CampaignSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"title": 1, "description": 1, "category": 1, "status": 1, "created_at": 1})

	cursor, err := r.campaigns.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := []CampaignSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}
