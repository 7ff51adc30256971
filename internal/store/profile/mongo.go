package profile

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

const defaultCollection = "profiles"

// profileDoc is the bson shape stored in the profiles collection. userId is
// the document key; no ObjectID is exposed outside this package.
type profileDoc struct {
	UserID           string   `bson:"userId"`
	Age              *int     `bson:"age,omitempty"`
	Country          string   `bson:"country,omitempty"`
	SubscriptionType string   `bson:"subscriptionType,omitempty"`
	Device           string   `bson:"device,omitempty"`
	Genres           []string `bson:"genres,omitempty"`
	Gender           string   `bson:"gender,omitempty"`
	MonthlyRevenue   *float64 `bson:"monthlyRevenue,omitempty"`
}

// MongoStore persists profiles as documents keyed by userId.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore wraps a collection from an already-connected client.
func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = defaultCollection
	}
	return &MongoStore{collection: db.Collection(collection)}
}

// Connect dials MongoDB and verifies the connection with a primary ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func (s *MongoStore) Upsert(ctx context.Context, p domain.Profile) error {
	doc := profileDoc{
		UserID:           p.UserID,
		Age:              p.Age,
		Country:          p.Country,
		SubscriptionType: p.SubscriptionType,
		Device:           p.Device,
		Genres:           p.Genres,
		Gender:           p.Gender,
		MonthlyRevenue:   p.MonthlyRevenue,
	}

	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"userId": p.UserID}, doc, opts)
	if err != nil {
		return store.NewError(store.Profile, fmt.Sprintf("upsert %s", p.UserID), err)
	}
	return nil
}

func (s *MongoStore) FetchOne(ctx context.Context, userID string) (domain.Profile, error) {
	var doc profileDoc
	err := s.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, store.NewError(store.Profile, fmt.Sprintf("fetch %s", userID), err)
	}
	return doc.toDomain(), nil
}

func (s *MongoStore) FetchAll(ctx context.Context) ([]domain.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "userId", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, store.NewError(store.Profile, "fetch all", err)
	}
	defer cursor.Close(ctx)

	var profiles []domain.Profile
	for cursor.Next(ctx) {
		var doc profileDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, store.NewError(store.Profile, "decode document", err)
		}
		profiles = append(profiles, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, store.NewError(store.Profile, "iterate cursor", err)
	}
	return profiles, nil
}

func (s *MongoStore) Delete(ctx context.Context, userID string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		return store.NewError(store.Profile, fmt.Sprintf("delete %s", userID), err)
	}
	return nil
}

func (s *MongoStore) Exists(ctx context.Context, userID string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"userId": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, store.NewError(store.Profile, fmt.Sprintf("exists %s", userID), err)
	}
	return count > 0, nil
}

func (d profileDoc) toDomain() domain.Profile {
	return domain.Profile{
		UserID:           d.UserID,
		Age:              d.Age,
		Country:          d.Country,
		SubscriptionType: d.SubscriptionType,
		Device:           d.Device,
		Genres:           d.Genres,
		Gender:           d.Gender,
		MonthlyRevenue:   d.MonthlyRevenue,
	}
}
