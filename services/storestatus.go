package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// StoreStatusChecker is the tri-state commerce lookup: true/false for an
// existing commerce's active flag, nil when the commerce is unknown.
type StoreStatusChecker interface {
	CheckStoreStatus(ctx context.Context, companyName, commerceID string) (*bool, error)
}

// MongoStoreStatus looks commerces up by their company domain and external id.
type MongoStoreStatus struct {
	collection *mongo.Collection
}

func NewMongoStoreStatus(db *mongo.Database) *MongoStoreStatus {
	return &MongoStoreStatus{collection: db.Collection("commerces")}
}

func (s *MongoStoreStatus) CheckStoreStatus(ctx context.Context, companyName, commerceID string) (*bool, error) {
	filter := bson.M{
		"domain":             fmt.Sprintf("%s.youorder.me", strings.ToLower(companyName)),
		"contact.externalId": commerceID,
	}

	var store struct {
		Active bool `bson:"active"`
	}
	err := s.collection.FindOne(ctx, filter).Decode(&store)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			slog.Info("Commerce not found",
				"companyName", companyName,
				"commerceID", commerceID,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("commerce lookup: %w", err)
	}

	slog.Info("Commerce status checked",
		"companyName", companyName,
		"commerceID", commerceID,
		"active", store.Active,
	)
	return &store.Active, nil
}
