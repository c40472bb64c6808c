package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"support-bot/models"
)

// CreateAgent creates a new agent with a hashed password
func CreateAgent(ctx context.Context, agent *models.Agent, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	agent.ID = primitive.NewObjectID()
	agent.PasswordHash = hash
	agent.IsActive = true
	agent.CreatedAt = now
	agent.UpdatedAt = now
	if agent.AgentID == "" {
		agent.AgentID = agent.ID.Hex()
	}

	collection := GetDatabase().Collection("agents")
	_, err = collection.InsertOne(ctx, agent)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	return nil
}

// GetAgentByEmail retrieves an agent by email
func GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error) {
	collection := GetDatabase().Collection("agents")

	var agent models.Agent
	err := collection.FindOne(ctx, bson.M{"email": email}).Decode(&agent)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("agent not found")
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return &agent, nil
}

// GetAgentByID retrieves an agent by agent ID
func GetAgentByID(ctx context.Context, agentID string) (*models.Agent, error) {
	collection := GetDatabase().Collection("agents")

	var agent models.Agent
	err := collection.FindOne(ctx, bson.M{"agent_id": agentID}).Decode(&agent)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("agent not found")
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return &agent, nil
}

// UpdateAgentLastLogin updates the last login timestamp
func UpdateAgentLastLogin(ctx context.Context, agentID string) error {
	collection := GetDatabase().Collection("agents")

	_, err := collection.UpdateOne(
		ctx,
		bson.M{"agent_id": agentID},
		bson.M{"$set": bson.M{
			"last_login": time.Now(),
			"updated_at": time.Now(),
		}},
	)
	return err
}

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its bcrypt hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
